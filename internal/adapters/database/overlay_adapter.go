package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/lib/pq"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

// OverlayTable holds one row per facility id with an overlay
const OverlayTable = "cms_overlay"

// Dialects understood by OverlayAdapter
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

var overlaySchema = map[string]string{
	DialectPostgres: `CREATE TABLE IF NOT EXISTS cms_overlay (
	id                 VARCHAR(32) PRIMARY KEY,
	operating_status   TEXT,
	detailed_services  TEXT,
	health_care_system TEXT,
	services           TEXT[],
	version            BIGINT NOT NULL,
	updated_at         BIGINT NOT NULL
)`,
	DialectSQLite: `CREATE TABLE IF NOT EXISTS cms_overlay (
	id                 TEXT PRIMARY KEY,
	operating_status   TEXT,
	detailed_services  TEXT,
	health_care_system TEXT,
	services           TEXT,
	version            INTEGER NOT NULL,
	updated_at         INTEGER NOT NULL
)`,
}

// OverlayAdapter implements the overlay repository over Postgres or SQLite.
type OverlayAdapter struct {
	dialect string
	db      *goqu.Database
	now     func() time.Time
}

// NewOverlayAdapter creates a new overlay adapter. dialect is DialectPostgres or DialectSQLite.
func NewOverlayAdapter(db *sql.DB, dialect string) (*OverlayAdapter, error) {
	if _, ok := overlaySchema[dialect]; !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported overlay dialect %q", dialect), nil)
	}
	return &OverlayAdapter{
		dialect: dialect,
		db:      goqu.New(dialect, db),
		now:     time.Now,
	}, nil
}

var _ repositories.OverlayRepository = (*OverlayAdapter)(nil)

// EnsureSchema creates the overlay table if it does not exist.
func (a *OverlayAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, overlaySchema[a.dialect]); err != nil {
		return apperrors.NewInternalError("failed to create overlay table", err)
	}
	return nil
}

type overlayRow struct {
	ID               string         `db:"id"`
	OperatingStatus  sql.NullString `db:"operating_status"`
	DetailedServices sql.NullString `db:"detailed_services"`
	HealthCareSystem sql.NullString `db:"health_care_system"`
	Services         serviceSet     `db:"services"`
	Version          int64          `db:"version"`
	UpdatedAt        int64          `db:"updated_at"`
}

func (r overlayRow) toRecord() *entities.OverlayRecord {
	return &entities.OverlayRecord{
		ID:               r.ID,
		OperatingStatus:  nullBytes(r.OperatingStatus),
		DetailedServices: nullBytes(r.DetailedServices),
		HealthCareSystem: nullBytes(r.HealthCareSystem),
		Services:         []string(r.Services),
		Version:          r.Version,
		UpdatedAt:        time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid || s.String == "" {
		return nil
	}
	return []byte(s.String)
}

func nullString(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: len(b) > 0}
}

// serviceSet scans either a Postgres text[] or the JSON array SQLite stores
type serviceSet []string

func (s *serviceSet) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported services column type %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	if raw[0] == '[' {
		var out []string
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		*s = out
		return nil
	}
	var arr pq.StringArray
	if err := arr.Scan(raw); err != nil {
		return err
	}
	*s = serviceSet(arr)
	return nil
}

func (a *OverlayAdapter) encodeServices(services []string) (interface{}, error) {
	if services == nil {
		services = []string{}
	}
	if a.dialect == DialectPostgres {
		return pq.Array(services), nil
	}
	b, err := json.Marshal(services)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Get retrieves the overlay row for a facility id.
func (a *OverlayAdapter) Get(ctx context.Context, id string) (*entities.OverlayRecord, error) {
	var row overlayRow
	found, err := a.db.From(OverlayTable).Prepared(true).
		Where(goqu.C("id").Eq(id)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get overlay", err)
	}
	if !found {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("overlay for facility %s not found", id))
	}
	return row.toRecord(), nil
}

// List retrieves every overlay row ordered by id.
func (a *OverlayAdapter) List(ctx context.Context) ([]*entities.OverlayRecord, error) {
	var rows []overlayRow
	err := a.db.From(OverlayTable).Prepared(true).
		Order(goqu.C("id").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list overlays", err)
	}

	out := make([]*entities.OverlayRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// Save inserts or updates an overlay row guarded by its version.
func (a *OverlayAdapter) Save(ctx context.Context, rec *entities.OverlayRecord, expectedVersion int64) error {
	if rec == nil || rec.ID == "" {
		return apperrors.NewValidationError("overlay record requires an id", nil)
	}

	services, err := a.encodeServices(rec.Services)
	if err != nil {
		return apperrors.NewInternalError("failed to encode overlay services", err)
	}
	record := goqu.Record{
		"operating_status":   nullString(rec.OperatingStatus),
		"detailed_services":  nullString(rec.DetailedServices),
		"health_care_system": nullString(rec.HealthCareSystem),
		"services":           services,
		"version":            expectedVersion + 1,
		"updated_at":         a.now().UnixMilli(),
	}

	var query string
	var args []interface{}
	if expectedVersion == 0 {
		record["id"] = rec.ID
		query, args, err = a.db.Insert(OverlayTable).Prepared(true).
			Rows(record).
			OnConflict(goqu.DoNothing()).
			ToSQL()
	} else {
		query, args, err = a.db.Update(OverlayTable).Prepared(true).
			Set(record).
			Where(goqu.C("id").Eq(rec.ID), goqu.C("version").Eq(expectedVersion)).
			ToSQL()
	}
	if err != nil {
		return apperrors.NewInternalError("failed to build overlay save query", err)
	}

	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to save overlay", err)
	}
	if err := expectOneRow(res, rec.ID); err != nil {
		return err
	}

	rec.Version = expectedVersion + 1
	return nil
}

// Delete removes an overlay row guarded by its version.
func (a *OverlayAdapter) Delete(ctx context.Context, id string, expectedVersion int64) error {
	query, args, err := a.db.Delete(OverlayTable).Prepared(true).
		Where(goqu.C("id").Eq(id), goqu.C("version").Eq(expectedVersion)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build overlay delete query", err)
	}

	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete overlay", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if n == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("overlay for facility %s was modified concurrently", id))
	}
	return nil
}
