// Package overlay stores operator-supplied overlays and merges them onto
// collected facilities.
package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

const maxWriteAttempts = 5

// Store is the overlay store. Every write is a read-modify-write guarded by
// the row version and retried when another writer got there first.
type Store struct {
	repo     repositories.OverlayRepository
	catalog  *catalog.Catalog
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewStore creates a store over repo
func NewStore(repo repositories.OverlayRepository, c *catalog.Catalog, logger zerolog.Logger) *Store {
	return &Store{
		repo:     repo,
		catalog:  c,
		validate: validator.New(),
		logger:   logger,
	}
}

// Upsert merges partial into the stored overlay for partial.ID. Unset fields
// keep their stored values and detailed services merge by service id. Ids
// with no collected facility are accepted.
func (s *Store) Upsert(ctx context.Context, partial *entities.Overlay) (*entities.Overlay, error) {
	if partial == nil {
		return nil, apperrors.NewValidationError("overlay is required", nil)
	}
	if err := s.validate.Struct(partial); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid overlay for %s", partial.ID), err)
	}
	if partial.IsEmpty() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("overlay for %s sets no field", partial.ID), nil)
	}

	incoming := make([]entities.DetailedService, 0, len(partial.DetailedServices))
	for _, ds := range partial.DetailedServices {
		ds = ds.Clone()
		ds.ServiceInfo = normalizeInfo(ds.ServiceInfo, resolveInfo(s.catalog, ds.ServiceInfo))
		// wait times come from the feed on every reload, never from operators
		ds.WaitTime = nil
		if ds.ServiceInfo.ServiceID == catalog.InvalidID {
			s.logger.Warn().Str("facility_id", partial.ID).Str("service_name", ds.ServiceInfo.Name).Msg("storing unrecognized detailed service")
		}
		incoming = append(incoming, ds)
	}

	var merged *entities.OverlayRecord
	err := s.retry(ctx, partial.ID, func(rec *entities.OverlayRecord) (*entities.OverlayRecord, bool, error) {
		next := *rec
		if partial.OperatingStatus != nil {
			b, err := json.Marshal(partial.OperatingStatus)
			if err != nil {
				return nil, false, err
			}
			next.OperatingStatus = b
		}
		if partial.HealthCareSystem != nil {
			b, err := json.Marshal(partial.HealthCareSystem)
			if err != nil {
				return nil, false, err
			}
			next.HealthCareSystem = b
		}
		if len(incoming) > 0 {
			stored, err := decodeDetailed(s.catalog, rec.DetailedServices)
			if err != nil {
				s.logger.Warn().Err(err).Str("facility_id", rec.ID).Msg("replacing corrupt stored detailed services")
				stored = nil
			}
			list := mergeDetailed(stored, incoming)
			if next.DetailedServices, err = encodeDetailed(list); err != nil {
				return nil, false, err
			}
			next.Services = serviceNames(list)
		}
		merged = &next
		return &next, false, nil
	})
	if err != nil {
		return nil, err
	}

	entry, err := decodeRecord(s.catalog, merged)
	if err != nil {
		// a corrupt column the submission did not touch
		return partial, nil
	}
	return entry.Overlay, nil
}

// Get returns the stored overlay for id
func (s *Store) Get(ctx context.Context, id string) (*entities.Overlay, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entry, err := decodeRecord(s.catalog, rec)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("stored overlay for %s is corrupt", id), err)
	}
	return entry.Overlay, nil
}

// Delete removes field from the overlay for id, dropping the row once no
// field is left. Deleting from a missing overlay is not an error.
func (s *Store) Delete(ctx context.Context, id string, field entities.OverlayField) error {
	if !field.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown overlay field %q", field), nil)
	}

	err := s.retry(ctx, id, func(rec *entities.OverlayRecord) (*entities.OverlayRecord, bool, error) {
		if rec.Version == 0 {
			return nil, false, nil
		}
		next := *rec
		switch field {
		case entities.OverlayFieldAll:
			return &next, true, nil
		case entities.OverlayFieldOperatingStatus:
			next.OperatingStatus = nil
		case entities.OverlayFieldHealthCareSystem:
			next.HealthCareSystem = nil
		case entities.OverlayFieldDetailedServices:
			next.DetailedServices = nil
			next.Services = nil
		}
		return &next, next.IsEmpty(), nil
	})
	return err
}

// mutation returns the row to write, or nil to write nothing. remove asks
// for the row to be deleted instead.
type mutation func(rec *entities.OverlayRecord) (next *entities.OverlayRecord, remove bool, err error)

func (s *Store) retry(ctx context.Context, id string, mutate mutation) error {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := s.repo.Get(ctx, id)
		if apperrors.IsNotFound(err) {
			rec, err = &entities.OverlayRecord{ID: id}, nil
		}
		if err != nil {
			return err
		}

		next, remove, err := mutate(rec)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to encode overlay for %s", id), err)
		}
		switch {
		case next == nil:
			return nil
		case remove:
			err = s.repo.Delete(ctx, id, rec.Version)
		default:
			err = s.repo.Save(ctx, next, rec.Version)
		}
		if !apperrors.IsConflict(err) {
			return err
		}
		s.logger.Debug().Str("facility_id", id).Int("attempt", attempt).Msg("overlay write conflict; retrying")
	}
	return apperrors.NewConflictError(fmt.Sprintf("overlay for %s kept changing; gave up after %d attempts", id, maxWriteAttempts))
}

// Load reads every overlay fresh from the repository. Rows that fail to
// decode are logged and skipped so one corrupt facility never blocks a merge.
func (s *Store) Load(ctx context.Context) ([]*Entry, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(rows))
	for _, rec := range rows {
		entry, err := decodeRecord(s.catalog, rec)
		if err != nil {
			s.logger.Error().Err(err).Str("facility_id", rec.ID).Msg("skipping corrupt overlay")
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Rewrite is a normalized detailed-service column to write back
type Rewrite struct {
	ID               string
	DetailedServices []byte
	Services         []string

	// Base is the stored column the rewrite was derived from
	Base []byte
}

// PersistRewrites writes normalized detailed services back. A row whose
// detailed services changed since they were loaded is left alone; the next
// merge redoes it. Row versions restart after a delete, so the stored column
// itself is compared. It returns the number of rows written.
func (s *Store) PersistRewrites(ctx context.Context, rewrites []Rewrite) (int, error) {
	written := 0
	var errs []error
	for _, rw := range rewrites {
		rec, err := s.repo.Get(ctx, rw.ID)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !bytes.Equal(rec.DetailedServices, rw.Base) {
			s.logger.Debug().Str("facility_id", rw.ID).Msg("detailed services edited since load; skipping rewrite")
			continue
		}
		rec.DetailedServices = rw.DetailedServices
		rec.Services = rw.Services
		err = s.repo.Save(ctx, rec, rec.Version)
		if apperrors.IsConflict(err) {
			s.logger.Debug().Str("facility_id", rw.ID).Msg("overlay changed during rewrite; skipping")
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}
