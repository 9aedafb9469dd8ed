package repositories

import (
	"context"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// OverlayRepository is a key-value store of overlay rows keyed by facility id.
// Writes use optimistic concurrency on OverlayRecord.Version.
type OverlayRepository interface {
	// Get returns the row for id or a NOT_FOUND AppError
	Get(ctx context.Context, id string) (*entities.OverlayRecord, error)

	// List returns every row ordered by id
	List(ctx context.Context) ([]*entities.OverlayRecord, error)

	// Save writes rec if the stored version equals expectedVersion, where 0
	// means "must not exist yet". On success the stored version becomes
	// expectedVersion+1. A mismatch returns a CONFLICT AppError.
	Save(ctx context.Context, rec *entities.OverlayRecord, expectedVersion int64) error

	// Delete removes the row if its version equals expectedVersion
	Delete(ctx context.Context, id string, expectedVersion int64) error
}
