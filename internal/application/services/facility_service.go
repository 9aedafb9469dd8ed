package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zatekoja/facilitycollector/internal/application/overlay"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

// FacilityService is the read and admin surface over the published snapshot
// and the overlay store
type FacilityService struct {
	coordinator *ReloadCoordinator
	store       *overlay.Store
	catalog     *catalog.Catalog
	logger      zerolog.Logger
}

// NewFacilityService creates a new facility service
func NewFacilityService(coordinator *ReloadCoordinator, store *overlay.Store, c *catalog.Catalog, logger zerolog.Logger) *FacilityService {
	return &FacilityService{
		coordinator: coordinator,
		store:       store,
		catalog:     c,
		logger:      logger,
	}
}

// GetFacility returns the published facility for id
func (s *FacilityService) GetFacility(ctx context.Context, id string) (*entities.Facility, error) {
	if snap := s.coordinator.Snapshot(); snap != nil {
		if f, ok := snap.Facility(strings.TrimSpace(id)); ok {
			return f.Clone(), nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility %s not found", id))
}

// ListFacilities returns every published facility accepted by filter, in id
// order. A nil filter accepts everything.
func (s *FacilityService) ListFacilities(ctx context.Context, filter func(*entities.Facility) bool) []*entities.Facility {
	snap := s.coordinator.Snapshot()
	if snap == nil {
		return []*entities.Facility{}
	}
	out := make([]*entities.Facility, 0, snap.Len())
	for _, f := range snap.Facilities {
		if filter == nil || filter(f) {
			out = append(out, f.Clone())
		}
	}
	return out
}

// GetOverlay returns the stored overlay for id, whether or not a facility
// with that id has been collected
func (s *FacilityService) GetOverlay(ctx context.Context, id string) (*entities.Overlay, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// PutOverlay merges partial into the stored overlay for id. Unknown ids are
// accepted and held as pending until a facility with that id is collected.
func (s *FacilityService) PutOverlay(ctx context.Context, id string, partial *entities.Overlay) (*entities.Overlay, error) {
	if partial == nil {
		return nil, apperrors.NewValidationError("overlay is required", nil)
	}
	patch := *partial
	patch.ID = strings.TrimSpace(id)

	stored, err := s.store.Upsert(ctx, &patch)
	if err != nil {
		return nil, err
	}
	s.remerge(ctx, patch.ID)
	return stored, nil
}

// DeleteOverlay removes field from the overlay for id
func (s *FacilityService) DeleteOverlay(ctx context.Context, id string, field entities.OverlayField) error {
	id = strings.TrimSpace(id)
	if err := s.store.Delete(ctx, id, field); err != nil {
		return err
	}
	s.remerge(ctx, id)
	return nil
}

// the overlay is stored either way; the next reload picks it up if this fails
func (s *FacilityService) remerge(ctx context.Context, id string) {
	if err := s.coordinator.Remerge(ctx); err != nil {
		s.logger.Warn().Err(err).Str("facility_id", id).Msg("failed to re-merge after overlay change")
	}
}

// Reload triggers a full refresh
func (s *FacilityService) Reload(ctx context.Context) error {
	return s.coordinator.Reload(ctx)
}

// ServiceNameForID returns the display name of a service id as of the last
// publish, falling back to the catalog before the first one
func (s *FacilityService) ServiceNameForID(serviceID string) (string, bool) {
	r := s.catalog.ResolveByID(serviceID)
	if !r.Recognized {
		return "", false
	}
	if snap := s.coordinator.Snapshot(); snap != nil {
		if name, ok := snap.ServiceNames[r.Entry.ID]; ok {
			return name, true
		}
	}
	return r.Entry.Name, true
}

// Status returns the reload coordinator status
func (s *FacilityService) Status() Status {
	return s.coordinator.Status()
}

// Catalog returns the service catalog
func (s *FacilityService) Catalog() *catalog.Catalog {
	return s.catalog
}
