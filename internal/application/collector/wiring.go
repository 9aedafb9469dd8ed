package collector

import (
	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/adapters/sources"
	"github.com/zatekoja/facilitycollector/internal/application/transform"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// FromSources builds the standard stages over a source adapter set
func FromSources(set *sources.Set, cat *catalog.Catalog, logger zerolog.Logger) *Collector {
	registry := func(kind entities.RegistryKind) func() []entities.RegistryRecord {
		return func() []entities.RegistryRecord {
			var out []entities.RegistryRecord
			for _, r := range set.Registry.All() {
				if r.Kind == kind {
					out = append(out, r)
				}
			}
			return out
		}
	}
	cemeteries := func() []entities.CemeteryRecord {
		return append(set.NationalCemeteries.All(), set.StateCemeteries.All()...)
	}

	return New(logger,
		NewStage[entities.RegistryRecord]("health", registry(entities.RegistryKindHealth), &transform.Health{
			Catalog:          cat,
			WaitTimes:        set.WaitTimes,
			Satisfaction:     set.Satisfaction,
			Websites:         set.Websites,
			CaregiverSupport: set.CaregiverSupport,
			Orthopedics:      set.Orthopedics,
			Logger:           logger,
		}),
		NewStage[entities.RegistryRecord]("benefits", registry(entities.RegistryKindBenefits), &transform.Benefits{
			Catalog:  cat,
			Websites: set.Websites,
			Logger:   logger,
		}),
		NewStage[entities.CemeteryRecord]("cemetery", cemeteries, &transform.Cemetery{Websites: set.Websites}),
		NewStage[entities.RegistryRecord]("vetcenter", registry(entities.RegistryKindVetCenter), &transform.VetCenter{Websites: set.Websites}),
	)
}
