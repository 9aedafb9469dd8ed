package sources

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	"github.com/zatekoja/facilitycollector/pkg/config"
)

// Feed is the HTTP client the ATC and cemetery adapters use
type Feed interface {
	JSONGetter
	XMLGetter
}

// Deps are the backends the adapters read from
type Deps struct {
	Registry              *goqu.Database
	Feeds                 Feed
	Blob                  providers.BlobStore
	NationalCemeteriesURL string
	StateCemeteriesURL    string
}

// Set holds one adapter per upstream
type Set struct {
	Registry           *Keyed[entities.RegistryRecord]
	WaitTimes          *Keyed[entities.WaitTimeRecord]
	Satisfaction       *Keyed[entities.SatisfactionRecord]
	NationalCemeteries *Keyed[entities.CemeteryRecord]
	StateCemeteries    *Keyed[entities.CemeteryRecord]
	Websites           *Keyed[entities.WebsiteRecord]
	CaregiverSupport   *Keyed[entities.InclusionRecord]
	Orthopedics        *Keyed[entities.InclusionRecord]
}

// NewSet wires every adapter from specs, falling back to the built-in defaults
// for any source specs does not mention.
func NewSet(deps Deps, specs map[string]config.SourceSpec, logger zerolog.Logger) *Set {
	spec := func(name string) config.SourceSpec {
		if s, ok := specs[name]; ok {
			return s
		}
		return config.DefaultSources()[name]
	}
	location := func(s config.SourceSpec, fallback string) string {
		if s.Location != "" {
			return s.Location
		}
		return fallback
	}

	regSpec := spec(config.SourceRegistry)
	waitSpec := spec(config.SourceWaitTimes)
	satSpec := spec(config.SourceSatisfaction)
	ncaSpec := spec(config.SourceNationalCemeteries)
	scaSpec := spec(config.SourceStateCemeteries)
	webSpec := spec(config.SourceWebsites)
	cgSpec := spec(config.SourceCaregiverSupport)
	orthoSpec := spec(config.SourceOrthopedics)

	return &Set{
		Registry: NewKeyed(regSpec, RegistryFetch(deps.Registry), RegistryKey, logger).
			WithServiceNames(RegistryServiceNames),
		WaitTimes: NewKeyed(waitSpec, WaitTimesFetch(deps.Feeds, waitSpec.Location), WaitTimeKey, logger).
			WithServiceNames(WaitTimeServiceNames),
		Satisfaction:       NewKeyed(satSpec, SatisfactionFetch(deps.Feeds, satSpec.Location), SatisfactionKey, logger),
		NationalCemeteries: NewKeyed(ncaSpec, CemeteriesFetch(deps.Feeds, location(ncaSpec, deps.NationalCemeteriesURL), false), CemeteryKey, logger),
		StateCemeteries:    NewKeyed(scaSpec, CemeteriesFetch(deps.Feeds, location(scaSpec, deps.StateCemeteriesURL), true), CemeteryKey, logger),
		Websites:           NewKeyed(webSpec, WebsitesFetch(deps.Blob, webSpec.Location), WebsiteKey, logger),
		CaregiverSupport:   NewKeyed(cgSpec, InclusionFetch(deps.Blob, cgSpec.Location), InclusionKey, logger),
		Orthopedics:        NewKeyed(orthoSpec, InclusionFetch(deps.Blob, orthoSpec.Location), InclusionKey, logger),
	}
}

// Adapters lists every adapter for the reload coordinator
func (s *Set) Adapters() []providers.SourceAdapter {
	return []providers.SourceAdapter{
		s.Registry,
		s.WaitTimes,
		s.Satisfaction,
		s.NationalCemeteries,
		s.StateCemeteries,
		s.Websites,
		s.CaregiverSupport,
		s.Orthopedics,
	}
}
