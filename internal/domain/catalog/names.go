package catalog

import (
	"sync"

	"github.com/rs/zerolog"
)

// NameAggregator picks the display name of a service id for one reload.
// Names supplied with overlays (CMS) win, then names observed in the ATC
// feed, then the catalog's own name.
type NameAggregator struct {
	catalog *Catalog
	logger  zerolog.Logger

	cms map[string]string
	atc map[string]string

	mu     sync.Mutex
	warned map[string]struct{}
}

// NewNameAggregator creates an aggregator backed by c
func NewNameAggregator(c *Catalog, logger zerolog.Logger) *NameAggregator {
	return &NameAggregator{
		catalog: c,
		logger:  logger,
		cms:     make(map[string]string),
		atc:     make(map[string]string),
		warned:  make(map[string]struct{}),
	}
}

// AddCMS records a name supplied through an overlay. The first one wins.
func (a *NameAggregator) AddCMS(id, name string) {
	if id == "" || id == InvalidID || name == "" {
		return
	}
	if _, ok := a.cms[id]; !ok {
		a.cms[id] = name
	}
}

// AddATCNames resolves names observed in the ATC feed and records them.
// Names the catalog does not know are ignored.
func (a *NameAggregator) AddATCNames(names []string) {
	for _, n := range names {
		r := a.catalog.ResolveByName(n)
		if !r.Recognized {
			a.logger.Debug().Str("service_name", n).Msg("ATC service name not in catalog")
			continue
		}
		if _, ok := a.atc[r.Entry.ID]; !ok {
			a.atc[r.Entry.ID] = n
		}
	}
}

// Name returns the display name for id.
func (a *NameAggregator) Name(id string) (string, bool) {
	if n, ok := a.cms[id]; ok {
		return n, true
	}
	if n, ok := a.atc[id]; ok {
		a.warnOutOfSync(id)
		return n, true
	}
	if r := a.catalog.ResolveByID(id); r.Recognized {
		return r.Entry.Name, true
	}
	return "", false
}

func (a *NameAggregator) warnOutOfSync(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, done := a.warned[id]; done {
		return
	}
	a.warned[id] = struct{}{}
	a.logger.Warn().Str("service_id", id).Msg("service name taken from ATC feed; CMS names out of sync with catalog")
}

// Snapshot returns the name of every catalog id plus every id named by a feed.
func (a *NameAggregator) Snapshot() map[string]string {
	out := a.catalog.Names()
	for id, n := range a.atc {
		out[id] = n
	}
	for id, n := range a.cms {
		out[id] = n
	}
	return out
}
