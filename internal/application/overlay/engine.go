package overlay

import (
	"bytes"
	"sort"

	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// WaitTimeLookup is the read side of the wait-time feed
type WaitTimeLookup interface {
	Lookup(id string) []entities.WaitTimeRecord
}

// WaitTimeIndex is a loaded wait-time feed keyed by facility id
type WaitTimeIndex map[string][]entities.WaitTimeRecord

// Lookup returns the rows of one facility
func (w WaitTimeIndex) Lookup(id string) []entities.WaitTimeRecord { return w[id] }

// Input is everything one merge needs
type Input struct {
	Facilities []*entities.Facility
	Overlays   []*Entry
	WaitTimes  WaitTimeLookup
	ATCNames   []string
}

// Result is the merged facility set
type Result struct {
	Facilities   []*entities.Facility
	Pending      []string
	Rewrites     []Rewrite
	ServiceNames map[string]string
}

// Engine merges overlays onto collected facilities
type Engine struct {
	catalog *catalog.Catalog
	rules   []Rule
	logger  zerolog.Logger
}

// NewEngine creates an engine running DefaultRules
func NewEngine(c *catalog.Catalog, logger zerolog.Logger) *Engine {
	return &Engine{catalog: c, rules: DefaultRules, logger: logger}
}

// WithRules replaces the rule list
func (e *Engine) WithRules(rules ...Rule) *Engine {
	e.rules = rules
	return e
}

// Apply merges in.Overlays onto copies of in.Facilities. The inputs are not
// modified, so the same baseline can be merged again after an overlay edit.
func (e *Engine) Apply(in Input) *Result {
	res := &Result{Facilities: make([]*entities.Facility, len(in.Facilities))}

	known := make(map[string]int, len(in.Facilities))
	for i, f := range in.Facilities {
		res.Facilities[i] = f.Clone()
		known[f.ID] = i
	}

	names := catalog.NewNameAggregator(e.catalog, e.logger)
	names.AddATCNames(in.ATCNames)

	overlays := make([]*entities.Overlay, 0, len(in.Overlays))
	for _, entry := range in.Overlays {
		o := e.backfill(entry, in.WaitTimes, res)
		// names typed for a pending facility stay out of the shared table
		if _, ok := known[o.ID]; ok {
			for _, ds := range o.DetailedServices {
				names.AddCMS(ds.ServiceInfo.ServiceID, ds.ServiceInfo.Name)
			}
		}
		overlays = append(overlays, o)
	}

	for _, o := range overlays {
		i, ok := known[o.ID]
		if !ok {
			res.Pending = append(res.Pending, o.ID)
			continue
		}
		for _, r := range e.rules {
			r.Apply(res.Facilities[i], o, names)
		}
	}

	for _, f := range res.Facilities {
		if f.OperatingStatus.IsZero() {
			f.OperatingStatus = entities.ComputedStatus(f.ActiveStatus)
		}
	}

	sort.Strings(res.Pending)
	res.ServiceNames = names.Snapshot()
	return res
}

// backfill copies feed wait times into the overlay's detailed services,
// replacing each matched sub-object whole. Unmatched services keep what
// storage had. A rewrite is queued when the column would change.
func (e *Engine) backfill(entry *Entry, waits WaitTimeLookup, res *Result) *entities.Overlay {
	o := *entry.Overlay
	o.DetailedServices = make([]entities.DetailedService, len(entry.Overlay.DetailedServices))
	for i, ds := range entry.Overlay.DetailedServices {
		o.DetailedServices[i] = ds.Clone()
	}

	if waits != nil {
		byService := make(map[string]entities.PatientWaitTime)
		for _, w := range waits.Lookup(o.ID) {
			r := e.catalog.ResolveByName(w.AppointmentType)
			if !r.Recognized {
				continue
			}
			if _, seen := byService[r.Entry.ID]; !seen {
				byService[r.Entry.ID] = w.WaitTime()
			}
		}
		for i := range o.DetailedServices {
			if wt, ok := byService[o.DetailedServices[i].ServiceInfo.ServiceID]; ok {
				o.DetailedServices[i].WaitTime = &wt
			}
		}
	}

	if len(o.DetailedServices) > 0 {
		encoded, err := encodeDetailed(o.DetailedServices)
		if err != nil {
			e.logger.Error().Err(err).Str("facility_id", o.ID).Msg("failed to encode detailed services")
		} else if !bytes.Equal(encoded, entry.StoredDetailed) {
			res.Rewrites = append(res.Rewrites, Rewrite{
				ID:               o.ID,
				DetailedServices: encoded,
				Services:         serviceNames(o.DetailedServices),
				Base:             entry.StoredDetailed,
			})
		}
	}
	return &o
}
