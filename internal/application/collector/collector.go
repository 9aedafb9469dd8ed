// Package collector runs every transformer over already loaded source data
// and produces the sorted canonical facility list. It performs no I/O.
package collector

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/application/transform"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// Stage transforms the records of one facility category
type Stage interface {
	Name() string
	Run(logger zerolog.Logger) (facilities []*entities.Facility, dropped int)
}

type stage[T any] struct {
	name        string
	records     func() []T
	transformer transform.Transformer[T]
}

// NewStage pairs a record source with its transformer. records is called on
// every collection so the stage always sees the latest loaded data.
func NewStage[T any](name string, records func() []T, t transform.Transformer[T]) Stage {
	return &stage[T]{name: name, records: records, transformer: t}
}

func (s *stage[T]) Name() string { return s.name }

func (s *stage[T]) Run(logger zerolog.Logger) ([]*entities.Facility, int) {
	records := s.records()
	out := make([]*entities.Facility, 0, len(records))
	dropped := 0
	for i, rec := range records {
		f, err := s.transform(rec)
		if err != nil {
			dropped++
			logger.Warn().Err(err).Int("record", i).Msg("dropping malformed record")
			continue
		}
		if f == nil {
			dropped++
			continue
		}
		out = append(out, f)
	}
	return out, dropped
}

// transform isolates a panicking transformer to the record that caused it
func (s *stage[T]) transform(rec T) (f *entities.Facility, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("transformer panicked: %v", r)
		}
	}()
	return s.transformer.Transform(rec)
}

// Collector merges the output of all stages
type Collector struct {
	stages []Stage
	logger zerolog.Logger
}

// New creates a collector over stages
func New(logger zerolog.Logger, stages ...Stage) *Collector {
	return &Collector{stages: stages, logger: logger}
}

// Collect returns one facility per id sorted by id. When two records produce
// the same id the first one wins.
func (c *Collector) Collect() []*entities.Facility {
	seen := make(map[string]struct{})
	var out []*entities.Facility
	for _, s := range c.stages {
		logger := c.logger.With().Str("stage", s.Name()).Logger()
		facilities, dropped := s.Run(logger)
		for _, f := range facilities {
			if _, dup := seen[f.ID]; dup {
				logger.Warn().Str("facility_id", f.ID).Msg("duplicate facility id; keeping first")
				continue
			}
			seen[f.ID] = struct{}{}
			out = append(out, f)
		}
		logger.Debug().Int("facilities", len(facilities)).Int("dropped", dropped).Msg("stage collected")
	}
	entities.SortFacilities(out)
	return out
}
