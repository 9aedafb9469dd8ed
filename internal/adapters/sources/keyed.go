// Package sources adapts each upstream system into an in-memory lookup
// keyed by facility id.
package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	"github.com/zatekoja/facilitycollector/pkg/config"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// FetchFunc retrieves the full record set of one upstream
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// KeyFunc returns the facility id of a record, or "" to skip it
type KeyFunc[T any] func(T) string

// Keyed caches the full result of a FetchFunc as a multimap from facility id
// to records. The map is replaced wholesale on every reload and never mutated
// afterwards, so values returned by Load are safe to share.
type Keyed[T any] struct {
	spec   config.SourceSpec
	fetch  FetchFunc[T]
	key    KeyFunc[T]
	names  func(T) []string
	logger zerolog.Logger

	mu       sync.RWMutex
	data     map[string][]T
	observed []string
}

var _ providers.SourceAdapter = (*Keyed[struct{}])(nil)

// NewKeyed creates an empty adapter; call Reload to populate it.
func NewKeyed[T any](spec config.SourceSpec, fetch FetchFunc[T], key KeyFunc[T], logger zerolog.Logger) *Keyed[T] {
	return &Keyed[T]{
		spec:   spec,
		fetch:  fetch,
		key:    key,
		logger: logger.With().Str("source", spec.Name).Logger(),
		data:   map[string][]T{},
	}
}

// WithServiceNames makes the adapter collect the service names its records mention.
func (k *Keyed[T]) WithServiceNames(fn func(T) []string) *Keyed[T] {
	k.names = fn
	return k
}

// Name identifies the source
func (k *Keyed[T]) Name() string { return k.spec.Name }

// Critical reports the configured failure class
func (k *Keyed[T]) Critical() bool { return k.spec.IsCritical() }

// Reload refetches everything. A critical source that fails or returns no
// records keeps its previous data and returns an EXTERNAL error. A best-effort
// source that fails is emptied and the failure is only logged.
func (k *Keyed[T]) Reload(ctx context.Context) error {
	if k.spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.spec.Timeout)
		defer cancel()
	}

	start := time.Now()
	records, err := k.fetch(ctx)
	if err == nil && len(records) == 0 && k.Critical() {
		err = fmt.Errorf("no records returned")
	}
	if err != nil {
		return k.fail(err)
	}

	data := make(map[string][]T, len(records))
	var names []string
	skipped := 0
	for _, r := range records {
		id := k.key(r)
		if id == "" {
			skipped++
			continue
		}
		data[id] = append(data[id], r)
		if k.names != nil {
			names = append(names, k.names(r)...)
		}
	}
	if len(data) == 0 && k.Critical() {
		return k.fail(fmt.Errorf("none of %d records has a facility id", len(records)))
	}
	k.replace(data, utils.SortedSet(names))

	k.logger.Info().
		Int("records", len(records)).
		Int("facilities", len(data)).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("source reloaded")
	return nil
}

func (k *Keyed[T]) fail(err error) error {
	if k.Critical() {
		k.logger.Error().Err(err).Msg("critical source reload failed; keeping previous data")
		return apperrors.NewExternalError(fmt.Sprintf("source %s failed", k.spec.Name), err)
	}
	k.logger.Warn().Err(err).Msg("best-effort source reload failed; continuing without its data")
	k.replace(map[string][]T{}, nil)
	return nil
}

func (k *Keyed[T]) replace(data map[string][]T, observed []string) {
	k.mu.Lock()
	k.data = data
	k.observed = observed
	k.mu.Unlock()
}

// Load returns the current facility id to records multimap. Callers must not modify it.
func (k *Keyed[T]) Load() map[string][]T {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.data
}

// Lookup returns the records of one facility
func (k *Keyed[T]) Lookup(id string) []T {
	return k.Load()[id]
}

// Has reports whether any record exists for id
func (k *Keyed[T]) Has(id string) bool {
	return len(k.Lookup(id)) > 0
}

// Keys returns every facility id, sorted
func (k *Keyed[T]) Keys() []string {
	return sortedKeys(k.Load())
}

// All returns every record ordered by facility id, then fetch order
func (k *Keyed[T]) All() []T {
	data := k.Load()
	var out []T
	for _, id := range sortedKeys(data) {
		out = append(out, data[id]...)
	}
	return out
}

func sortedKeys[T any](data map[string][]T) []string {
	keys := make([]string, 0, len(data))
	for id := range data {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of facility ids cached
func (k *Keyed[T]) Len() int {
	return len(k.Load())
}

// ServiceNamesObserved returns the distinct service names seen in the last load
func (k *Keyed[T]) ServiceNamesObserved() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]string(nil), k.observed...)
}

// Static wraps fixed data in a lookup, for tests and one-off tools
func Static[T any](name string, key KeyFunc[T], records ...T) *Keyed[T] {
	k := NewKeyed(config.SourceSpec{Name: name, Criticality: config.BestEffort},
		func(context.Context) ([]T, error) { return records, nil }, key, zerolog.Nop())
	_ = k.Reload(context.Background())
	return k
}
