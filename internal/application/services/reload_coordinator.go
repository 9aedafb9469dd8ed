package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/facilitycollector/internal/application/overlay"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

// State is the reload state machine position
type State string

const (
	StateIdle       State = "IDLE"
	StateCollecting State = "COLLECTING"
	StateMerging    State = "MERGING"
	StatePublished  State = "PUBLISHED"
	StateError      State = "ERROR"
)

// ErrReloadInProgress is returned when a reload is requested while one runs
var ErrReloadInProgress = apperrors.NewConflictError("a reload is already in progress")

// ReloadLockKey is the cross-instance lock name
const ReloadLockKey = "facilitycollector:reload"

// Status describes the last reload attempt
type Status struct {
	State       State     `json:"state"`
	ReloadID    string    `json:"reloadId,omitempty"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	PublishedID string    `json:"publishedId,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
	Facilities  int       `json:"facilities"`
	Pending     []string  `json:"pending,omitempty"`
}

// Collector produces the canonical facility list from loaded sources
type Collector interface {
	Collect() []*entities.Facility
}

// WaitTimeSource is the loaded wait-time feed
type WaitTimeSource interface {
	Load() map[string][]entities.WaitTimeRecord
	ServiceNamesObserved() []string
}

// CoordinatorConfig wires a ReloadCoordinator. Lock, Cache, Events and
// Metrics are optional.
type CoordinatorConfig struct {
	Adapters  []providers.SourceAdapter
	Collector Collector
	WaitTimes WaitTimeSource
	Store     *overlay.Store
	Engine    *overlay.Engine

	Lock    providers.ReloadLock
	LockTTL time.Duration
	Cache   *SnapshotCache
	Events  providers.EventBus
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// baseline is the collected, pre-overlay state of the last good reload
type baseline struct {
	facilities []*entities.Facility
	waitTimes  overlay.WaitTimeIndex
	atcNames   []string
}

// ReloadCoordinator drives reloads and owns the published snapshot
type ReloadCoordinator struct {
	cfg CoordinatorConfig

	// running admits one reload at a time
	running sync.Mutex

	// mergeMu serializes merges from reloads and overlay edits
	mergeMu  sync.Mutex
	baseline *baseline

	snapshot atomic.Pointer[Snapshot]

	statusMu sync.Mutex
	status   atomic.Pointer[Status]
}

// NewReloadCoordinator creates an idle coordinator with nothing published
func NewReloadCoordinator(cfg CoordinatorConfig) *ReloadCoordinator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	c := &ReloadCoordinator{cfg: cfg}
	c.status.Store(&Status{State: StateIdle})
	return c
}

// Snapshot returns the published snapshot, or nil before the first publish
func (c *ReloadCoordinator) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Status returns a copy of the current status
func (c *ReloadCoordinator) Status() Status {
	s := *c.status.Load()
	s.Pending = append([]string(nil), s.Pending...)
	return s
}

func (c *ReloadCoordinator) updateStatus(fn func(*Status)) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	s := c.Status()
	fn(&s)
	c.status.Store(&s)
}

// Reload runs one full refresh. A reload requested while another is running
// fails with ErrReloadInProgress. On failure the published snapshot is kept.
func (c *ReloadCoordinator) Reload(ctx context.Context) error {
	if !c.running.TryLock() {
		return ErrReloadInProgress
	}
	defer c.running.Unlock()

	reloadID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "facilities.reload")
	defer span.End()
	logger := observability.WithTrace(ctx, c.cfg.Logger.With().Str("reload_id", reloadID).Logger())
	observability.SetSpanAttributes(span, attribute.String("reload.id", reloadID))

	start := time.Now()
	c.updateStatus(func(s *Status) {
		s.State = StateCollecting
		s.ReloadID = reloadID
		s.StartedAt = start
		s.FinishedAt = time.Time{}
		s.LastError = ""
	})

	err := c.reload(ctx, reloadID, logger)
	if err != nil {
		observability.RecordError(span, err)
		c.cfg.Metrics.RecordReload(ctx, "error", time.Since(start))
		c.updateStatus(func(s *Status) {
			s.State = StateError
			s.FinishedAt = time.Now()
			s.LastError = err.Error()
		})
		c.publishEvent(ctx, &entities.ReloadEvent{ReloadID: reloadID, EventType: entities.ReloadEventFailed, Error: err.Error()}, logger)
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("reload failed; keeping published snapshot")
		return err
	}

	c.cfg.Metrics.RecordReload(ctx, "published", time.Since(start))
	logger.Info().Dur("duration", time.Since(start)).Msg("reload published")
	return nil
}

func (c *ReloadCoordinator) reload(ctx context.Context, reloadID string, logger zerolog.Logger) error {
	if c.cfg.Lock != nil {
		release, err := c.cfg.Lock.Acquire(ctx, ReloadLockKey, c.cfg.LockTTL)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("failed to release reload lock")
			}
		}()
	}

	if err := c.reloadSources(ctx, logger); err != nil {
		return err
	}

	c.updateStatus(func(s *Status) { s.State = StateMerging })
	_, span := observability.StartSpan(ctx, "facilities.collect")
	b := &baseline{
		facilities: c.cfg.Collector.Collect(),
		waitTimes:  overlay.WaitTimeIndex(c.cfg.WaitTimes.Load()),
		atcNames:   c.cfg.WaitTimes.ServiceNamesObserved(),
	}
	span.End()
	if len(b.facilities) == 0 {
		return apperrors.NewExternalError("collection produced no facilities", nil)
	}

	c.mergeMu.Lock()
	snap, err := c.mergeLocked(ctx, b, logger)
	c.mergeMu.Unlock()
	if err != nil {
		return err
	}
	c.updateStatus(func(s *Status) {
		s.State = StatePublished
		s.PublishedID = s.ReloadID
		s.FinishedAt = time.Now()
	})

	c.publishEvent(ctx, &entities.ReloadEvent{
		ReloadID:        reloadID,
		EventType:       entities.ReloadEventPublished,
		FacilityCount:   snap.Len(),
		PendingOverlays: snap.Pending,
	}, logger)
	return nil
}

// reloadSources reloads every adapter concurrently and waits for all of
// them. Only critical adapters can fail the reload.
func (c *ReloadCoordinator) reloadSources(ctx context.Context, logger zerolog.Logger) error {
	ctx, span := observability.StartSpan(ctx, "facilities.sources")
	defer span.End()

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for _, a := range c.cfg.Adapters {
		g.Go(func() error {
			if err := a.Reload(ctx); err != nil {
				c.cfg.Metrics.RecordSourceFailure(ctx, a.Name(), a.Critical())
				if !a.Critical() {
					logger.Warn().Err(err).Str("source", a.Name()).Msg("best-effort source failed")
					return nil
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			logger.Debug().Str("source", a.Name()).Int("facilities", a.Len()).Msg("source ready")
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		observability.RecordError(span, err)
		return err
	}
	return nil
}

// mergeLocked layers the current overlays onto b, then publishes and caches
// the result. The caller holds mergeMu from choosing b until this returns, so
// a published baseline is never replaced by an older one.
func (c *ReloadCoordinator) mergeLocked(ctx context.Context, b *baseline, logger zerolog.Logger) (*Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "facilities.merge")
	defer span.End()

	entries, err := c.cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overlays: %w", err)
	}

	res := c.cfg.Engine.Apply(overlay.Input{
		Facilities: b.facilities,
		Overlays:   entries,
		WaitTimes:  b.waitTimes,
		ATCNames:   b.atcNames,
	})

	if len(res.Rewrites) > 0 {
		n, err := c.cfg.Store.PersistRewrites(ctx, res.Rewrites)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to persist some overlay rewrites")
		}
		logger.Info().Int("rewritten", n).Int("queued", len(res.Rewrites)).Msg("persisted normalized overlays")
	}

	snap := NewSnapshot(res.Facilities, res.ServiceNames, res.Pending)
	c.snapshot.Store(snap)
	c.baseline = b

	c.updateStatus(func(s *Status) {
		s.PublishedAt = time.Now()
		s.Facilities = snap.Len()
		s.Pending = snap.Pending
	})
	c.cfg.Metrics.RecordPublished(ctx, snap.Len(), len(snap.Pending))
	if len(snap.Pending) > 0 {
		logger.Info().Strs("pending", snap.Pending).Msg("overlays waiting for a facility")
	}
	c.saveSnapshot(ctx, snap, logger)
	return snap, nil
}

// Remerge re-applies overlays to the last collected baseline after an overlay
// edit. It does nothing before the first successful reload.
func (c *ReloadCoordinator) Remerge(ctx context.Context) error {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()
	if c.baseline == nil {
		return nil
	}

	logger := c.cfg.Logger.With().Str("trigger", "overlay").Logger()
	_, err := c.mergeLocked(ctx, c.baseline, logger)
	return err
}

func (c *ReloadCoordinator) saveSnapshot(ctx context.Context, snap *Snapshot, logger zerolog.Logger) {
	if c.cfg.Cache == nil {
		return
	}
	if err := c.cfg.Cache.Save(ctx, snap); err != nil {
		logger.Warn().Err(err).Msg("failed to cache snapshot")
	}
}

func (c *ReloadCoordinator) publishEvent(ctx context.Context, event *entities.ReloadEvent, logger zerolog.Logger) {
	if c.cfg.Events == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := c.cfg.Events.Publish(ctx, providers.EventChannelReloads, event); err != nil {
		logger.Warn().Err(err).Msg("failed to publish reload event")
	}
}

// WarmStart serves the cached snapshot until the first reload publishes.
// It reports whether a snapshot was loaded.
func (c *ReloadCoordinator) WarmStart(ctx context.Context) (bool, error) {
	if c.cfg.Cache == nil {
		return false, nil
	}
	snap, err := c.cfg.Cache.Load(ctx)
	if errors.Is(err, providers.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !c.snapshot.CompareAndSwap(nil, snap) {
		return false, nil
	}
	c.updateStatus(func(s *Status) {
		s.Facilities = snap.Len()
		s.Pending = snap.Pending
	})
	c.cfg.Logger.Info().Int("facilities", snap.Len()).Msg("serving cached snapshot until first reload")
	return true, nil
}

// Run reloads immediately and then every interval until ctx is done.
// Failed reloads are logged and retried on the next tick.
func (c *ReloadCoordinator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.Reload(ctx); err != nil && !apperrors.IsConflict(err) {
			c.cfg.Logger.Warn().Err(err).Dur("retry_in", interval).Msg("scheduled reload failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
