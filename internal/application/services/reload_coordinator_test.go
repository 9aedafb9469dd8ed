package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/facilitycollector/internal/adapters/database"
	"github.com/zatekoja/facilitycollector/internal/adapters/events"
	"github.com/zatekoja/facilitycollector/internal/application/overlay"
	"github.com/zatekoja/facilitycollector/internal/application/services"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	"github.com/zatekoja/facilitycollector/internal/domain/repositories"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/sqlite"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

type fakeAdapter struct {
	name     string
	critical bool

	mu      sync.Mutex
	err     error
	block   chan struct{}
	entered chan struct{}
	reloads int
}

func (a *fakeAdapter) Name() string   { return a.name }
func (a *fakeAdapter) Critical() bool { return a.critical }
func (a *fakeAdapter) Len() int       { return 1 }

func (a *fakeAdapter) Reload(ctx context.Context) error {
	a.mu.Lock()
	a.reloads++
	err, block, entered := a.err, a.block, a.entered
	a.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (a *fakeAdapter) fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

// fakeCollector hands out fresh copies of its facilities on every call
type fakeCollector struct {
	mu         sync.Mutex
	facilities []*entities.Facility
}

func (c *fakeCollector) Collect() []*entities.Facility {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entities.Facility, len(c.facilities))
	for i, f := range c.facilities {
		out[i] = f.Clone()
	}
	entities.SortFacilities(out)
	return out
}

func (c *fakeCollector) set(fs ...*entities.Facility) {
	c.mu.Lock()
	c.facilities = fs
	c.mu.Unlock()
}

type fakeWaits struct {
	data  map[string][]entities.WaitTimeRecord
	names []string
}

func (w *fakeWaits) Load() map[string][]entities.WaitTimeRecord { return w.data }
func (w *fakeWaits) ServiceNamesObserved() []string             { return w.names }

// memCache is a map-backed CacheProvider
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// mockCache is a testify mock of CacheProvider
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type harness struct {
	registry    *fakeAdapter
	waitFeed    *fakeAdapter
	collector   *fakeCollector
	waits       *fakeWaits
	store       *overlay.Store
	coordinator *services.ReloadCoordinator
	service     *services.FacilityService
}

func facility(id, name, active string) *entities.Facility {
	f := &entities.Facility{ID: id, Name: name, ActiveStatus: active}
	f.OperatingStatus = entities.ComputedStatus(active)
	return f
}

// hookedRepo runs a one-shot hook before the next Get reaches the database
type hookedRepo struct {
	repositories.OverlayRepository

	mu        sync.Mutex
	beforeGet func()
}

func (r *hookedRepo) Get(ctx context.Context, id string) (*entities.OverlayRecord, error) {
	r.mu.Lock()
	hook := r.beforeGet
	r.beforeGet = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.OverlayRepository.Get(ctx, id)
}

func (r *hookedRepo) arm(fn func()) {
	r.mu.Lock()
	r.beforeGet = fn
	r.mu.Unlock()
}

func newHarness(t *testing.T, mutate func(*services.CoordinatorConfig)) *harness {
	t.Helper()
	return newHarnessWithRepo(t, nil, mutate)
}

func newHarnessWithRepo(t *testing.T, wrap func(repositories.OverlayRepository) repositories.OverlayRepository, mutate func(*services.CoordinatorConfig)) *harness {
	t.Helper()
	ctx := context.Background()

	client, err := sqlite.NewClient(ctx, ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	adapter, err := database.NewOverlayAdapter(client.DB(), database.DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, adapter.EnsureSchema(ctx))

	var repo repositories.OverlayRepository = adapter
	if wrap != nil {
		repo = wrap(repo)
	}

	cat := catalog.Default()
	h := &harness{
		registry:  &fakeAdapter{name: "registry", critical: true},
		waitFeed:  &fakeAdapter{name: "waittimes"},
		collector: &fakeCollector{},
		waits:     &fakeWaits{},
		store:     overlay.NewStore(repo, cat, zerolog.Nop()),
	}
	h.collector.set(
		facility("vha_402", "Togus VA Medical Center", entities.ActiveStatusActive),
		facility("vba_310", "Philadelphia Regional Benefit Office", entities.ActiveStatusActive),
	)

	cfg := services.CoordinatorConfig{
		Adapters:  []providers.SourceAdapter{h.registry, h.waitFeed},
		Collector: h.collector,
		WaitTimes: h.waits,
		Store:     h.store,
		Engine:    overlay.NewEngine(cat, zerolog.Nop()),
		Logger:    zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.coordinator = services.NewReloadCoordinator(cfg)
	h.service = services.NewFacilityService(h.coordinator, h.store, cat, zerolog.Nop())
	return h
}

func TestReload_PublishesSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.Equal(t, services.StateIdle, h.service.Status().State)
	_, err := h.service.GetFacility(ctx, "vha_402")
	assert.True(t, apperrors.IsNotFound(err), "nothing is published before the first reload")

	require.NoError(t, h.service.Reload(ctx))

	status := h.service.Status()
	assert.Equal(t, services.StatePublished, status.State)
	assert.NotEmpty(t, status.ReloadID)
	assert.Equal(t, status.ReloadID, status.PublishedID)
	assert.Equal(t, 2, status.Facilities)

	f, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, "Togus VA Medical Center", f.Name)
	assert.Equal(t, entities.StatusNormal, f.OperatingStatus.Code)

	list := h.service.ListFacilities(ctx, nil)
	require.Len(t, list, 2)
	assert.Equal(t, "vba_310", list[0].ID)

	health := h.service.ListFacilities(ctx, func(f *entities.Facility) bool { return f.ID[:4] == "vha_" })
	require.Len(t, health, 1)
}

func TestReload_ReadersGetCopies(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.service.Reload(ctx))

	f, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	f.Name = "changed"

	again, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, "Togus VA Medical Center", again.Name)
}

func TestReload_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.service.PutOverlay(ctx, "vha_402", &entities.Overlay{
		DetailedServices: []entities.DetailedService{{ServiceInfo: entities.ServiceInfo{ServiceID: "cardiology"}}},
	})
	require.NoError(t, err)

	require.NoError(t, h.service.Reload(ctx))
	first := h.coordinator.Snapshot()
	require.NoError(t, h.service.Reload(ctx))
	second := h.coordinator.Snapshot()

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Facilities, second.Facilities)
	assert.Equal(t, first.ServiceNames, second.ServiceNames)
	assert.Equal(t, first.Pending, second.Pending)
}

func TestReload_CriticalFailureKeepsSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.service.Reload(ctx))
	before, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)

	h.registry.fail(apperrors.NewExternalError("source registry failed", errors.New("no records returned")))
	h.collector.set(facility("vha_402", "Renamed", entities.ActiveStatusTemporary))

	err = h.service.Reload(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))

	after, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	status := h.service.Status()
	assert.Equal(t, services.StateError, status.State)
	assert.Contains(t, status.LastError, "registry")
	assert.NotEqual(t, status.ReloadID, status.PublishedID)
	assert.Equal(t, 2, status.Facilities)
}

func TestReload_BestEffortFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.waitFeed.fail(errors.New("feed down"))
	require.NoError(t, h.service.Reload(context.Background()))
	assert.Equal(t, 1, h.waitFeed.reloads)
	assert.Equal(t, services.StatePublished, h.service.Status().State)
}

func TestReload_EmptyCollectionFails(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.service.Reload(ctx))

	h.collector.set()
	require.Error(t, h.service.Reload(ctx))
	assert.Equal(t, 2, h.coordinator.Snapshot().Len())
}

func TestReload_RejectsConcurrentReload(t *testing.T) {
	h := newHarness(t, nil)
	h.registry.block = make(chan struct{})
	h.registry.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- h.service.Reload(context.Background()) }()
	<-h.registry.entered

	err := h.service.Reload(context.Background())
	assert.ErrorIs(t, err, services.ErrReloadInProgress)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, services.StateCollecting, h.service.Status().State)

	close(h.registry.block)
	require.NoError(t, <-done)
	assert.Equal(t, services.StatePublished, h.service.Status().State)
}

func TestReload_OverlayEditsWhileCollecting(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.service.Reload(ctx))

	h.registry.block = make(chan struct{})
	h.registry.entered = make(chan struct{}, 1)
	h.collector.set(
		facility("vha_402", "Togus VAMC", entities.ActiveStatusActive),
		facility("vba_310", "Philadelphia Regional Benefit Office", entities.ActiveStatusActive),
	)

	done := make(chan error, 1)
	go func() { done <- h.service.Reload(ctx) }()
	<-h.registry.entered

	_, err := h.service.PutOverlay(ctx, "vha_402", &entities.Overlay{
		OperatingStatus: &entities.OperatingStatus{Code: entities.StatusClosed, AdditionalInfo: "Flooding"},
	})
	require.NoError(t, err)
	_, err = h.service.PutOverlay(ctx, "vba_310", &entities.Overlay{
		OperatingStatus: &entities.OperatingStatus{Code: entities.StatusLimited},
	})
	require.NoError(t, err)
	require.NoError(t, h.service.DeleteOverlay(ctx, "vba_310", entities.OverlayFieldAll))

	// the edits are merged onto the previous collection right away
	f, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, "Togus VA Medical Center", f.Name)
	assert.Equal(t, entities.StatusClosed, f.OperatingStatus.Code)
	assert.Equal(t, services.StateCollecting, h.service.Status().State)

	close(h.registry.block)
	require.NoError(t, <-done)

	f, err = h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, "Togus VAMC", f.Name)
	assert.Equal(t, entities.StatusClosed, f.OperatingStatus.Code)
	benefits, err := h.service.GetFacility(ctx, "vba_310")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusNormal, benefits.OperatingStatus.Code)

	o, err := h.service.GetOverlay(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusClosed, o.OperatingStatus.Code)
	_, err = h.service.GetOverlay(ctx, "vba_310")
	assert.True(t, apperrors.IsNotFound(err))

	// later edits merge onto the newest collection, not the one they replaced
	_, err = h.service.PutOverlay(ctx, "vha_402", &entities.Overlay{HealthCareSystem: &entities.HealthCareSystem{Name: "VA Maine"}})
	require.NoError(t, err)
	f, err = h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, "Togus VAMC", f.Name)
	assert.Equal(t, entities.StatusClosed, f.OperatingStatus.Code)
	require.NotNil(t, f.HealthCareSystem)
	assert.Equal(t, "VA Maine", f.HealthCareSystem.Name)
	assert.Equal(t, services.StatePublished, h.service.Status().State)
}

func TestReload_OverlayReplacedDuringRewrite(t *testing.T) {
	for _, withRemerge := range []bool{false, true} {
		name := "store only"
		if withRemerge {
			name = "with remerge"
		}
		t.Run(name, func(t *testing.T) {
			var repo *hookedRepo
			h := newHarnessWithRepo(t, func(r repositories.OverlayRepository) repositories.OverlayRepository {
				repo = &hookedRepo{OverlayRepository: r}
				return repo
			}, nil)
			ctx := context.Background()

			wait := func(newWait string) map[string][]entities.WaitTimeRecord {
				return map[string][]entities.WaitTimeRecord{"vha_402": {{
					FacilityID:      "402",
					AppointmentType: "Cardiology",
					NewWaitTime:     dec(newWait),
					SliceEndDate:    "2020-03-09T00:00:00",
				}}}
			}
			h.waits.data = wait("34.4")
			_, err := h.service.PutOverlay(ctx, "vha_402", &entities.Overlay{
				DetailedServices: []entities.DetailedService{{ServiceInfo: entities.ServiceInfo{ServiceID: "cardiology"}}},
			})
			require.NoError(t, err)
			require.NoError(t, h.service.Reload(ctx))

			// a fresh wait time makes the next reload queue another rewrite
			h.waits.data = wait("40")
			h.collector.set(
				facility("vha_402", "Togus VAMC", entities.ActiveStatusActive),
				facility("vba_310", "Philadelphia Regional Benefit Office", entities.ActiveStatusActive),
			)

			remerged := make(chan error, 1)
			repo.arm(func() {
				// the admin replaces the overlay after the merge loaded it;
				// the new row starts again at version 1
				require.NoError(t, h.store.Delete(ctx, "vha_402", entities.OverlayFieldAll))
				_, err := h.store.Upsert(ctx, &entities.Overlay{
					ID:               "vha_402",
					DetailedServices: []entities.DetailedService{{ServiceInfo: entities.ServiceInfo{ServiceID: "audiology"}}},
				})
				require.NoError(t, err)
				if withRemerge {
					go func() { remerged <- h.coordinator.Remerge(ctx) }()
				}
			})
			require.NoError(t, h.service.Reload(ctx))

			o, err := h.service.GetOverlay(ctx, "vha_402")
			require.NoError(t, err)
			require.Len(t, o.DetailedServices, 1)
			assert.Equal(t, "audiology", o.DetailedServices[0].ServiceInfo.ServiceID)

			if withRemerge {
				require.NoError(t, <-remerged)
			} else {
				require.NoError(t, h.coordinator.Remerge(ctx))
			}

			f, err := h.service.GetFacility(ctx, "vha_402")
			require.NoError(t, err)
			assert.Equal(t, "Togus VAMC", f.Name)
			require.Len(t, f.DetailedServices, 1)
			assert.Equal(t, "audiology", f.DetailedServices[0].ServiceInfo.ServiceID)
		})
	}
}

func TestReload_ClosedOverlayThenDeleteRestoresNormal(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.service.Reload(ctx))

	_, err := h.service.PutOverlay(ctx, "vha_402", &entities.Overlay{
		OperatingStatus: &entities.OperatingStatus{Code: entities.StatusClosed, AdditionalInfo: "Flooding"},
	})
	require.NoError(t, err)

	f, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusClosed, f.OperatingStatus.Code, "overlay edits are visible without a reload")
	assert.Equal(t, "Flooding", f.OperatingStatus.AdditionalInfo)

	require.NoError(t, h.service.DeleteOverlay(ctx, "vha_402", entities.OverlayFieldOperatingStatus))

	f, err = h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusNormal, f.OperatingStatus.Code)
	assert.Empty(t, f.OperatingStatus.AdditionalInfo)

	_, err = h.service.GetOverlay(ctx, "vha_402")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReload_PendingOverlay(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.service.Reload(ctx))

	_, err := h.service.PutOverlay(ctx, "vba_9999", &entities.Overlay{
		OperatingStatus: &entities.OperatingStatus{Code: entities.StatusLimited},
	})
	require.NoError(t, err)

	o, err := h.service.GetOverlay(ctx, "vba_9999")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusLimited, o.OperatingStatus.Code)

	_, err = h.service.GetFacility(ctx, "vba_9999")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, []string{"vba_9999"}, h.service.Status().Pending)

	h.collector.set(
		facility("vha_402", "Togus VA Medical Center", entities.ActiveStatusActive),
		facility("vba_310", "Philadelphia Regional Benefit Office", entities.ActiveStatusActive),
		facility("vba_9999", "New Benefit Office", entities.ActiveStatusActive),
	)
	require.NoError(t, h.service.Reload(ctx))

	f, err := h.service.GetFacility(ctx, "vba_9999")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusLimited, f.OperatingStatus.Code)
	assert.Empty(t, h.service.Status().Pending)
}

func TestReload_WaitTimeBackfill(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.waits.data = map[string][]entities.WaitTimeRecord{
		"vha_402": {{
			FacilityID:      "402",
			AppointmentType: "Cardiology",
			NewWaitTime:     dec("34.4"),
			EstWaitTime:     dec("3.25"),
			SliceEndDate:    "2020-03-09T00:00:00",
		}},
	}
	h.waits.names = []string{"Cardiology"}

	_, err := h.service.PutOverlay(ctx, "vha_402", &entities.Overlay{
		DetailedServices: []entities.DetailedService{{ServiceInfo: entities.ServiceInfo{ServiceID: "cardiology"}}},
	})
	require.NoError(t, err)
	require.NoError(t, h.service.Reload(ctx))

	f, err := h.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	require.Len(t, f.DetailedServices, 1)
	wt := f.DetailedServices[0].WaitTime
	require.NotNil(t, wt)
	require.NotNil(t, wt.New)
	require.NotNil(t, wt.Established)
	assert.True(t, wt.New.Equal(dec("34.4").Decimal))
	assert.True(t, wt.Established.Equal(dec("3.25").Decimal))
	assert.Equal(t, "2020-03-09", wt.EffectiveDate)

	// the back-filled wait time is written back to storage
	o, err := h.service.GetOverlay(ctx, "vha_402")
	require.NoError(t, err)
	require.NotNil(t, o.DetailedServices[0].WaitTime)
	assert.Equal(t, "2020-03-09", o.DetailedServices[0].WaitTime.EffectiveDate)
}

func TestReload_PublishesEvents(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	h := newHarness(t, func(cfg *services.CoordinatorConfig) { cfg.Events = bus })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, providers.EventChannelReloads)
	require.NoError(t, err)

	require.NoError(t, h.service.Reload(ctx))
	event := <-ch
	assert.Equal(t, entities.ReloadEventPublished, event.EventType)
	assert.Equal(t, 2, event.FacilityCount)
	assert.Equal(t, h.service.Status().ReloadID, event.ReloadID)

	h.registry.fail(errors.New("down"))
	require.Error(t, h.service.Reload(ctx))
	event = <-ch
	assert.Equal(t, entities.ReloadEventFailed, event.EventType)
	assert.Contains(t, event.Error, "down")
}

func TestWarmStart(t *testing.T) {
	cache := &memCache{data: map[string][]byte{}}
	withCache := func(cfg *services.CoordinatorConfig) {
		cfg.Cache = services.NewSnapshotCache(cache, time.Hour)
	}
	ctx := context.Background()

	first := newHarness(t, withCache)
	require.NoError(t, first.service.Reload(ctx))

	second := newHarness(t, withCache)
	loaded, err := second.coordinator.WarmStart(ctx)
	require.NoError(t, err)
	require.True(t, loaded)

	f, err := second.service.GetFacility(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, "Togus VA Medical Center", f.Name)
	assert.Equal(t, 2, second.service.Status().Facilities)
	assert.Equal(t, services.StateIdle, second.service.Status().State)

	// a published snapshot is never replaced by the cache
	loaded, err = first.coordinator.WarmStart(ctx)
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestWarmStart_CacheMiss(t *testing.T) {
	cache := new(mockCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, providers.ErrCacheMiss).Once()

	h := newHarness(t, func(cfg *services.CoordinatorConfig) {
		cfg.Cache = services.NewSnapshotCache(cache, 0)
	})
	loaded, err := h.coordinator.WarmStart(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Nil(t, h.coordinator.Snapshot())
	cache.AssertExpectations(t)
}

func TestReload_CacheFailureDoesNotFailReload(t *testing.T) {
	cache := new(mockCache)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, 60).Return(errors.New("redis down"))

	h := newHarness(t, func(cfg *services.CoordinatorConfig) {
		cfg.Cache = services.NewSnapshotCache(cache, time.Minute)
	})
	require.NoError(t, h.service.Reload(context.Background()))
	cache.AssertCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, 60)
}

type fakeLock struct {
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

func (l *fakeLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired.Add(1)
	return func(context.Context) error {
		l.released.Add(1)
		return nil
	}, nil
}

func TestReload_UsesLock(t *testing.T) {
	lock := &fakeLock{}
	h := newHarness(t, func(cfg *services.CoordinatorConfig) { cfg.Lock = lock })

	require.NoError(t, h.service.Reload(context.Background()))
	assert.EqualValues(t, 1, lock.acquired.Load())
	assert.EqualValues(t, 1, lock.released.Load())

	lock.err = apperrors.NewConflictError("reload lock held elsewhere")
	err := h.service.Reload(context.Background())
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 1, h.registry.reloads, "sources are not touched without the lock")
}

func TestRun_StopsWithContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.coordinator.Run(ctx, time.Hour)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return h.service.Status().State == services.StatePublished
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
