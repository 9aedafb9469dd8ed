package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/sqlite"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

func newTestOverlayAdapter(t *testing.T) *OverlayAdapter {
	t.Helper()
	client, err := sqlite.NewClient(context.Background(), ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	adapter, err := NewOverlayAdapter(client.DB(), DialectSQLite)
	require.NoError(t, err)
	adapter.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, adapter.EnsureSchema(context.Background()))
	return adapter
}

func TestOverlayAdapter_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	a := newTestOverlayAdapter(t)

	rec := &entities.OverlayRecord{
		ID:              "vha_402",
		OperatingStatus: []byte(`{"code":"CLOSED"}`),
		Services:        []string{"Cardiology", "Audiology"},
	}
	require.NoError(t, a.Save(ctx, rec, 0))
	assert.Equal(t, int64(1), rec.Version)

	got, err := a.Get(ctx, "vha_402")
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"CLOSED"}`, string(got.OperatingStatus))
	assert.Nil(t, got.DetailedServices)
	assert.Nil(t, got.HealthCareSystem)
	assert.Equal(t, []string{"Cardiology", "Audiology"}, got.Services)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), got.UpdatedAt)
}

func TestOverlayAdapter_GetMissing(t *testing.T) {
	a := newTestOverlayAdapter(t)

	_, err := a.Get(context.Background(), "vha_404")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOverlayAdapter_VersionConflicts(t *testing.T) {
	ctx := context.Background()
	a := newTestOverlayAdapter(t)

	require.NoError(t, a.Save(ctx, &entities.OverlayRecord{ID: "vba_9999", HealthCareSystem: []byte(`{"name":"A"}`)}, 0))

	// second insert loses
	err := a.Save(ctx, &entities.OverlayRecord{ID: "vba_9999"}, 0)
	assert.True(t, apperrors.IsConflict(err))

	// stale update loses
	err = a.Save(ctx, &entities.OverlayRecord{ID: "vba_9999"}, 7)
	assert.True(t, apperrors.IsConflict(err))

	update := &entities.OverlayRecord{ID: "vba_9999", HealthCareSystem: []byte(`{"name":"B"}`)}
	require.NoError(t, a.Save(ctx, update, 1))
	assert.Equal(t, int64(2), update.Version)

	got, err := a.Get(ctx, "vba_9999")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"B"}`, string(got.HealthCareSystem))
	assert.Empty(t, got.Services)

	err = a.Delete(ctx, "vba_9999", 1)
	assert.True(t, apperrors.IsConflict(err))
	require.NoError(t, a.Delete(ctx, "vba_9999", 2))

	_, err = a.Get(ctx, "vba_9999")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOverlayAdapter_ListOrdersByID(t *testing.T) {
	ctx := context.Background()
	a := newTestOverlayAdapter(t)

	for _, id := range []string{"vha_405", "nca_915", "vha_402"} {
		require.NoError(t, a.Save(ctx, &entities.OverlayRecord{ID: id, OperatingStatus: []byte(`{"code":"NORMAL"}`)}, 0))
	}

	rows, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "nca_915", rows[0].ID)
	assert.Equal(t, "vha_402", rows[1].ID)
	assert.Equal(t, "vha_405", rows[2].ID)
}

func TestOverlayAdapter_CorruptPayloadIsReturnedRaw(t *testing.T) {
	ctx := context.Background()
	a := newTestOverlayAdapter(t)

	require.NoError(t, a.Save(ctx, &entities.OverlayRecord{ID: "vha_402", DetailedServices: []byte(`[{"serviceInfo":`)}, 0))

	got, err := a.Get(ctx, "vha_402")
	require.NoError(t, err)
	assert.Equal(t, `[{"serviceInfo":`, string(got.DetailedServices))
}

func TestNewOverlayAdapter_RejectsUnknownDialect(t *testing.T) {
	_, err := NewOverlayAdapter(nil, "mysql")
	assert.True(t, apperrors.IsValidation(err))
}

func TestServiceSet_Scan(t *testing.T) {
	testCases := []struct {
		name     string
		src      interface{}
		expected []string
	}{
		{"null", nil, nil},
		{"json", `["Audiology","Cardiology"]`, []string{"Audiology", "Cardiology"}},
		{"postgres array", []byte(`{Audiology,"Primary Care"}`), []string{"Audiology", "Primary Care"}},
		{"empty", "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var s serviceSet
			require.NoError(t, s.Scan(tc.src))
			assert.Equal(t, tc.expected, []string(s))
		})
	}

	var s serviceSet
	assert.Error(t, s.Scan(42))
}
