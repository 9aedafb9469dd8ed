package sources

import (
	"context"
	"testing"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/sqlite"
	"github.com/zatekoja/facilitycollector/pkg/config"
)

const registryDDL = `CREATE TABLE facility_registry (
	station_number TEXT, facility_kind TEXT, station_name TEXT, classification_code TEXT, feature_abbreviation TEXT,
	latitude REAL, longitude REAL,
	address1 TEXT, address2 TEXT, address3 TEXT, city TEXT, state TEXT, zip TEXT,
	mailing_address1 TEXT, mailing_address2 TEXT, mailing_city TEXT, mailing_state TEXT, mailing_zip TEXT,
	main_phone TEXT, fax TEXT, pharmacy_phone TEXT, after_hours_phone TEXT, patient_advocate_phone TEXT,
	mental_health_phone TEXT, enrollment_coordinator_phone TEXT,
	monday TEXT, tuesday TEXT, wednesday TEXT, thursday TEXT, friday TEXT, saturday TEXT, sunday TEXT,
	active_status TEXT, visn TEXT, parent_station_number TEXT, mobile INTEGER, services TEXT
)`

func newRegistryDB(t *testing.T) *goqu.Database {
	t.Helper()
	client, err := sqlite.NewClient(context.Background(), ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	_, err = client.DB().Exec(registryDDL)
	require.NoError(t, err)
	return goqu.New("sqlite3", client.DB())
}

func TestRegistryFetch_ScansRowsWithNulls(t *testing.T) {
	db := newRegistryDB(t)
	_, err := db.Exec(`INSERT INTO facility_registry
		(station_number, facility_kind, station_name, classification_code, latitude, longitude, city, state, active_status, mobile, services)
		VALUES
		('402', 'health', 'Togus VA Medical Center', '1', 44.2799, -69.7113, 'Chelsea', 'ME', 'A', 0, NULL),
		('310e', 'benefits', 'Philadelphia Regional Office', NULL, 39.95, -75.16, NULL, 'PA', 'A', NULL, 'Pensions; HomelessAssistance'),
		('0101V', 'vetcenter', 'Boston Vet Center', NULL, NULL, NULL, 'Boston', 'MA', 'T', NULL, NULL)`)
	require.NoError(t, err)

	k := NewKeyed(config.SourceSpec{Name: config.SourceRegistry, Criticality: config.Critical}, RegistryFetch(db), RegistryKey, zerolog.Nop()).
		WithServiceNames(RegistryServiceNames)
	require.NoError(t, k.Reload(context.Background()))

	assert.Equal(t, []string{"vba_310e", "vc_0101V", "vha_402"}, k.Keys())

	togus := k.Lookup("vha_402")[0]
	assert.Equal(t, entities.RegistryKindHealth, togus.Kind)
	assert.True(t, togus.Latitude.Valid)
	assert.InDelta(t, 44.2799, togus.Latitude.Float64, 1e-9)
	assert.True(t, togus.Mobile.Valid)
	assert.False(t, togus.Mobile.Bool)
	assert.Empty(t, togus.DeclaredServices)

	vba := k.Lookup("vba_310e")[0]
	assert.Empty(t, vba.City)
	assert.False(t, vba.Mobile.Valid)

	vc := k.Lookup("vc_0101V")[0]
	assert.False(t, vc.Latitude.Valid)
	assert.Equal(t, entities.ActiveStatusTemporary, vc.ActiveStatus)

	assert.Equal(t, []string{"HomelessAssistance", "Pensions"}, k.ServiceNamesObserved())
}

func TestRegistryFetch_EmptyTableFailsCriticalReload(t *testing.T) {
	db := newRegistryDB(t)
	k := NewKeyed(config.SourceSpec{Name: config.SourceRegistry, Criticality: config.Critical}, RegistryFetch(db), RegistryKey, zerolog.Nop())

	assert.Error(t, k.Reload(context.Background()))
}
