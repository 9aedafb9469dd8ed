package sources

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// RegistryTable is the read-only facility registry relation
const RegistryTable = "facility_registry"

// Text columns are COALESCEd so NULLs scan into plain strings.
var registryTextColumns = []string{
	"station_number", "facility_kind", "station_name", "classification_code", "feature_abbreviation",
	"address1", "address2", "address3", "city", "state", "zip",
	"mailing_address1", "mailing_address2", "mailing_city", "mailing_state", "mailing_zip",
	"main_phone", "fax", "pharmacy_phone", "after_hours_phone", "patient_advocate_phone",
	"mental_health_phone", "enrollment_coordinator_phone",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"active_status", "visn", "parent_station_number", "services",
}

var registryNullableColumns = []string{"latitude", "longitude", "mobile"}

// RegistryFetch reads every registry row through db
func RegistryFetch(db *goqu.Database) FetchFunc[entities.RegistryRecord] {
	cols := make([]interface{}, 0, len(registryTextColumns)+len(registryNullableColumns))
	for _, c := range registryTextColumns {
		cols = append(cols, goqu.COALESCE(goqu.C(c), "").As(c))
	}
	for _, c := range registryNullableColumns {
		cols = append(cols, goqu.C(c))
	}

	return func(ctx context.Context) ([]entities.RegistryRecord, error) {
		var rows []entities.RegistryRecord
		err := db.From(RegistryTable).
			Select(cols...).
			Order(goqu.C("facility_kind").Asc(), goqu.C("station_number").Asc()).
			ScanStructsContext(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", RegistryTable, err)
		}
		return rows, nil
	}
}

// RegistryKey keys registry rows by their canonical facility id
func RegistryKey(r entities.RegistryRecord) string {
	return r.FacilityID()
}

// RegistryServiceNames lists the service names a row declares
func RegistryServiceNames(r entities.RegistryRecord) []string {
	return utils.SplitServiceList(r.DeclaredServices)
}
