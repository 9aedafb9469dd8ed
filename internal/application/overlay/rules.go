package overlay

import (
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// Rule layers one part of an overlay onto a facility. Rules run in order
// and only ever see facilities that have an overlay.
type Rule struct {
	Name  string
	Apply func(f *entities.Facility, o *entities.Overlay, names *catalog.NameAggregator)
}

// DefaultRules is the merge precedence, applied top-down
var DefaultRules = []Rule{
	{Name: "operatingStatus", Apply: OperatingStatusRule},
	{Name: "detailedServices", Apply: DetailedServicesRule},
	{Name: "healthConnectPhone", Apply: HealthConnectPhoneRule},
	{Name: "healthCareSystem", Apply: HealthCareSystemRule},
}

// OperatingStatusRule replaces the collected status with the overlay's
func OperatingStatusRule(f *entities.Facility, o *entities.Overlay, _ *catalog.NameAggregator) {
	if o.OperatingStatus != nil {
		f.OperatingStatus = o.OperatingStatus.Clone()
	}
}

// DetailedServicesRule publishes the overlay's detailed services and unions
// them into the service list. On an id collision the overlay's entry wins.
func DetailedServicesRule(f *entities.Facility, o *entities.Overlay, names *catalog.NameAggregator) {
	if len(o.DetailedServices) == 0 {
		return
	}
	f.DetailedServices = make([]entities.DetailedService, 0, len(o.DetailedServices))
	for _, ds := range o.DetailedServices {
		id := ds.ServiceInfo.ServiceID
		if id == catalog.InvalidID {
			continue
		}
		ds = ds.Clone()
		if name, ok := names.Name(id); ok {
			ds.ServiceInfo.Name = name
		}
		f.DetailedServices = append(f.DetailedServices, ds)
		f.Services.Add(entities.Service{
			ServiceID: id,
			Name:      ds.ServiceInfo.Name,
			Category:  ds.ServiceInfo.ServiceType,
			Source:    entities.SourceCMS,
		})
	}
	f.Services.Sort()
}

// HealthConnectPhoneRule sets only the health connect number
func HealthConnectPhoneRule(f *entities.Facility, o *entities.Overlay, _ *catalog.NameAggregator) {
	if o.HealthCareSystem != nil && o.HealthCareSystem.HealthConnectPhone != "" {
		f.Phone.HealthConnect = o.HealthCareSystem.HealthConnectPhone
	}
}

// HealthCareSystemRule copies the health system metadata
func HealthCareSystemRule(f *entities.Facility, o *entities.Overlay, _ *catalog.NameAggregator) {
	if o.HealthCareSystem != nil {
		hcs := *o.HealthCareSystem
		f.HealthCareSystem = &hcs
	}
}
