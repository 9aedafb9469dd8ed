package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FacilityType distinguishes the four facility categories
type FacilityType string

const (
	FacilityTypeHealth    FacilityType = "va_health_facility"
	FacilityTypeBenefits  FacilityType = "va_benefits_facility"
	FacilityTypeCemetery  FacilityType = "va_cemetery"
	FacilityTypeVetCenter FacilityType = "vet_center"
)

// Facility id prefixes. State cemeteries share the cemetery type but carry
// their own prefix so their station numbers cannot collide with national ones.
const (
	PrefixHealth        = "vha_"
	PrefixBenefits      = "vba_"
	PrefixCemetery      = "nca_"
	PrefixStateCemetery = "nca_s"
	PrefixVetCenter     = "vc_"
)

// Facility is the canonical record for one VA location
type Facility struct {
	ID               string            `json:"id"`
	Type             FacilityType      `json:"facilityType"`
	Name             string            `json:"name"`
	Classification   string            `json:"classification,omitempty"`
	Website          string            `json:"website,omitempty"`
	Latitude         float64           `json:"lat"`
	Longitude        float64           `json:"long"`
	Address          Addresses         `json:"address"`
	Phone            Phone             `json:"phone"`
	Hours            Hours             `json:"hours"`
	OperatingStatus  OperatingStatus   `json:"operatingStatus"`
	Services         Services          `json:"services"`
	DetailedServices []DetailedService `json:"detailedServices,omitempty"`
	Satisfaction     *Satisfaction     `json:"satisfaction,omitempty"`
	WaitTimes        *WaitTimes        `json:"waitTimes,omitempty"`
	Mobile           *bool             `json:"mobile,omitempty"`
	ActiveStatus     string            `json:"activeStatus,omitempty"`
	Visn             string            `json:"visn,omitempty"`
	ParentID         string            `json:"parentId,omitempty"`
	HealthCareSystem *HealthCareSystem `json:"healthCareSystem,omitempty"`
}

// Active status codes as carried by the registry
const (
	ActiveStatusActive    = "A"
	ActiveStatusTemporary = "T"
)

// Address is a postal address
type Address struct {
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	Address3 string `json:"address3,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

// IsEmpty reports whether no field is set
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Addresses pairs the physical and mailing address
type Addresses struct {
	Physical *Address `json:"physical,omitempty"`
	Mailing  *Address `json:"mailing,omitempty"`
}

// Phone is the bundle of published phone numbers
type Phone struct {
	Main                  string `json:"main,omitempty"`
	Fax                   string `json:"fax,omitempty"`
	Pharmacy              string `json:"pharmacy,omitempty"`
	AfterHours            string `json:"afterHours,omitempty"`
	PatientAdvocate       string `json:"patientAdvocate,omitempty"`
	MentalHealthClinic    string `json:"mentalHealthClinic,omitempty"`
	EnrollmentCoordinator string `json:"enrollmentCoordinator,omitempty"`
	HealthConnect         string `json:"healthConnect,omitempty"`
}

// Hours holds free-text opening hours per weekday
type Hours struct {
	Monday    string `json:"monday,omitempty"`
	Tuesday   string `json:"tuesday,omitempty"`
	Wednesday string `json:"wednesday,omitempty"`
	Thursday  string `json:"thursday,omitempty"`
	Friday    string `json:"friday,omitempty"`
	Saturday  string `json:"saturday,omitempty"`
	Sunday    string `json:"sunday,omitempty"`
}

// IsEmpty reports whether no day is set
func (h Hours) IsEmpty() bool {
	return h == Hours{}
}

// Satisfaction holds patient satisfaction scores from the ATC feed
type Satisfaction struct {
	PrimaryCareUrgent    *decimal.Decimal `json:"primaryCareUrgent,omitempty"`
	PrimaryCareRoutine   *decimal.Decimal `json:"primaryCareRoutine,omitempty"`
	SpecialtyCareUrgent  *decimal.Decimal `json:"specialtyCareUrgent,omitempty"`
	SpecialtyCareRoutine *decimal.Decimal `json:"specialtyCareRoutine,omitempty"`
	EffectiveDate        string           `json:"effectiveDate,omitempty"`
}

// PatientWaitTime is a wait in days for new and established patients
type PatientWaitTime struct {
	New           *decimal.Decimal `json:"new,omitempty"`
	Established   *decimal.Decimal `json:"established,omitempty"`
	EffectiveDate string           `json:"effectiveDate,omitempty"`
}

// ServiceWaitTime is a wait time attributed to one catalog service
type ServiceWaitTime struct {
	ServiceID string `json:"serviceId"`
	PatientWaitTime
}

// WaitTimes summarizes the ATC wait-time feed for one facility
type WaitTimes struct {
	Health        []ServiceWaitTime `json:"health"`
	EffectiveDate string            `json:"effectiveDate,omitempty"`
}

// HealthCareSystem is operator-supplied health system metadata
type HealthCareSystem struct {
	Name               string `json:"name,omitempty" validate:"max=200"`
	URL                string `json:"url,omitempty" validate:"omitempty,url"`
	CovidURL           string `json:"covidUrl,omitempty" validate:"omitempty,url"`
	HealthConnectPhone string `json:"healthConnectPhone,omitempty" validate:"max=40"`
}

// Clone returns a copy that shares no mutable state with f
func (f *Facility) Clone() *Facility {
	if f == nil {
		return nil
	}
	c := *f
	if f.Address.Physical != nil {
		p := *f.Address.Physical
		c.Address.Physical = &p
	}
	if f.Address.Mailing != nil {
		m := *f.Address.Mailing
		c.Address.Mailing = &m
	}
	c.OperatingStatus = f.OperatingStatus.Clone()
	c.Services = f.Services.Clone()
	if f.DetailedServices != nil {
		c.DetailedServices = make([]DetailedService, len(f.DetailedServices))
		for i, ds := range f.DetailedServices {
			c.DetailedServices[i] = ds.Clone()
		}
	}
	if f.Satisfaction != nil {
		s := *f.Satisfaction
		c.Satisfaction = &s
	}
	if f.WaitTimes != nil {
		w := *f.WaitTimes
		w.Health = append([]ServiceWaitTime(nil), f.WaitTimes.Health...)
		c.WaitTimes = &w
	}
	if f.Mobile != nil {
		m := *f.Mobile
		c.Mobile = &m
	}
	if f.HealthCareSystem != nil {
		h := *f.HealthCareSystem
		c.HealthCareSystem = &h
	}
	return &c
}

// SortFacilities orders facilities by id
func SortFacilities(fs []*Facility) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
}
