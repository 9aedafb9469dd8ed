package entities

import "time"

// Overlay is an operator-supplied sparse patch keyed by facility id.
// A nil field means "unset" and never clobbers the facility.
type Overlay struct {
	ID               string            `json:"id" validate:"required,max=32"`
	OperatingStatus  *OperatingStatus  `json:"operatingStatus,omitempty" validate:"omitempty"`
	DetailedServices []DetailedService `json:"detailedServices,omitempty" validate:"omitempty,dive"`
	HealthCareSystem *HealthCareSystem `json:"healthCareSystem,omitempty" validate:"omitempty"`
}

// IsEmpty reports whether the overlay carries nothing
func (o *Overlay) IsEmpty() bool {
	return o.OperatingStatus == nil && len(o.DetailedServices) == 0 && o.HealthCareSystem == nil
}

// OverlayRecord is the persisted row. JSON columns are kept raw so that
// one corrupt column never hides the others.
type OverlayRecord struct {
	ID               string
	OperatingStatus  []byte
	DetailedServices []byte
	HealthCareSystem []byte
	Services         []string
	Version          int64
	UpdatedAt        time.Time
}

// IsEmpty reports whether every payload column is null
func (r *OverlayRecord) IsEmpty() bool {
	return len(r.OperatingStatus) == 0 && len(r.DetailedServices) == 0 && len(r.HealthCareSystem) == 0
}

// OverlayField selects what DeleteOverlay removes
type OverlayField string

const (
	OverlayFieldAll              OverlayField = "all"
	OverlayFieldOperatingStatus  OverlayField = "operatingStatus"
	OverlayFieldHealthCareSystem OverlayField = "healthCareSystem"
	OverlayFieldDetailedServices OverlayField = "detailedServices"
)

// Valid reports whether f is a known selector
func (f OverlayField) Valid() bool {
	switch f {
	case OverlayFieldAll, OverlayFieldOperatingStatus, OverlayFieldHealthCareSystem, OverlayFieldDetailedServices:
		return true
	}
	return false
}
