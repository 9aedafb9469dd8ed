package entities

// OperatingStatusCode is the coarse operating state of a facility
type OperatingStatusCode string

const (
	StatusNormal  OperatingStatusCode = "NORMAL"
	StatusNotice  OperatingStatusCode = "NOTICE"
	StatusLimited OperatingStatusCode = "LIMITED"
	StatusClosed  OperatingStatusCode = "CLOSED"
)

// MaxStatusInfoLength bounds OperatingStatus.AdditionalInfo
const MaxStatusInfoLength = 300

// OperatingStatus is the value object published on every facility
type OperatingStatus struct {
	Code           OperatingStatusCode  `json:"code" validate:"required,oneof=NORMAL NOTICE LIMITED CLOSED"`
	AdditionalInfo string               `json:"additionalInfo,omitempty" validate:"max=300"`
	Supplemental   []SupplementalStatus `json:"supplementalStatus,omitempty" validate:"dive"`
}

// SupplementalStatus is an extra status tag such as COVID_LOW
type SupplementalStatus struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
}

// IsZero reports whether the status was never set
func (s OperatingStatus) IsZero() bool {
	return s.Code == "" && s.AdditionalInfo == "" && len(s.Supplemental) == 0
}

// Clone copies the supplemental slice
func (s OperatingStatus) Clone() OperatingStatus {
	if s.Supplemental != nil {
		s.Supplemental = append([]SupplementalStatus(nil), s.Supplemental...)
	}
	return s
}

// ComputedStatus derives the baseline status from the registry active flag.
// Only the temporarily-closed flag maps to CLOSED.
func ComputedStatus(activeStatus string) OperatingStatus {
	if activeStatus == ActiveStatusTemporary {
		return OperatingStatus{Code: StatusClosed}
	}
	return OperatingStatus{Code: StatusNormal}
}
