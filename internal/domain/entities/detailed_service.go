package entities

// ServiceInfo is the canonical identity of a detailed service
type ServiceInfo struct {
	ServiceID   string          `json:"serviceId"`
	Name        string          `json:"name"`
	ServiceType ServiceCategory `json:"serviceType,omitempty"`
	Source      ServiceSource   `json:"source,omitempty"`
}

// DetailedService is an overlay-only service description. WaitTime is
// recomputed from the wait-time feed on every reload.
type DetailedService struct {
	ServiceInfo               ServiceInfo        `json:"serviceInfo"`
	Path                      string             `json:"path,omitempty"`
	AppointmentLeadIn         string             `json:"appointmentLeadIn,omitempty" validate:"max=1000"`
	AppointmentPhones         []AppointmentPhone `json:"appointmentPhones,omitempty" validate:"dive"`
	OnlineSchedulingAvailable string             `json:"onlineSchedulingAvailable,omitempty"`
	ReferralRequired          string             `json:"referralRequired,omitempty"`
	WalkInsAccepted           string             `json:"walkInsAccepted,omitempty"`
	ServiceLocations          []ServiceLocation  `json:"serviceLocations,omitempty" validate:"dive"`
	WaitTime                  *PatientWaitTime   `json:"waitTime,omitempty"`
}

// AppointmentPhone is a labelled scheduling number
type AppointmentPhone struct {
	Type      string `json:"type,omitempty"`
	Label     string `json:"label,omitempty"`
	Number    string `json:"number" validate:"required,max=40"`
	Extension string `json:"extension,omitempty"`
}

// EmailContact is a labelled address
type EmailContact struct {
	Address string `json:"emailAddress" validate:"required,email"`
	Label   string `json:"emailLabel,omitempty"`
}

// ServiceLocation is a physical place where a detailed service is offered
type ServiceLocation struct {
	Address             *Address           `json:"serviceLocationAddress,omitempty"`
	Phones              []AppointmentPhone `json:"appointmentPhones,omitempty" validate:"dive"`
	EmailContacts       []EmailContact     `json:"emailContacts,omitempty" validate:"dive"`
	Hours               *Hours             `json:"facilityServiceHours,omitempty"`
	AdditionalHoursInfo string             `json:"additionalHoursInfo,omitempty"`
}

// Clone copies every nested slice and pointer
func (d DetailedService) Clone() DetailedService {
	if d.AppointmentPhones != nil {
		d.AppointmentPhones = append([]AppointmentPhone(nil), d.AppointmentPhones...)
	}
	if d.ServiceLocations != nil {
		locs := make([]ServiceLocation, len(d.ServiceLocations))
		for i, l := range d.ServiceLocations {
			if l.Address != nil {
				a := *l.Address
				l.Address = &a
			}
			if l.Hours != nil {
				h := *l.Hours
				l.Hours = &h
			}
			if l.Phones != nil {
				l.Phones = append([]AppointmentPhone(nil), l.Phones...)
			}
			if l.EmailContacts != nil {
				l.EmailContacts = append([]EmailContact(nil), l.EmailContacts...)
			}
			locs[i] = l
		}
		d.ServiceLocations = locs
	}
	if d.WaitTime != nil {
		w := *d.WaitTime
		d.WaitTime = &w
	}
	return d
}
