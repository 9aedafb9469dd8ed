package entities

import (
	"database/sql"
	"encoding/xml"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Raw upstream records as delivered by the source adapters. Transformers
// turn these into Facility values.

// RegistryKind is the facility category column of the registry
type RegistryKind string

const (
	RegistryKindHealth    RegistryKind = "health"
	RegistryKindBenefits  RegistryKind = "benefits"
	RegistryKindVetCenter RegistryKind = "vetcenter"
)

// RegistryRecord is one row of the facility registry
type RegistryRecord struct {
	StationNumber        string          `db:"station_number"`
	Kind                 RegistryKind    `db:"facility_kind"`
	StationName          string          `db:"station_name"`
	ClassificationCode   string          `db:"classification_code"`
	FeatureAbbreviation  string          `db:"feature_abbreviation"`
	Latitude             sql.NullFloat64 `db:"latitude"`
	Longitude            sql.NullFloat64 `db:"longitude"`
	Address1             string          `db:"address1"`
	Address2             string          `db:"address2"`
	Address3             string          `db:"address3"`
	City                 string          `db:"city"`
	State                string          `db:"state"`
	Zip                  string          `db:"zip"`
	MailingAddress1      string          `db:"mailing_address1"`
	MailingAddress2      string          `db:"mailing_address2"`
	MailingCity          string          `db:"mailing_city"`
	MailingState         string          `db:"mailing_state"`
	MailingZip           string          `db:"mailing_zip"`
	MainPhone            string          `db:"main_phone"`
	Fax                  string          `db:"fax"`
	PharmacyPhone        string          `db:"pharmacy_phone"`
	AfterHoursPhone      string          `db:"after_hours_phone"`
	PatientAdvocatePhone string          `db:"patient_advocate_phone"`
	MentalHealthPhone    string          `db:"mental_health_phone"`
	EnrollmentPhone      string          `db:"enrollment_coordinator_phone"`
	Monday               string          `db:"monday"`
	Tuesday              string          `db:"tuesday"`
	Wednesday            string          `db:"wednesday"`
	Thursday             string          `db:"thursday"`
	Friday               string          `db:"friday"`
	Saturday             string          `db:"saturday"`
	Sunday               string          `db:"sunday"`
	ActiveStatus         string          `db:"active_status"`
	Visn                 string          `db:"visn"`
	ParentStationNumber  string          `db:"parent_station_number"`
	Mobile               sql.NullBool    `db:"mobile"`
	DeclaredServices     string          `db:"services"`
}

// WaitTimeRecord is one entry of the ATC patient wait-time feed
type WaitTimeRecord struct {
	FacilityID      string              `json:"facilityID"`
	AppointmentType string              `json:"ApptTypeName"`
	NewWaitTime     decimal.NullDecimal `json:"newWaitTime"`
	EstWaitTime     decimal.NullDecimal `json:"estWaitTime"`
	SliceEndDate    string              `json:"sliceEndDate"`
}

// SatisfactionRecord is one entry of the ATC patient satisfaction feed
type SatisfactionRecord struct {
	FacilityID   string              `json:"facilityID"`
	SurveyType   string              `json:"ApptTypeName"`
	Score        decimal.NullDecimal `json:"SHEPScore"`
	SliceEndDate string              `json:"sliceEndDate"`
}

// CemeteryRecord is one <cem> element of the cemetery XML feeds
type CemeteryRecord struct {
	XMLName      xml.Name `xml:"cem"`
	Station      string   `xml:"station"`
	Name         string   `xml:"cem_name"`
	CemeteryType string   `xml:"cem_type"`
	URL          string   `xml:"cem_url"`
	Address1     string   `xml:"address_line1"`
	Address2     string   `xml:"address_line2"`
	Address3     string   `xml:"address_line3"`
	City         string   `xml:"city"`
	State        string   `xml:"state"`
	Zip          string   `xml:"zip"`
	MailLine1    string   `xml:"mail_line1"`
	MailLine2    string   `xml:"mail_line2"`
	MailCity     string   `xml:"mail_city"`
	MailState    string   `xml:"mail_state"`
	MailZip      string   `xml:"mail_zip"`
	Phone        string   `xml:"phone"`
	Fax          string   `xml:"fax"`
	Latitude     string   `xml:"lat"`
	Longitude    string   `xml:"long"`
	Hours        string   `xml:"hours"`

	// StateOwned is set by the adapter, not the feed.
	StateOwned bool `xml:"-"`
}

// WebsiteRecord maps a facility id to its public web page
type WebsiteRecord struct {
	FacilityID string
	URL        string
}

// InclusionRecord marks a facility as offering a listed service
type InclusionRecord struct {
	FacilityID string
}

// FacilityID derives the canonical id, or "" when the row has no station
// number or an unknown kind.
func (r RegistryRecord) FacilityID() string {
	station := strings.TrimSpace(r.StationNumber)
	if station == "" {
		return ""
	}
	switch r.Kind {
	case RegistryKindHealth:
		return PrefixHealth + station
	case RegistryKindBenefits:
		return PrefixBenefits + station
	case RegistryKindVetCenter:
		return PrefixVetCenter + station
	}
	return ""
}

// FacilityID derives the canonical id of a cemetery
func (r CemeteryRecord) FacilityID() string {
	station := strings.TrimSpace(r.Station)
	if station == "" {
		return ""
	}
	if r.StateOwned {
		return PrefixStateCemetery + station
	}
	return PrefixCemetery + station
}

// ATCFacilityID maps an ATC station id onto a health facility id
func ATCFacilityID(station string) string {
	station = strings.TrimSpace(station)
	if station == "" {
		return ""
	}
	return PrefixHealth + station
}

// DateOnly reduces an ATC slice timestamp such as "2020-03-09T00:00:00" to
// "2020-03-09". Values without a leading date are returned trimmed.
func DateOnly(ts string) string {
	ts = strings.TrimSpace(ts)
	if len(ts) >= 10 {
		if _, err := time.Parse("2006-01-02", ts[:10]); err == nil {
			return ts[:10]
		}
	}
	return ts
}

// WaitTime converts the row into the canonical wait-time triple
func (r WaitTimeRecord) WaitTime() PatientWaitTime {
	return PatientWaitTime{
		New:           nullDecimal(r.NewWaitTime),
		Established:   nullDecimal(r.EstWaitTime),
		EffectiveDate: DateOnly(r.SliceEndDate),
	}
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
