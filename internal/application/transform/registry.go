package transform

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// fromRegistry builds the fields every registry-backed category shares.
// It returns nil when the row has no identity.
func fromRegistry(rec entities.RegistryRecord, kind entities.RegistryKind, ftype entities.FacilityType) (*entities.Facility, error) {
	if rec.Kind != kind {
		return nil, fmt.Errorf("registry row %s is %q, not %q", rec.StationNumber, rec.Kind, kind)
	}
	id := rec.FacilityID()
	if id == "" {
		return nil, nil
	}

	name := utils.CollapseWhitespace(rec.StationName)
	if name == "" {
		return nil, fmt.Errorf("facility %s has no name", id)
	}
	if !rec.Latitude.Valid || !rec.Longitude.Valid {
		return nil, fmt.Errorf("facility %s has no coordinates", id)
	}
	if err := checkCoordinates(rec.Latitude.Float64, rec.Longitude.Float64); err != nil {
		return nil, fmt.Errorf("facility %s: %w", id, err)
	}

	f := &entities.Facility{
		ID:             id,
		Type:           ftype,
		Name:           name,
		Classification: classify(classifications[kind], rec.ClassificationCode, rec.FeatureAbbreviation),
		Latitude:       rec.Latitude.Float64,
		Longitude:      rec.Longitude.Float64,
		Address: entities.Addresses{
			Physical: address(rec.Address1, rec.Address2, rec.Address3, rec.City, rec.State, rec.Zip),
			Mailing:  address(rec.MailingAddress1, rec.MailingAddress2, "", rec.MailingCity, rec.MailingState, rec.MailingZip),
		},
		Phone: entities.Phone{
			Main:                  normalizePhone(rec.MainPhone),
			Fax:                   normalizePhone(rec.Fax),
			Pharmacy:              normalizePhone(rec.PharmacyPhone),
			AfterHours:            normalizePhone(rec.AfterHoursPhone),
			PatientAdvocate:       normalizePhone(rec.PatientAdvocatePhone),
			MentalHealthClinic:    normalizePhone(rec.MentalHealthPhone),
			EnrollmentCoordinator: normalizePhone(rec.EnrollmentPhone),
		},
		Hours:        hours(rec.Monday, rec.Tuesday, rec.Wednesday, rec.Thursday, rec.Friday, rec.Saturday, rec.Sunday),
		ActiveStatus: strings.ToUpper(strings.TrimSpace(rec.ActiveStatus)),
		Visn:         strings.TrimSpace(rec.Visn),
	}
	f.OperatingStatus = entities.ComputedStatus(f.ActiveStatus)
	if rec.Mobile.Valid {
		mobile := rec.Mobile.Bool
		f.Mobile = &mobile
	}
	return f, nil
}

// serviceAdder resolves names against the catalog and adds what it recognizes
type serviceAdder struct {
	catalog *catalog.Catalog
	logger  zerolog.Logger
	f       *entities.Facility
}

func (a serviceAdder) addName(name string, src entities.ServiceSource) (catalog.Entry, bool) {
	r := a.catalog.ResolveByName(name)
	if !r.Recognized {
		a.logger.Debug().Str("facility_id", a.f.ID).Str("service_name", name).Msg("unrecognized service name")
		return catalog.Entry{}, false
	}
	a.addEntry(r.Entry, src)
	return r.Entry, true
}

func (a serviceAdder) addID(id string, src entities.ServiceSource) {
	if r := a.catalog.ResolveByID(id); r.Recognized {
		a.addEntry(r.Entry, src)
	}
}

func (a serviceAdder) addEntry(e catalog.Entry, src entities.ServiceSource) {
	a.f.Services.Add(entities.Service{ServiceID: e.ID, Name: e.Name, Category: e.Category, Source: src})
}

func (a serviceAdder) addDeclared(raw string) {
	for _, name := range utils.SplitServiceList(raw) {
		a.addName(name, entities.SourceInternal)
	}
}
