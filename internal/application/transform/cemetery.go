package transform

import (
	"fmt"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// Cemetery transforms rows of both the national and the state cemetery feed
type Cemetery struct {
	Websites Lookup[entities.WebsiteRecord]
}

var _ Transformer[entities.CemeteryRecord] = (*Cemetery)(nil)

// Transform builds one cemetery. The feeds carry no active flag, so the
// baseline status is always NORMAL.
func (t *Cemetery) Transform(rec entities.CemeteryRecord) (*entities.Facility, error) {
	id := rec.FacilityID()
	if id == "" {
		return nil, nil
	}
	name := utils.CollapseWhitespace(rec.Name)
	if name == "" {
		return nil, fmt.Errorf("cemetery %s has no name", id)
	}
	lat, err := parseCoordinate(rec.Latitude, 90)
	if err != nil {
		return nil, fmt.Errorf("cemetery %s latitude: %w", id, err)
	}
	long, err := parseCoordinate(rec.Longitude, 180)
	if err != nil {
		return nil, fmt.Errorf("cemetery %s longitude: %w", id, err)
	}

	code := rec.CemeteryType
	if code == "" && rec.StateOwned {
		code = "S"
	}
	open := utils.CollapseWhitespace(rec.Hours)

	f := &entities.Facility{
		ID:             id,
		Type:           entities.FacilityTypeCemetery,
		Name:           name,
		Classification: classify(cemeteryClassifications, code, ""),
		Website:        utils.CollapseWhitespace(rec.URL),
		Latitude:       lat,
		Longitude:      long,
		Address: entities.Addresses{
			Physical: address(rec.Address1, rec.Address2, rec.Address3, rec.City, rec.State, rec.Zip),
			Mailing:  address(rec.MailLine1, rec.MailLine2, "", rec.MailCity, rec.MailState, rec.MailZip),
		},
		Phone: entities.Phone{
			Main: normalizePhone(rec.Phone),
			Fax:  normalizePhone(rec.Fax),
		},
		Hours:           hours(open, open, open, open, open, open, open),
		OperatingStatus: entities.ComputedStatus(entities.ActiveStatusActive),
	}
	if f.Website == "" {
		f.Website = website(t.Websites, id)
	}
	return f, nil
}
