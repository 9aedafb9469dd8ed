package transform

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// Health transforms health registry rows, enriching them from the ATC feeds
// and the static inclusion lists.
type Health struct {
	Catalog          *catalog.Catalog
	WaitTimes        Lookup[entities.WaitTimeRecord]
	Satisfaction     Lookup[entities.SatisfactionRecord]
	Websites         Lookup[entities.WebsiteRecord]
	CaregiverSupport Set
	Orthopedics      Set
	Logger           zerolog.Logger
}

var _ Transformer[entities.RegistryRecord] = (*Health)(nil)

// Transform builds one health facility
func (t *Health) Transform(rec entities.RegistryRecord) (*entities.Facility, error) {
	f, err := fromRegistry(rec, entities.RegistryKindHealth, entities.FacilityTypeHealth)
	if f == nil || err != nil {
		return f, err
	}
	f.Website = website(t.Websites, f.ID)
	if parent := utils.CollapseWhitespace(rec.ParentStationNumber); parent != "" {
		f.ParentID = entities.PrefixHealth + parent
	}

	add := serviceAdder{catalog: t.Catalog, logger: t.Logger, f: f}

	var waits []entities.WaitTimeRecord
	if t.WaitTimes != nil {
		waits = t.WaitTimes.Lookup(f.ID)
	}
	var summary []entities.ServiceWaitTime
	effective := ""
	for _, w := range waits {
		e, ok := add.addName(w.AppointmentType, entities.SourceATC)
		if !ok || e.Category != entities.CategoryHealth {
			continue
		}
		wt := w.WaitTime()
		summary = append(summary, entities.ServiceWaitTime{ServiceID: e.ID, PatientWaitTime: wt})
		if wt.EffectiveDate > effective {
			effective = wt.EffectiveDate
		}
	}
	if len(summary) > 0 {
		sort.SliceStable(summary, func(i, j int) bool { return summary[i].ServiceID < summary[j].ServiceID })
		f.WaitTimes = &entities.WaitTimes{Health: dedupeWaitTimes(summary), EffectiveDate: effective}
	}

	if t.CaregiverSupport != nil && t.CaregiverSupport.Has(f.ID) {
		add.addID("caregiverSupport", entities.SourceInternal)
	}
	if t.Orthopedics != nil && t.Orthopedics.Has(f.ID) {
		add.addID("orthopedics", entities.SourceInternal)
	}
	add.addDeclared(rec.DeclaredServices)
	f.Services.Sort()

	if t.Satisfaction != nil {
		f.Satisfaction = satisfaction(t.Satisfaction.Lookup(f.ID))
	}
	return f, nil
}

// dedupeWaitTimes keeps the first row per service id of a sorted slice
func dedupeWaitTimes(in []entities.ServiceWaitTime) []entities.ServiceWaitTime {
	out := in[:0]
	for i, w := range in {
		if i > 0 && w.ServiceID == in[i-1].ServiceID {
			continue
		}
		out = append(out, w)
	}
	return out
}

// satisfaction maps survey rows onto the four published scores
func satisfaction(rows []entities.SatisfactionRecord) *entities.Satisfaction {
	var s entities.Satisfaction
	found := false
	for _, r := range rows {
		if !r.Score.Valid {
			continue
		}
		score := r.Score.Decimal
		switch utils.ServiceKey(r.SurveyType) {
		case "primarycareurgent":
			s.PrimaryCareUrgent = &score
		case "primarycareroutine":
			s.PrimaryCareRoutine = &score
		case "specialtycareurgent":
			s.SpecialtyCareUrgent = &score
		case "specialtycareroutine":
			s.SpecialtyCareRoutine = &score
		default:
			continue
		}
		found = true
		if d := entities.DateOnly(r.SliceEndDate); d > s.EffectiveDate {
			s.EffectiveDate = d
		}
	}
	if !found {
		return nil
	}
	return &s
}
