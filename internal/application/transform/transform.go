// Package transform turns raw upstream records into canonical facilities,
// one transformer per facility category.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ttacon/libphonenumber"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// Transformer converts one raw record. A nil facility with a nil error means
// the record has no usable identity and is skipped.
type Transformer[T any] interface {
	Transform(rec T) (*entities.Facility, error)
}

// Lookup is the read side of a source adapter
type Lookup[T any] interface {
	Lookup(id string) []T
}

// Set is a Lookup used for inclusion lists
type Set interface {
	Has(id string) bool
}

// classifications maps coded classification values per registry kind
var classifications = map[entities.RegistryKind]map[string]string{
	entities.RegistryKindHealth: {
		"1": "VA Medical Center (VAMC)",
		"2": "Health Care Center (HCC)",
		"3": "Multi-Specialty CBOC",
		"4": "Primary Care CBOC",
		"5": "Other Outpatient Services (OOS)",
		"7": "Residential Care Site (MH RRTP/DRRTP) (Stand-Alone)",
		"8": "Extended Care Site (Community Living Center) (Stand-Alone)",
	},
	entities.RegistryKindBenefits: {
		"RO":  "Regional Benefit Office",
		"SO":  "Satellite Office",
		"IDS": "Integrated Disability Evaluation System Site",
		"VSC": "Veteran Service Center",
	},
	entities.RegistryKindVetCenter: {
		"VC":  "Vet Center",
		"OS":  "Vet Center Outstation",
		"MVC": "Mobile Vet Center",
		"CAP": "Vet Center Community Access Point",
	},
}

var cemeteryClassifications = map[string]string{
	"N": "National Cemetery",
	"S": "State Cemetery",
	"A": "Army National Cemetery",
	"I": "Interior Cemetery",
	"R": "Rural Initiative Burial Area",
	"T": "Tribal Cemetery",
}

// classify resolves a coded value through table, then the raw code, then
// the feature abbreviation.
func classify(table map[string]string, code, feature string) string {
	code = strings.TrimSpace(code)
	if label, ok := table[strings.ToUpper(code)]; ok {
		return label
	}
	if code != "" {
		return code
	}
	return strings.TrimSpace(feature)
}

func address(line1, line2, line3, city, state, zip string) *entities.Address {
	a := entities.Address{
		Address1: utils.CollapseWhitespace(line1),
		Address2: utils.CollapseWhitespace(line2),
		Address3: utils.CollapseWhitespace(line3),
		City:     utils.CollapseWhitespace(city),
		State:    strings.ToUpper(strings.TrimSpace(state)),
		Zip:      strings.TrimSpace(zip),
	}
	if a.IsEmpty() {
		return nil
	}
	return &a
}

// normalizePhone formats US numbers as NNN-NNN-NNNN with an optional
// " xEXT" suffix. Text that does not parse as a US number is kept as is.
func normalizePhone(raw string) string {
	raw = utils.CollapseWhitespace(raw)
	if raw == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, "US")
	if err != nil {
		return raw
	}
	national := libphonenumber.GetNationalSignificantNumber(num)
	if len(national) != 10 {
		return raw
	}
	out := national[:3] + "-" + national[3:6] + "-" + national[6:]
	if ext := num.GetExtension(); ext != "" {
		out += " x" + ext
	}
	return out
}

func parseCoordinate(raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", raw)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("coordinate %v out of range", v)
	}
	return v, nil
}

func checkCoordinates(lat, long float64) error {
	if lat < -90 || lat > 90 || long < -180 || long > 180 {
		return fmt.Errorf("coordinates (%v, %v) out of range", lat, long)
	}
	return nil
}

func hours(mon, tue, wed, thu, fri, sat, sun string) entities.Hours {
	return entities.Hours{
		Monday:    utils.CollapseWhitespace(mon),
		Tuesday:   utils.CollapseWhitespace(tue),
		Wednesday: utils.CollapseWhitespace(wed),
		Thursday:  utils.CollapseWhitespace(thu),
		Friday:    utils.CollapseWhitespace(fri),
		Saturday:  utils.CollapseWhitespace(sat),
		Sunday:    utils.CollapseWhitespace(sun),
	}
}

func website(sites Lookup[entities.WebsiteRecord], id string) string {
	if sites == nil {
		return ""
	}
	for _, s := range sites.Lookup(id) {
		if s.URL != "" {
			return s.URL
		}
	}
	return ""
}
