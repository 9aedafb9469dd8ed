package entities

import "sort"

// ServiceCategory groups catalog services
type ServiceCategory string

const (
	CategoryHealth   ServiceCategory = "health"
	CategoryBenefits ServiceCategory = "benefits"
	CategoryOther    ServiceCategory = "other"
)

// ServiceSource records where a service listing came from
type ServiceSource string

const (
	SourceInternal ServiceSource = "internal"
	SourceATC      ServiceSource = "ATC"
	SourceCMS      ServiceSource = "CMS"
)

// Rank orders sources for deduplication; higher wins.
func (s ServiceSource) Rank() int {
	switch s {
	case SourceCMS:
		return 3
	case SourceATC:
		return 2
	case SourceInternal:
		return 1
	default:
		return 0
	}
}

// Service references a catalog entry plus its provenance
type Service struct {
	ServiceID string          `json:"serviceId"`
	Name      string          `json:"name"`
	Category  ServiceCategory `json:"serviceType,omitempty"`
	Source    ServiceSource   `json:"source"`
}

// Services is the per-category service collection of a facility
type Services struct {
	Health   []Service `json:"health,omitempty"`
	Benefits []Service `json:"benefits,omitempty"`
	Other    []Service `json:"other,omitempty"`
}

func (s *Services) list(c ServiceCategory) *[]Service {
	switch c {
	case CategoryHealth:
		return &s.Health
	case CategoryBenefits:
		return &s.Benefits
	default:
		return &s.Other
	}
}

// Add inserts svc into its category. An existing entry with the same id is
// replaced only when svc comes from a higher-ranked source.
func (s *Services) Add(svc Service) {
	list := s.list(svc.Category)
	for i, existing := range *list {
		if existing.ServiceID != svc.ServiceID {
			continue
		}
		if svc.Source.Rank() > existing.Source.Rank() {
			(*list)[i] = svc
		}
		return
	}
	*list = append(*list, svc)
}

// Has reports whether the category lists id
func (s *Services) Has(c ServiceCategory, id string) bool {
	for _, svc := range *s.list(c) {
		if svc.ServiceID == id {
			return true
		}
	}
	return false
}

// Sort orders every category by display name, then id
func (s *Services) Sort() {
	for _, c := range []ServiceCategory{CategoryHealth, CategoryBenefits, CategoryOther} {
		list := *s.list(c)
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Name != list[j].Name {
				return list[i].Name < list[j].Name
			}
			return list[i].ServiceID < list[j].ServiceID
		})
	}
}

// Len is the total number of services across categories
func (s Services) Len() int {
	return len(s.Health) + len(s.Benefits) + len(s.Other)
}

// Clone copies all three lists
func (s Services) Clone() Services {
	return Services{
		Health:   cloneServices(s.Health),
		Benefits: cloneServices(s.Benefits),
		Other:    cloneServices(s.Other),
	}
}

func cloneServices(in []Service) []Service {
	if in == nil {
		return nil
	}
	return append([]Service(nil), in...)
}
