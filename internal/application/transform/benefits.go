package transform

import (
	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// Benefits transforms benefits registry rows
type Benefits struct {
	Catalog  *catalog.Catalog
	Websites Lookup[entities.WebsiteRecord]
	Logger   zerolog.Logger
}

var _ Transformer[entities.RegistryRecord] = (*Benefits)(nil)

// Transform builds one benefits facility
func (t *Benefits) Transform(rec entities.RegistryRecord) (*entities.Facility, error) {
	f, err := fromRegistry(rec, entities.RegistryKindBenefits, entities.FacilityTypeBenefits)
	if f == nil || err != nil {
		return f, err
	}
	f.Website = website(t.Websites, f.ID)

	serviceAdder{catalog: t.Catalog, logger: t.Logger, f: f}.addDeclared(rec.DeclaredServices)
	f.Services.Sort()
	return f, nil
}

// VetCenter transforms vet center registry rows
type VetCenter struct {
	Websites Lookup[entities.WebsiteRecord]
}

var _ Transformer[entities.RegistryRecord] = (*VetCenter)(nil)

// Transform builds one vet center. Vet centers publish no service list.
func (t *VetCenter) Transform(rec entities.RegistryRecord) (*entities.Facility, error) {
	f, err := fromRegistry(rec, entities.RegistryKindVetCenter, entities.FacilityTypeVetCenter)
	if f == nil || err != nil {
		return f, err
	}
	f.Website = website(t.Websites, f.ID)
	return f, nil
}
