package sources

import (
	"context"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// JSONGetter fetches and decodes a JSON document
type JSONGetter interface {
	GetJSON(ctx context.Context, path string, out interface{}) error
}

// WaitTimesFetch reads the ATC patient wait-time feed
func WaitTimesFetch(client JSONGetter, path string) FetchFunc[entities.WaitTimeRecord] {
	return func(ctx context.Context) ([]entities.WaitTimeRecord, error) {
		var out []entities.WaitTimeRecord
		if err := client.GetJSON(ctx, path, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// WaitTimeKey keys wait-time rows by health facility id
func WaitTimeKey(r entities.WaitTimeRecord) string {
	return entities.ATCFacilityID(r.FacilityID)
}

// WaitTimeServiceNames reports the appointment type of a row
func WaitTimeServiceNames(r entities.WaitTimeRecord) []string {
	if r.AppointmentType == "" {
		return nil
	}
	return []string{r.AppointmentType}
}

// SatisfactionFetch reads the ATC patient satisfaction feed
func SatisfactionFetch(client JSONGetter, path string) FetchFunc[entities.SatisfactionRecord] {
	return func(ctx context.Context) ([]entities.SatisfactionRecord, error) {
		var out []entities.SatisfactionRecord
		if err := client.GetJSON(ctx, path, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// SatisfactionKey keys satisfaction rows by health facility id
func SatisfactionKey(r entities.SatisfactionRecord) string {
	return entities.ATCFacilityID(r.FacilityID)
}
