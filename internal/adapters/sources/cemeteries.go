package sources

import (
	"context"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// XMLGetter fetches and decodes an XML document
type XMLGetter interface {
	GetXML(ctx context.Context, path string, out interface{}) error
}

type cemeteryFeed struct {
	Cemeteries []entities.CemeteryRecord `xml:"cem"`
}

// CemeteriesFetch reads one cemetery XML feed. stateOwned marks every record
// as a state cemetery so it is keyed with the state prefix.
func CemeteriesFetch(client XMLGetter, url string, stateOwned bool) FetchFunc[entities.CemeteryRecord] {
	return func(ctx context.Context) ([]entities.CemeteryRecord, error) {
		var feed cemeteryFeed
		if err := client.GetXML(ctx, url, &feed); err != nil {
			return nil, err
		}
		for i := range feed.Cemeteries {
			feed.Cemeteries[i].StateOwned = stateOwned
		}
		return feed.Cemeteries, nil
	}
}

// CemeteryKey keys cemeteries by canonical id
func CemeteryKey(r entities.CemeteryRecord) string {
	return r.FacilityID()
}
