package overlay

import (
	"encoding/json"
	"fmt"

	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// Entry is one stored overlay decoded for merging
type Entry struct {
	Overlay *entities.Overlay
	Version int64

	// StoredDetailed is the detailed_services column exactly as read, used to
	// tell whether normalization changed anything worth writing back.
	StoredDetailed []byte
}

// resolveInfo resolves a submitted identity, preferring the id over the name
func resolveInfo(c *catalog.Catalog, info entities.ServiceInfo) catalog.Resolution {
	if info.ServiceID != "" && info.ServiceID != catalog.InvalidID {
		if r := c.ResolveByID(info.ServiceID); r.Recognized {
			return r
		}
	}
	if info.Name != "" {
		return c.ResolveByName(info.Name)
	}
	return catalog.Resolution{}
}

// normalizeInfo rewrites an identity onto the catalog. Names supplied with
// the overlay are kept; unresolvable services keep the InvalidID marker.
func normalizeInfo(info entities.ServiceInfo, r catalog.Resolution) entities.ServiceInfo {
	out := info
	out.Source = entities.SourceCMS
	if !r.Recognized {
		out.ServiceID = catalog.InvalidID
		return out
	}
	out.ServiceID = r.Entry.ID
	out.ServiceType = r.Entry.Category
	if out.Name == "" {
		out.Name = r.Entry.Name
	}
	return out
}

// decodeDetailed parses the detailed_services column, accepting both the
// current and the legacy element shape.
func decodeDetailed(c *catalog.Catalog, raw []byte) ([]entities.DetailedService, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}

	out := make([]entities.DetailedService, 0, len(elems))
	for i, el := range elems {
		var ds entities.DetailedService
		if err := json.Unmarshal(el, &ds); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		r := c.ResolvePayload(el)
		if r.Legacy {
			var legacy struct {
				Name string `json:"name"`
			}
			_ = json.Unmarshal(el, &legacy)
			ds.ServiceInfo = entities.ServiceInfo{Name: legacy.Name}
		}
		ds.ServiceInfo = normalizeInfo(ds.ServiceInfo, r)
		out = append(out, ds)
	}
	return out, nil
}

func encodeDetailed(list []entities.DetailedService) ([]byte, error) {
	if len(list) == 0 {
		return nil, nil
	}
	return json.Marshal(list)
}

// serviceNames is the plain name set stored beside the detailed services
func serviceNames(list []entities.DetailedService) []string {
	names := make([]string, 0, len(list))
	for _, ds := range list {
		if ds.ServiceInfo.ServiceID == catalog.InvalidID {
			continue
		}
		names = append(names, ds.ServiceInfo.Name)
	}
	return utils.SortedSet(names)
}

// detailedKey identifies a detailed service for merging. Unresolved services
// fall back to their normalized name so resubmitting one does not duplicate it.
func detailedKey(ds entities.DetailedService) string {
	if ds.ServiceInfo.ServiceID != catalog.InvalidID {
		return ds.ServiceInfo.ServiceID
	}
	return catalog.InvalidID + ":" + utils.ServiceKey(ds.ServiceInfo.Name)
}

// mergeDetailed replaces stored services that share a key with an incoming
// one and appends the rest, keeping stored order.
func mergeDetailed(stored, incoming []entities.DetailedService) []entities.DetailedService {
	out := append([]entities.DetailedService(nil), stored...)
	index := make(map[string]int, len(out))
	for i, ds := range out {
		index[detailedKey(ds)] = i
	}
	for _, ds := range incoming {
		k := detailedKey(ds)
		if i, ok := index[k]; ok {
			out[i] = ds
			continue
		}
		index[k] = len(out)
		out = append(out, ds)
	}
	return out
}

// decodeRecord decodes every column. Any corrupt column fails the whole row.
func decodeRecord(c *catalog.Catalog, rec *entities.OverlayRecord) (*Entry, error) {
	o := &entities.Overlay{ID: rec.ID}
	if len(rec.OperatingStatus) > 0 {
		var status entities.OperatingStatus
		if err := json.Unmarshal(rec.OperatingStatus, &status); err != nil {
			return nil, fmt.Errorf("operating_status: %w", err)
		}
		o.OperatingStatus = &status
	}
	if len(rec.HealthCareSystem) > 0 {
		var hcs entities.HealthCareSystem
		if err := json.Unmarshal(rec.HealthCareSystem, &hcs); err != nil {
			return nil, fmt.Errorf("health_care_system: %w", err)
		}
		o.HealthCareSystem = &hcs
	}
	detailed, err := decodeDetailed(c, rec.DetailedServices)
	if err != nil {
		return nil, fmt.Errorf("detailed_services: %w", err)
	}
	o.DetailedServices = detailed

	return &Entry{Overlay: o, Version: rec.Version, StoredDetailed: rec.DetailedServices}, nil
}
