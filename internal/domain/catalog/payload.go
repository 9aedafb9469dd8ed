package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Detailed-service identity arrives in two shapes:
//
//	current: {"serviceInfo": {"serviceId": "cardiology", "name": "Cardiology", "serviceType": "health"}, ...}
//	legacy:  {"serviceId": "cardiology", ...} or {"name": "Cardiology", ...}
//
// Each shape has its own parser feeding the same identity type.

type identity struct {
	ID   string
	Name string
}

type currentShape struct {
	ServiceInfo *struct {
		ServiceID string `json:"serviceId"`
		Name      string `json:"name"`
	} `json:"serviceInfo"`
}

type legacyShape struct {
	ServiceID string `json:"serviceId"`
	Name      string `json:"name"`
}

func parseCurrent(raw []byte) (identity, bool) {
	var p currentShape
	if err := json.Unmarshal(raw, &p); err != nil || p.ServiceInfo == nil {
		return identity{}, false
	}
	return identity{ID: strings.TrimSpace(p.ServiceInfo.ServiceID), Name: strings.TrimSpace(p.ServiceInfo.Name)}, true
}

func parseLegacy(raw []byte) (identity, bool) {
	var p legacyShape
	if err := json.Unmarshal(raw, &p); err != nil {
		return identity{}, false
	}
	id := identity{ID: strings.TrimSpace(p.ServiceID), Name: strings.TrimSpace(p.Name)}
	return id, id.ID != "" || id.Name != ""
}

// ResolvePayload resolves the identity of a detailed-service JSON object.
// The id is preferred over the name; malformed input is unrecognized.
func (c *Catalog) ResolvePayload(raw json.RawMessage) Resolution {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return unrecognized()
	}

	if id, ok := parseCurrent(raw); ok {
		return c.resolveIdentity(id)
	}
	if id, ok := parseLegacy(raw); ok {
		r := c.resolveIdentity(id)
		r.Legacy = true
		return r
	}
	return unrecognized()
}

func (c *Catalog) resolveIdentity(id identity) Resolution {
	if id.ID != "" && id.ID != InvalidID {
		if r := c.ResolveByID(id.ID); r.Recognized {
			return r
		}
	}
	if id.Name != "" {
		return c.ResolveByName(id.Name)
	}
	return unrecognized()
}
