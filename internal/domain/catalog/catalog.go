// Package catalog holds the fixed enumeration of recognized services and the
// resolver that maps names, ids and identity payloads onto it.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/pkg/utils"
)

// InvalidID is stored in place of a service id nothing could resolve.
const InvalidID = "INVALID_ID"

// Entry is one recognized service
type Entry struct {
	ID       string
	Name     string
	Category entities.ServiceCategory
}

// Resolution is the outcome of a lookup. Unknown input is never an error:
// Recognized is false and ID() reports InvalidID.
type Resolution struct {
	Entry      Entry
	Recognized bool

	// Legacy is set by ResolvePayload when the input used the pre-serviceInfo shape.
	Legacy bool
}

// ID returns the resolved id or InvalidID
func (r Resolution) ID() string {
	if !r.Recognized {
		return InvalidID
	}
	return r.Entry.ID
}

func unrecognized() Resolution {
	return Resolution{Entry: Entry{ID: InvalidID}}
}

// Catalog is an immutable bidirectional lookup table
type Catalog struct {
	entries []Entry
	byID    map[string]Entry
	byKey   map[string]Entry
	idKeys  map[string]Entry
}

// New builds a catalog. Every id, name and alias must reduce to a distinct
// normalized key unless it points at the same entry.
func New(entries []Entry, aliases map[string]string) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]Entry, len(entries)),
		byKey:   make(map[string]Entry, len(entries)*2+len(aliases)),
		idKeys:  make(map[string]Entry, len(entries)),
	}

	claim := func(raw string, e Entry) error {
		k := utils.ServiceKey(raw)
		if k == "" {
			return fmt.Errorf("service %s: empty key for %q", e.ID, raw)
		}
		if prev, ok := c.byKey[k]; ok && prev.ID != e.ID {
			return fmt.Errorf("key %q claimed by both %s and %s", k, prev.ID, e.ID)
		}
		c.byKey[k] = e
		return nil
	}

	for _, e := range entries {
		if e.ID == InvalidID {
			return nil, fmt.Errorf("%s is reserved", InvalidID)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %s", e.ID)
		}
		c.byID[e.ID] = e
		c.idKeys[utils.ServiceKey(e.ID)] = e
		c.entries = append(c.entries, e)
		if err := claim(e.ID, e); err != nil {
			return nil, err
		}
		if err := claim(e.Name, e); err != nil {
			return nil, err
		}
	}

	for alias, id := range aliases {
		e, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("alias %q points at unknown id %s", alias, id)
		}
		if err := claim(alias, e); err != nil {
			return nil, err
		}
	}

	sort.Slice(c.entries, func(i, j int) bool {
		if c.entries[i].Category != c.entries[j].Category {
			return c.entries[i].Category < c.entries[j].Category
		}
		return c.entries[i].ID < c.entries[j].ID
	})
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in VA service catalog, built on first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(builtinEntries(), builtinAliases)
		if err != nil {
			panic(fmt.Sprintf("catalog: built-in table is inconsistent: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ResolveByName matches a display name, enum-style name, id or alias.
func (c *Catalog) ResolveByName(raw string) Resolution {
	if e, ok := c.byKey[utils.ServiceKey(raw)]; ok {
		return Resolution{Entry: e, Recognized: true}
	}
	return unrecognized()
}

// ResolveByID matches an id exactly, then case and punctuation insensitively.
// Names are not accepted here.
func (c *Catalog) ResolveByID(id string) Resolution {
	if e, ok := c.byID[id]; ok {
		return Resolution{Entry: e, Recognized: true}
	}
	if e, ok := c.idKeys[utils.ServiceKey(id)]; ok {
		return Resolution{Entry: e, Recognized: true}
	}
	return unrecognized()
}

// Entries returns every entry ordered by category, then id.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len is the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Names returns id to catalog name for every entry.
func (c *Catalog) Names() map[string]string {
	out := make(map[string]string, len(c.entries))
	for _, e := range c.entries {
		out[e.ID] = e.Name
	}
	return out
}
