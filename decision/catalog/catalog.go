// Package catalog holds the read-only configuration the estimation engine prices against:
// the module catalog, the role rate table, multiplier tables and the cost policy.
// Everything here is immutable once built; refreshes replace a whole Snapshot.
package catalog

import (
	"fmt"
	"math"
	"sort"
)

// Module is a purchasable unit of scope with base effort per role.
type Module struct {
	ID              string             `json:"id" yaml:"id"`
	Name            string             `json:"name" yaml:"name"`
	FocusArea       string             `json:"focus_area" yaml:"focus_area"`
	BaseHoursByRole map[string]float64 `json:"base_hours_by_role" yaml:"base_hours_by_role"`
	Prerequisites   []string           `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
}

// RoleIDs returns the roles the module carries hours for, sorted.
func (m Module) RoleIDs() []string {
	ids := make([]string, 0, len(m.BaseHoursByRole))
	for id := range m.BaseHoursByRole {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m Module) clone() Module {
	hours := make(map[string]float64, len(m.BaseHoursByRole))
	for role, h := range m.BaseHoursByRole {
		hours[role] = h
	}
	m.BaseHoursByRole = hours
	m.Prerequisites = append([]string(nil), m.Prerequisites...)
	return m
}

// Catalog is an immutable set of modules keyed by id.
type Catalog struct {
	modules map[string]Module
	order   []string
}

// NewCatalog validates and copies the given modules. Order is preserved for listing.
func NewCatalog(modules []Module) (*Catalog, error) {
	c := &Catalog{
		modules: make(map[string]Module, len(modules)),
		order:   make([]string, 0, len(modules)),
	}

	for _, m := range modules {
		if m.ID == "" {
			return nil, fmt.Errorf("module %q has no id", m.Name)
		}
		if _, dup := c.modules[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id: %s", m.ID)
		}
		for role, h := range m.BaseHoursByRole {
			if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
				return nil, fmt.Errorf("module %s: base hours for role %s must be a non-negative number, got %v", m.ID, role, h)
			}
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		c.modules[m.ID] = m.clone()
		c.order = append(c.order, m.ID)
	}

	return c, nil
}

// Get returns the module with the given id.
func (c *Catalog) Get(id string) (Module, bool) {
	m, ok := c.modules[id]
	return m, ok
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.modules[id]
	return ok
}

// Modules lists modules in catalog order.
func (c *Catalog) Modules() []Module {
	out := make([]Module, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.modules[id].clone())
	}
	return out
}

func (c *Catalog) Len() int { return len(c.order) }

// FocusAreas returns the distinct focus areas, sorted.
func (c *Catalog) FocusAreas() []string {
	seen := make(map[string]bool)
	var areas []string
	for _, id := range c.order {
		fa := c.modules[id].FocusArea
		if !seen[fa] {
			seen[fa] = true
			areas = append(areas, fa)
		}
	}
	sort.Strings(areas)
	return areas
}
