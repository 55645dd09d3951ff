package catalog

import (
	"fmt"
	"math"
	"sort"
)

// Role is a labor category with a billing rate (currency per hour).
type Role struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	BaseRate float64 `json:"base_rate" yaml:"base_rate"`
}

// RateTable is an immutable role → rate lookup.
type RateTable struct {
	roles map[string]Role
}

// NewRateTable validates and copies roles.
func NewRateTable(roles []Role) (*RateTable, error) {
	rt := &RateTable{roles: make(map[string]Role, len(roles))}
	for _, r := range roles {
		if r.ID == "" {
			return nil, fmt.Errorf("role %q has no id", r.Name)
		}
		if _, dup := rt.roles[r.ID]; dup {
			return nil, fmt.Errorf("duplicate role id: %s", r.ID)
		}
		if r.BaseRate < 0 || math.IsNaN(r.BaseRate) || math.IsInf(r.BaseRate, 0) {
			return nil, fmt.Errorf("role %s: base rate must be a non-negative number, got %v", r.ID, r.BaseRate)
		}
		if r.Name == "" {
			r.Name = r.ID
		}
		rt.roles[r.ID] = r
	}
	return rt, nil
}

// Get returns the role with the given id.
func (rt *RateTable) Get(id string) (Role, bool) {
	r, ok := rt.roles[id]
	return r, ok
}

// Roles lists roles sorted by id.
func (rt *RateTable) Roles() []Role {
	out := make([]Role, 0, len(rt.roles))
	for _, r := range rt.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (rt *RateTable) Len() int { return len(rt.roles) }
