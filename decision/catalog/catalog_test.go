package catalog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, 13, s.Catalog.Len())
	assert.Equal(t, 10, s.Rates.Len())
	assert.Len(t, s.Hash, 64)
	assert.Equal(t, []string{"CM", "DA", "DT", "ITM", "SA"}, s.Catalog.FocusAreas())

	m, ok := s.Catalog.Get("dt_strategy")
	require.True(t, ok)
	assert.Equal(t, []string{"dt_discovery"}, m.Prerequisites)
	assert.Equal(t, []string{"business_analyst", "project_manager", "solution_architect"}, m.RoleIDs())
}

func TestDefault_HashIsStable(t *testing.T) {
	assert.Equal(t, Default().Hash, Default().Hash)
	assert.NotEqual(t, Default().ID, Default().ID)
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		modules []Module
	}{
		{"missing id", []Module{{Name: "nameless"}}},
		{"duplicate id", []Module{{ID: "a"}, {ID: "a"}}},
		{"negative hours", []Module{{ID: "a", BaseHoursByRole: map[string]float64{"eng": -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.modules)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_ModulesAreCopies(t *testing.T) {
	c, err := NewCatalog([]Module{{ID: "a", BaseHoursByRole: map[string]float64{"eng": 10}}})
	require.NoError(t, err)

	listed := c.Modules()
	listed[0].BaseHoursByRole["eng"] = 999

	m, _ := c.Get("a")
	assert.Equal(t, 10.0, m.BaseHoursByRole["eng"])
	assert.Equal(t, "a", m.Name)
}

func TestNewRateTable_Rejects(t *testing.T) {
	_, err := NewRateTable([]Role{{ID: "eng", BaseRate: -5}})
	assert.Error(t, err)

	_, err = NewRateTable([]Role{{ID: "eng", BaseRate: 5}, {ID: "eng", BaseRate: 6}})
	assert.Error(t, err)
}

func TestMultipliers_Validate(t *testing.T) {
	m := DefaultMultipliers()
	require.NoError(t, m.Validate())

	delete(m.Complexity, ComplexityLarge)
	assert.ErrorContains(t, m.Validate(), "missing tier L")

	m = DefaultMultipliers()
	m.Geography["moon"] = 0
	assert.ErrorContains(t, m.Validate(), "geography factor")
}

func TestParseComplexity(t *testing.T) {
	tests := map[string]Complexity{
		"S": ComplexitySmall, "small": ComplexitySmall, "m": ComplexityMedium,
		"Large": ComplexityLarge, "xl": ComplexityExtraLarge, "extra_large": ComplexityExtraLarge,
	}
	for in, want := range tests {
		got, ok := ParseComplexity(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseComplexity("XXL")
	assert.False(t, ok)
}

func TestCostPolicy_ReserveRateFor(t *testing.T) {
	p := CostPolicy{
		ReserveRate:            0.1,
		ReserveByClearance:     map[string]float64{"top_secret": 0.2},
		PrimeContractorReserve: 0.05,
		OvertimePremium:        1.5,
	}
	assert.InDelta(t, 0.1, p.ReserveRateFor("secret", false), 1e-12)
	assert.InDelta(t, 0.2, p.ReserveRateFor("top_secret", false), 1e-12)
	assert.InDelta(t, 0.25, p.ReserveRateFor("top_secret", true), 1e-12)
	assert.Equal(t, 1.0, p.Premium(false))
	assert.Equal(t, 1.5, p.Premium(true))

	p.OvertimePremium = 0
	assert.Error(t, p.Validate())
}

func TestNewSnapshot_CrossCheck(t *testing.T) {
	doc := DefaultDocument()
	doc.Roles = doc.Roles[1:] // drop solution_architect

	_, err := NewSnapshot(doc, "test")
	assert.ErrorContains(t, err, "solution_architect")
}

func TestParse_KeepsDefaultTables(t *testing.T) {
	data := []byte(`
version: "test-1"
roles:
  - id: eng
    name: Engineer
    base_rate: 100
modules:
  - id: M1
    name: Module One
    focus_area: X
    base_hours_by_role:
      eng: 10
policy:
  overhead_rate: 0.3
`)
	s, err := Parse(data, "inline")
	require.NoError(t, err)

	assert.Equal(t, "test-1", s.Version)
	assert.Equal(t, 1, s.Catalog.Len())
	assert.Equal(t, 0.3, s.Policy.OverheadRate)
	assert.Equal(t, 0.15, s.Policy.ReserveRate)
	assert.Equal(t, 1.25, s.Policy.OvertimePremium)
	assert.Equal(t, 2.3, s.Multipliers.Complexity[ComplexityExtraLarge])
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.yaml")

	original := Default()
	require.NoError(t, SaveFile(original, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original.Catalog.Len(), loaded.Catalog.Len())
	assert.Equal(t, original.Rates.Roles(), loaded.Rates.Roles())
	assert.Equal(t, path, loaded.Source)
}

func TestSnapshot_WithRates(t *testing.T) {
	base := Default()
	roles := base.Rates.Roles()
	for i := range roles {
		roles[i].BaseRate += 10
	}

	next, err := base.WithRates(roles, "clickhouse")
	require.NoError(t, err)

	r, _ := next.Rates.Get("engineer")
	assert.Equal(t, 120.0, r.BaseRate)
	orig, _ := base.Rates.Get("engineer")
	assert.Equal(t, 110.0, orig.BaseRate)
	assert.NotEqual(t, base.Hash, next.Hash)
}

func TestSnapshot_TablesAreCopies(t *testing.T) {
	doc := DefaultDocument()
	doc.Policy.ReserveByClearance = map[string]float64{"secret": 0.18}

	s, err := NewSnapshot(doc, "test")
	require.NoError(t, err)

	doc.Multipliers.Complexity[ComplexityMedium] = 9
	doc.Multipliers.Environment["classified"] = 9
	doc.Policy.ReserveByClearance["secret"] = 0.9
	assert.Equal(t, 1.0, s.Multipliers.Complexity[ComplexityMedium])
	assert.Equal(t, 0.18, s.Policy.ReserveRateFor("secret", false))

	exported := s.Document()
	exported.Multipliers.Geography["new_region"] = 3
	exported.Policy.ReserveByClearance["secret"] = 0.5
	assert.NotContains(t, s.Multipliers.Geography, "new_region")
	assert.Equal(t, 0.18, s.Policy.ReserveRateFor("secret", false))

	next, err := s.WithRates(s.Rates.Roles(), "test")
	require.NoError(t, err)
	next.Multipliers.Clearance["secret"] = 7
	assert.NotEqual(t, 7.0, s.Multipliers.Clearance["secret"])
}

func TestHashRoles_OrderIndependent(t *testing.T) {
	a := []Role{{ID: "a", BaseRate: 1}, {ID: "b", BaseRate: 2}}
	b := []Role{{ID: "b", BaseRate: 2}, {ID: "a", BaseRate: 1}}
	assert.Equal(t, HashRoles(a), HashRoles(b))
}

func TestHolder_Swap(t *testing.T) {
	first := Default()
	h := NewHolder(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := h.Load()
			assert.NotNil(t, s.Catalog)
			assert.NotNil(t, s.Rates)
		}()
	}

	second := Default()
	prev := h.Swap(second)
	wg.Wait()

	assert.Same(t, first, prev)
	assert.Same(t, second, h.Load())
}
