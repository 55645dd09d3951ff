package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Document is the serializable form of a snapshot, as authored in YAML.
type Document struct {
	Version     string      `json:"version" yaml:"version"`
	Roles       []Role      `json:"roles" yaml:"roles"`
	Modules     []Module    `json:"modules" yaml:"modules"`
	Multipliers Multipliers `json:"multipliers" yaml:"multipliers"`
	Policy      CostPolicy  `json:"policy" yaml:"policy"`
}

// Snapshot is one consistent, immutable view of all estimation configuration.
type Snapshot struct {
	ID          uuid.UUID
	Version     string
	Hash        string
	Source      string
	LoadedAt    time.Time
	Catalog     *Catalog
	Rates       *RateTable
	Multipliers Multipliers
	Policy      CostPolicy
}

// NewSnapshot validates a document and builds a snapshot from it.
func NewSnapshot(doc Document, source string) (*Snapshot, error) {
	cat, err := NewCatalog(doc.Modules)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	rates, err := NewRateTable(doc.Roles)
	if err != nil {
		return nil, fmt.Errorf("invalid rate table: %w", err)
	}
	if err := doc.Multipliers.Validate(); err != nil {
		return nil, fmt.Errorf("invalid multipliers: %w", err)
	}
	if err := doc.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cost policy: %w", err)
	}
	if err := CrossCheck(cat, rates); err != nil {
		return nil, err
	}

	hash, err := hashDocument(doc)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ID:          uuid.New(),
		Version:     doc.Version,
		Hash:        hash,
		Source:      source,
		LoadedAt:    time.Now().UTC(),
		Catalog:     cat,
		Rates:       rates,
		Multipliers: doc.Multipliers.clone(),
		Policy:      doc.Policy.clone(),
	}, nil
}

// CrossCheck verifies every role referenced by a module has a rate.
func CrossCheck(cat *Catalog, rates *RateTable) error {
	for _, m := range cat.Modules() {
		for _, role := range m.RoleIDs() {
			if _, ok := rates.Get(role); !ok {
				return fmt.Errorf("module %s references role %s which has no rate", m.ID, role)
			}
		}
	}
	return nil
}

// Document returns the serializable form of the snapshot.
func (s *Snapshot) Document() Document {
	return Document{
		Version:     s.Version,
		Roles:       s.Rates.Roles(),
		Modules:     s.Catalog.Modules(),
		Multipliers: s.Multipliers.clone(),
		Policy:      s.Policy.clone(),
	}
}

// WithRates returns a new snapshot identical to s except for its rate table.
func (s *Snapshot) WithRates(roles []Role, source string) (*Snapshot, error) {
	doc := s.Document()
	doc.Roles = roles
	return NewSnapshot(doc, source)
}

// hashDocument hashes the canonical JSON encoding (map keys are sorted by encoding/json).
func hashDocument(doc Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashRoles hashes a rate table's roles in id order, independent of input order.
func HashRoles(roles []Role) string {
	sorted := append([]Role(nil), roles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	data, _ := json.Marshal(sorted)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Holder publishes the current snapshot. Swaps replace the whole snapshot atomically,
// so a reader that loaded a snapshot keeps a consistent view for its whole computation.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Swap installs next and returns the snapshot it replaced.
func (h *Holder) Swap(next *Snapshot) *Snapshot {
	return h.current.Swap(next)
}
