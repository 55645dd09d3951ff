// Package ingestion publishes labor rate cards into the ClickHouse snapshot store
// and reads the active card back for the estimation engine.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"proposal-cost/db/clickhouse"
	"proposal-cost/decision/catalog"
)

// RateStore is the subset of *clickhouse.Store the publisher needs.
type RateStore interface {
	CreateSnapshot(ctx context.Context, snapshot *clickhouse.RateSnapshot) error
	FindSnapshotByHash(ctx context.Context, alias, hash string) (*clickhouse.RateSnapshot, error)
	GetActiveSnapshot(ctx context.Context, alias string) (*clickhouse.RateSnapshot, error)
	ActivateSnapshot(ctx context.Context, id uuid.UUID) error
	BulkCreateRates(ctx context.Context, rates []*clickhouse.RoleRate) error
	ListRates(ctx context.Context, snapshotID uuid.UUID) ([]*clickhouse.RoleRate, error)
}

// DefaultAlias names the rate card used when none is given.
const DefaultAlias = "default"

// Publisher writes rate cards as snapshots
type Publisher struct {
	store     RateStore
	batchSize int
	currency  string
}

// NewPublisher creates a publisher over the given store
func NewPublisher(store RateStore) *Publisher {
	return &Publisher{store: store, batchSize: 500, currency: "USD"}
}

// PublishInput contains the rate card to publish
type PublishInput struct {
	Alias     string
	Source    string
	Version   string
	ValidFrom time.Time
	Roles     []catalog.Role
	Activate  bool
}

// PublishResult tracks the result of a publish
type PublishResult struct {
	SnapshotID   uuid.UUID
	Hash         string
	RoleCount    int
	Deduplicated bool
	Activated    bool
	Duration     time.Duration
}

// Publish stores a rate card. Rates are rounded to the store's scale before hashing, so the
// hash matches what LoadActive reads back. A card whose content hash already exists under
// the alias is not written again; the existing snapshot is reused (and activated when requested).
func (p *Publisher) Publish(ctx context.Context, input PublishInput) (*PublishResult, error) {
	startTime := time.Now()

	if _, err := catalog.NewRateTable(input.Roles); err != nil {
		return nil, fmt.Errorf("invalid rate card: %w", err)
	}
	input.Roles = clickhouse.NormalizeRoles(input.Roles)
	if input.Alias == "" {
		input.Alias = DefaultAlias
	}
	if input.ValidFrom.IsZero() {
		input.ValidFrom = startTime
	}

	result := &PublishResult{
		Hash:      catalog.HashRoles(input.Roles),
		RoleCount: len(input.Roles),
	}

	existing, err := p.store.FindSnapshotByHash(ctx, input.Alias, result.Hash)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		result.SnapshotID = existing.ID
		result.Deduplicated = true
	} else {
		snapshot := &clickhouse.RateSnapshot{
			ID:        uuid.New(),
			Alias:     input.Alias,
			Source:    input.Source,
			ValidFrom: input.ValidFrom,
			Hash:      result.Hash,
			Version:   input.Version,
			// activated only after all rates are written
			IsActive: false,
		}
		if err := p.store.CreateSnapshot(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("failed to create snapshot: %w", err)
		}
		result.SnapshotID = snapshot.ID

		rates := clickhouse.RolesToRates(snapshot.ID, input.Roles, p.currency)
		for i := 0; i < len(rates); i += p.batchSize {
			end := i + p.batchSize
			if end > len(rates) {
				end = len(rates)
			}
			if err := p.store.BulkCreateRates(ctx, rates[i:end]); err != nil {
				return nil, fmt.Errorf("failed to bulk insert rates at batch %d: %w", i/p.batchSize, err)
			}
		}
	}

	if input.Activate {
		if err := p.store.ActivateSnapshot(ctx, result.SnapshotID); err != nil {
			return nil, fmt.Errorf("failed to activate snapshot: %w", err)
		}
		result.Activated = true
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// LoadActive returns the active snapshot of an alias and its rate card.
// It returns a nil snapshot when nothing has been activated.
func (p *Publisher) LoadActive(ctx context.Context, alias string) (*clickhouse.RateSnapshot, []catalog.Role, error) {
	if alias == "" {
		alias = DefaultAlias
	}
	snapshot, err := p.store.GetActiveSnapshot(ctx, alias)
	if err != nil || snapshot == nil {
		return nil, nil, err
	}

	rates, err := p.store.ListRates(ctx, snapshot.ID)
	if err != nil {
		return nil, nil, err
	}
	roles := clickhouse.RatesToRoles(rates)

	if got := catalog.HashRoles(roles); got != snapshot.Hash {
		return nil, nil, fmt.Errorf("rate snapshot %s is corrupt: hash %s, stored %s", snapshot.ID, got, snapshot.Hash)
	}
	return snapshot, roles, nil
}

// Apply swaps the holder's snapshot for one carrying the active rate card of alias.
// The holder is left untouched when no snapshot is active.
func (p *Publisher) Apply(ctx context.Context, alias string, holder *catalog.Holder) (*clickhouse.RateSnapshot, error) {
	snapshot, roles, err := p.LoadActive(ctx, alias)
	if err != nil || snapshot == nil {
		return nil, err
	}
	next, err := holder.Load().WithRates(roles, "clickhouse:"+snapshot.ID.String())
	if err != nil {
		return nil, fmt.Errorf("active rate card does not fit the catalog: %w", err)
	}
	holder.Swap(next)
	return snapshot, nil
}
