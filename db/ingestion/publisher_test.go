package ingestion

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-cost/db/clickhouse"
	"proposal-cost/decision/catalog"
)

type memStore struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]*clickhouse.RateSnapshot
	rates     map[uuid.UUID][]*clickhouse.RoleRate
	batches   int
}

func newMemStore() *memStore {
	return &memStore{
		snapshots: make(map[uuid.UUID]*clickhouse.RateSnapshot),
		rates:     make(map[uuid.UUID][]*clickhouse.RoleRate),
	}
}

func (m *memStore) CreateSnapshot(_ context.Context, s *clickhouse.RateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.snapshots[s.ID] = &cp
	return nil
}

func (m *memStore) FindSnapshotByHash(_ context.Context, alias, hash string) (*clickhouse.RateSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.Alias == alias && s.Hash == hash {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetActiveSnapshot(_ context.Context, alias string) (*clickhouse.RateSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.Alias == alias && s.IsActive {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memStore) ActivateSnapshot(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.snapshots[id]
	for _, s := range m.snapshots {
		if s.Alias == target.Alias {
			s.IsActive = s.ID == id
		}
	}
	return nil
}

func (m *memStore) BulkCreateRates(_ context.Context, rates []*clickhouse.RoleRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	for _, r := range rates {
		// Decimal(18, 6) column
		stored := *r
		stored.Rate = r.Rate.Round(clickhouse.RateScale)
		m.rates[r.SnapshotID] = append(m.rates[r.SnapshotID], &stored)
	}
	return nil
}

func (m *memStore) ListRates(_ context.Context, id uuid.UUID) ([]*clickhouse.RoleRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rates[id], nil
}

func TestPublish_CreatesAndActivates(t *testing.T) {
	store := newMemStore()
	p := NewPublisher(store)
	roles := catalog.Default().Rates.Roles()

	result, err := p.Publish(context.Background(), PublishInput{Source: "test", Version: "v1", Roles: roles, Activate: true})
	require.NoError(t, err)

	assert.False(t, result.Deduplicated)
	assert.True(t, result.Activated)
	assert.Equal(t, len(roles), result.RoleCount)
	assert.Equal(t, catalog.HashRoles(roles), result.Hash)
	assert.Equal(t, 1, store.batches)

	snapshot, loaded, err := p.LoadActive(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, result.SnapshotID, snapshot.ID)
	assert.Equal(t, roles, loaded)
}

func TestPublish_DeduplicatesByHash(t *testing.T) {
	store := newMemStore()
	p := NewPublisher(store)
	roles := catalog.Default().Rates.Roles()

	first, err := p.Publish(context.Background(), PublishInput{Roles: roles})
	require.NoError(t, err)

	reversed := make([]catalog.Role, len(roles))
	for i, r := range roles {
		reversed[len(roles)-1-i] = r
	}
	second, err := p.Publish(context.Background(), PublishInput{Roles: reversed, Activate: true})
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.SnapshotID, second.SnapshotID)
	assert.Len(t, store.snapshots, 1)
}

func TestPublish_RoundsRatesToStoredScale(t *testing.T) {
	store := newMemStore()
	p := NewPublisher(store)
	roles := []catalog.Role{
		{ID: "analyst", Name: "Analyst", BaseRate: 123.4567891},
		{ID: "engineer", Name: "Engineer", BaseRate: 150},
	}

	result, err := p.Publish(context.Background(), PublishInput{Roles: roles, Activate: true})
	require.NoError(t, err)
	assert.Equal(t, catalog.HashRoles(clickhouse.NormalizeRoles(roles)), result.Hash)

	snapshot, loaded, err := p.LoadActive(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, result.Hash, catalog.HashRoles(loaded))
	assert.Equal(t, 123.456789, loaded[0].BaseRate)

	again, err := p.Publish(context.Background(), PublishInput{Roles: roles})
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
}

func TestPublish_RejectsInvalidCard(t *testing.T) {
	p := NewPublisher(newMemStore())
	_, err := p.Publish(context.Background(), PublishInput{Roles: []catalog.Role{{ID: "eng", BaseRate: -1}}})
	assert.Error(t, err)
}

func TestPublish_Batches(t *testing.T) {
	store := newMemStore()
	p := NewPublisher(store)
	p.batchSize = 3

	_, err := p.Publish(context.Background(), PublishInput{Roles: catalog.Default().Rates.Roles()})
	require.NoError(t, err)
	assert.Equal(t, 4, store.batches)
}

func TestLoadActive_NoneActive(t *testing.T) {
	snapshot, roles, err := NewPublisher(newMemStore()).LoadActive(context.Background(), "default")
	assert.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.Nil(t, roles)
}

func TestLoadActive_DetectsTamperedRates(t *testing.T) {
	store := newMemStore()
	p := NewPublisher(store)
	result, err := p.Publish(context.Background(), PublishInput{Roles: catalog.Default().Rates.Roles(), Activate: true})
	require.NoError(t, err)

	store.rates[result.SnapshotID] = store.rates[result.SnapshotID][1:]
	_, _, err = p.LoadActive(context.Background(), "default")
	assert.ErrorContains(t, err, "corrupt")
}

func TestApply_SwapsRates(t *testing.T) {
	base := catalog.Default()
	holder := catalog.NewHolder(base)

	roles := base.Rates.Roles()
	for i := range roles {
		roles[i].BaseRate += 10
	}

	p := NewPublisher(newMemStore())
	_, err := p.Publish(context.Background(), PublishInput{Roles: roles, Activate: true})
	require.NoError(t, err)

	snapshot, err := p.Apply(context.Background(), "", holder)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	current := holder.Load()
	assert.NotSame(t, base, current)
	assert.Equal(t, roles, current.Rates.Roles())
	assert.Equal(t, base.Catalog.Len(), current.Catalog.Len())
}
