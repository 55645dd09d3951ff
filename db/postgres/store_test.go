package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-cost/pkg/platform"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(sql.ErrNoRows))
}

func TestSaveVersion_RejectsBadPayloads(t *testing.T) {
	s := &Store{}
	err := s.SaveVersion(context.Background(), &ProposalVersion{Input: []byte(`{}`), Result: []byte(`{}`)})
	assert.ErrorContains(t, err, "proposal id")

	err = s.SaveVersion(context.Background(), &ProposalVersion{
		ProposalID: uuid.New(),
		Input:      []byte(`{`),
		Result:     []byte(`{}`),
	})
	assert.ErrorContains(t, err, "valid JSON")
}

// Runs against a live database when POSTGRES_TEST_DSN is set.
func TestStore_Integration(t *testing.T) {
	dsn := platform.GetEnv("POSTGRES_TEST_DSN", "")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()

	s, err := Open(dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	id := uuid.New()
	for i := 0; i < 2; i++ {
		v := &ProposalVersion{
			ProposalID: id,
			Modules:    []string{"dt_discovery"},
			Input:      []byte(`{"sites":1}`),
			Result:     []byte(`{"total_cost":"100"}`),
		}
		require.NoError(t, s.SaveVersion(ctx, v))
		assert.Equal(t, i+1, v.Version)
	}

	versions, err := s.ListVersions(ctx, id)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, []string{"dt_discovery"}, versions[0].Modules)

	_, err = s.GetVersion(ctx, id, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}
