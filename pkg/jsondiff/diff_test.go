package jsondiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_Identical(t *testing.T) {
	changes, err := Diff([]byte(`{"a":1,"b":[1,2]}`), []byte(`{"b":[1,2],"a":1}`))
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiff_NumericEquivalence(t *testing.T) {
	changes, err := Diff([]byte(`{"total":"150.50"}`), []byte(`{"total":"150.5"}`))
	require.NoError(t, err)
	// strings are compared verbatim
	require.Len(t, changes, 1)

	changes, err = Diff([]byte(`{"total":150.50}`), []byte(`{"total":150.5}`))
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = Diff([]byte(`{"total":"1000"}`), []byte(`{"total":1000}`))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Changed, changes[0].Change)
	assert.Equal(t, "1000", changes[0].Left)
	assert.Equal(t, 1000.0, changes[0].Right)
}

func TestDiff_NestedChanges(t *testing.T) {
	left := `{"breakdown_by_role":{"engineer":{"hours":100}},"modules":["a","b","c"],"sites":1}`
	right := `{"breakdown_by_role":{"engineer":{"hours":120},"pm":{"hours":5}},"modules":["a","b"],"overtime":true}`

	changes, err := Diff([]byte(left), []byte(right))
	require.NoError(t, err)

	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{
		"$.breakdown_by_role.engineer.hours",
		"$.breakdown_by_role.pm",
		"$.modules[2]",
		"$.overtime",
		"$.sites",
	}, paths)

	assert.Equal(t, Changed, changes[0].Change)
	assert.Equal(t, 100.0, changes[0].Left)
	assert.Equal(t, 120.0, changes[0].Right)
	assert.Equal(t, Added, changes[1].Change)
	assert.Equal(t, Removed, changes[2].Change)
	assert.Equal(t, "c", changes[2].Left)
	assert.Equal(t, Added, changes[3].Change)
	assert.Equal(t, Removed, changes[4].Change)
}

func TestDiff_TypeChange(t *testing.T) {
	changes, err := Diff([]byte(`{"a":{"b":1}}`), []byte(`{"a":[1]}`))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "$.a", changes[0].Path)
	assert.Equal(t, Changed, changes[0].Change)
}

func TestDiff_QuotedKeys(t *testing.T) {
	changes, err := Diff([]byte(`{"a.b":1}`), []byte(`{"a.b":2}`))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, `$["a.b"]`, changes[0].Path)
}

func TestDiff_InvalidJSON(t *testing.T) {
	_, err := Diff([]byte(`{`), []byte(`{}`))
	assert.Error(t, err)
}

func TestDiffValues(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Hours int    `json:"hours"`
	}
	changes, err := DiffValues(doc{"x", 1}, doc{"x", 2})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "$.hours", changes[0].Path)
}
