package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/scribe/errors"
)

func TestBuildDependencies_OneLevel(t *testing.T) {
	deps, err := BuildDependencies(parents(family("orders", 2), family("users", 0)), SelectAll())
	require.NoError(t, err)

	assert.Len(t, deps, 4)
	assert.Empty(t, deps["orders"])
	assert.Empty(t, deps["users"])
	assert.Equal(t, []string{"orders"}, deps.Of("orders.c1"))
	assert.Equal(t, []string{"orders"}, deps.Of("orders.c2"))
}

func TestBuildDependencies_Selection(t *testing.T) {
	deps, err := BuildDependencies(parents(family("orders", 3)), NewSelection("orders.c3"))
	require.NoError(t, err)

	assert.Len(t, deps, 2)
	assert.Contains(t, deps, "orders")
	assert.Contains(t, deps, "orders.c3")
	assert.NotContains(t, deps, "orders.c1")
}

func TestBuildDependencies_EmptySelectionKeepsParents(t *testing.T) {
	deps, err := BuildDependencies(parents(family("orders", 3)), NewSelection())
	require.NoError(t, err)
	assert.Equal(t, Dependencies{"orders": {}}, deps)
}

func TestBuildDependencies_Preconditions(t *testing.T) {
	tests := []struct {
		name      string
		parents   []Parent
		selection Selection
	}{
		{"empty parent id", parents(testEntity{id: ""}), nil},
		{"duplicate parent", parents(family("a", 0), family("a", 0)), nil},
		{"child collides with parent", parents(family("a", 0), testEntity{id: "b", children: []Entity{testEntity{id: "a"}}}), nil},
		{"child under two parents", parents(
			testEntity{id: "a", children: []Entity{testEntity{id: "x"}}},
			testEntity{id: "b", children: []Entity{testEntity{id: "x"}}},
		), nil},
		{"empty child id", parents(testEntity{id: "a", children: []Entity{testEntity{id: ""}}}), nil},
		{"unknown selection", parents(family("a", 1)), NewSelection("a.c9")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDependencies(tt.parents, tt.selection)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err))
		})
	}
}

func TestBuildDependencies_UnknownSelectionHasHint(t *testing.T) {
	_, err := BuildDependencies(parents(family("a", 1)), NewSelection("ghost"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}
