package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featherbox/featherbox/internal/domain"
)

func TestDownstream(t *testing.T) {
	g := diamond()
	assert.Equal(t, []string{"C", "D"}, Downstream(g, []string{"C"}))
	assert.Equal(t, []string{"A", "C", "D"}, Downstream(g, []string{"A"}))
	assert.Equal(t, []string{"D"}, Downstream(g, []string{"D"}))
	assert.Empty(t, Downstream(g, nil))
}

func TestLevelsLongestPath(t *testing.T) {
	// E reads both A (level 0) and C (level 1), so E lands at level 2
	// even though one of its inputs is a root.
	g := domain.Graph{
		Nodes: []domain.Node{{Name: "A"}, {Name: "C"}, {Name: "E"}},
		Edges: []domain.Edge{
			{From: "A", To: "C"},
			{From: "A", To: "E"},
			{From: "C", To: "E"},
		},
	}
	levels, err := Levels(g, []string{"A", "C", "E"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {"C"}, {"E"}}, levels)
}

func TestLevelsRestrictedSubgraph(t *testing.T) {
	g := diamond()
	// Only C and D are affected; C has no parents inside the subset, so
	// it becomes a root of the restricted subgraph.
	levels, err := Levels(g, []string{"C", "D"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"C"}, {"D"}}, levels)
}

func TestLevelsParallelRoots(t *testing.T) {
	g := diamond()
	levels, err := Levels(g, []string{"A", "B", "C", "D"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"C"}, {"D"}}, levels)
}

func TestLevelsCycle(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{{Name: "X"}, {Name: "Y"}},
		Edges: []domain.Edge{{From: "X", To: "Y"}, {From: "Y", To: "X"}},
	}
	_, err := Levels(g, []string{"X", "Y"})
	assert.Error(t, err)
}

func TestDepthsLongestPath(t *testing.T) {
	g := diamond()
	depths, err := Depths(g)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 0, "B": 0, "C": 1, "D": 2}, depths)
}

func TestDepthsCycle(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{{Name: "X"}, {Name: "Y"}},
		Edges: []domain.Edge{{From: "X", To: "Y"}, {From: "Y", To: "X"}},
	}
	_, err := Depths(g)
	assert.Error(t, err)
}

func TestDropOrderConsumersFirst(t *testing.T) {
	prev := diamond()
	order, err := DropOrder(prev, []string{"C", "D"})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C"}, order)
}
