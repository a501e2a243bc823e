package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/domain"
)

func fileAdapter(path string) config.AdapterConfig {
	return config.AdapterConfig{
		Connection: "local",
		Source: config.SourceConfig{
			File: &config.FileSource{
				Path:   path,
				Format: config.FormatConfig{Kind: config.FormatCSV},
			},
		},
	}
}

func diamondConfig() *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{
			Connections: map[string]config.ConnectionConfig{
				"local": {Type: config.ConnectionLocalFile, BasePath: "data"},
			},
		},
		Adapters: map[string]config.AdapterConfig{
			"A": fileAdapter("a.csv"),
			"B": fileAdapter("b.csv"),
		},
		Models: map[string]config.ModelConfig{
			"C": {SQL: "SELECT a.id, a.x + b.y AS s FROM A a JOIN B b USING (id)"},
			"D": {SQL: "SELECT count(*) AS n FROM C"},
		},
	}
}

func TestBuildDiamond(t *testing.T) {
	g, err := Build(diamondConfig())
	require.NoError(t, err)

	assert.Equal(t, []domain.Node{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}}, g.Nodes)
	assert.Equal(t, []domain.Edge{
		{From: "A", To: "C"},
		{From: "B", To: "C"},
		{From: "C", To: "D"},
	}, g.Edges)
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Build(diamondConfig())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Build(diamondConfig())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildRepeatedReferenceSingleEdge(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["C"] = config.ModelConfig{
		SQL: "SELECT * FROM A a1 JOIN A a2 ON a1.id = a2.parent_id JOIN B USING (id)",
	}
	g, err := Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, []domain.Edge{
		{From: "A", To: "C"},
		{From: "B", To: "C"},
		{From: "C", To: "D"},
	}, g.Edges)
}

func TestBuildRefTemplate(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["D"] = config.ModelConfig{SQL: "SELECT count(*) AS n FROM ref('C')"}
	g, err := Build(cfg)
	require.NoError(t, err)
	assert.Contains(t, g.Edges, domain.Edge{From: "C", To: "D"})
}

func TestBuildReferenceCaseInsensitive(t *testing.T) {
	cfg := diamondConfig()
	// Unquoted identifiers resolve case-insensitively at query time, so
	// a differently cased spelling still has to bind to the node.
	cfg.Models["D"] = config.ModelConfig{SQL: "SELECT count(*) AS n FROM c"}
	cfg.Models["E"] = config.ModelConfig{SQL: "SELECT * FROM a JOIN b USING (id)"}

	g, err := Build(cfg)
	require.NoError(t, err)
	assert.Contains(t, g.Edges, domain.Edge{From: "C", To: "D"})
	assert.Contains(t, g.Edges, domain.Edge{From: "A", To: "E"})
	assert.Contains(t, g.Edges, domain.Edge{From: "B", To: "E"})
}

func TestBuildNamesCollideByCase(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["c"] = config.ModelConfig{SQL: "SELECT 1"}

	_, err := Build(cfg)
	var ci *domain.ConfigInvalidError
	require.ErrorAs(t, err, &ci)
	assert.Contains(t, err.Error(), "same table")
}

func TestBuildUnknownReference(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["D"] = config.ModelConfig{SQL: "SELECT * FROM mystery"}

	_, err := Build(cfg)
	var ur *domain.UnknownReferenceError
	require.ErrorAs(t, err, &ur)
	assert.Equal(t, "D", ur.Model)
	assert.Equal(t, "mystery", ur.Reference)
}

func TestBuildCycle(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["C"] = config.ModelConfig{SQL: "SELECT * FROM D"}

	_, err := Build(cfg)
	var cd *domain.CyclicDependencyError
	require.ErrorAs(t, err, &cd)
	require.Len(t, cd.Cycle, 3)
	assert.Equal(t, cd.Cycle[0], cd.Cycle[len(cd.Cycle)-1])
	assert.ElementsMatch(t, []string{"C", "D"}, cd.Cycle[:2])
}

func TestBuildSelfReference(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["D"] = config.ModelConfig{SQL: "SELECT * FROM D"}

	_, err := Build(cfg)
	var cd *domain.CyclicDependencyError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, []string{"D", "D"}, cd.Cycle)
}

func TestBuildDuplicateName(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["A"] = config.ModelConfig{SQL: "SELECT 1"}

	_, err := Build(cfg)
	var ci *domain.ConfigInvalidError
	assert.ErrorAs(t, err, &ci)
}

func TestBuildInvalidSQL(t *testing.T) {
	cfg := diamondConfig()
	cfg.Models["D"] = config.ModelConfig{SQL: "SELECT * FROM (C"}

	_, err := Build(cfg)
	var ci *domain.ConfigInvalidError
	assert.ErrorAs(t, err, &ci)
}
