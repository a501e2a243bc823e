package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featherbox/featherbox/internal/db"
	"github.com/featherbox/featherbox/internal/domain"
)

func testGraph() (domain.Graph, map[string]string) {
	g := domain.Graph{
		Nodes: []domain.Node{{Name: "events"}, {Name: "daily"}, {Name: "weekly"}},
		Edges: []domain.Edge{
			{From: "events", To: "daily"},
			{From: "daily", To: "weekly"},
		},
	}
	fps := map[string]string{"events": "fp-e", "daily": "fp-d", "weekly": "fp-w"}
	return g, fps
}

func TestGraphRepoSaveAndLoad(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewGraphRepo(writeDB, readDB)
	ctx := context.Background()

	g, fps := testGraph()
	id, err := repo.SaveGraph(ctx, g, fps)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, gotFPs, err := repo.LoadGraph(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []domain.Node{{Name: "daily"}, {Name: "events"}, {Name: "weekly"}}, got.Nodes)
	assert.Equal(t, []domain.Edge{
		{From: "daily", To: "weekly"},
		{From: "events", To: "daily"},
	}, got.Edges)
	assert.Equal(t, fps, gotFPs)
}

func TestGraphRepoIDsIncrease(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewGraphRepo(writeDB, readDB)
	ctx := context.Background()

	g, fps := testGraph()
	first, err := repo.SaveGraph(ctx, g, fps)
	require.NoError(t, err)
	second, err := repo.SaveGraph(ctx, g, fps)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	latest, err := repo.LatestGraphID(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest)
}

func TestGraphRepoMissingFingerprintRollsBack(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewGraphRepo(writeDB, readDB)
	ctx := context.Background()

	g, _ := testGraph()
	_, err := repo.SaveGraph(ctx, g, map[string]string{"events": "fp-e"})
	require.Error(t, err)

	_, err = repo.LatestGraphID(ctx)
	assert.ErrorIs(t, err, domain.ErrNoGraph)
}

func TestGraphRepoEmpty(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewGraphRepo(writeDB, readDB)
	ctx := context.Background()

	_, err := repo.LatestGraphID(ctx)
	assert.ErrorIs(t, err, domain.ErrNoGraph)

	_, _, err = repo.LoadGraph(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNoGraph)

	_, err = repo.LatestPipelineGraphID(ctx)
	assert.ErrorIs(t, err, domain.ErrNoGraph)
}

func TestGraphRepoLatestPipelineGraph(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	graphs := NewGraphRepo(writeDB, readDB)
	pipelines := NewPipelineRepo(writeDB, readDB)
	ctx := context.Background()

	g, fps := testGraph()
	first, err := graphs.SaveGraph(ctx, g, fps)
	require.NoError(t, err)

	p, err := pipelines.CreatePipeline(ctx, first)
	require.NoError(t, err)
	require.NoError(t, pipelines.FinishPipeline(ctx, p.ID, domain.PipelineCompleted))

	// A newer graph without a pipeline must not move the anchor.
	_, err = graphs.SaveGraph(ctx, g, fps)
	require.NoError(t, err)

	anchor, err := graphs.LatestPipelineGraphID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, anchor)
}

func TestGraphRepoAnchorIgnoresUnfinishedRuns(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	graphs := NewGraphRepo(writeDB, readDB)
	pipelines := NewPipelineRepo(writeDB, readDB)
	ctx := context.Background()

	g, fps := testGraph()
	first, err := graphs.SaveGraph(ctx, g, fps)
	require.NoError(t, err)

	// A failed pipeline never becomes the anchor.
	p, err := pipelines.CreatePipeline(ctx, first)
	require.NoError(t, err)
	require.NoError(t, pipelines.FinishPipeline(ctx, p.ID, domain.PipelineFailed))

	_, err = graphs.LatestPipelineGraphID(ctx)
	assert.ErrorIs(t, err, domain.ErrNoGraph)

	// Neither does a pipeline that is still running.
	second, err := graphs.SaveGraph(ctx, g, fps)
	require.NoError(t, err)
	_, err = pipelines.CreatePipeline(ctx, second)
	require.NoError(t, err)

	_, err = graphs.LatestPipelineGraphID(ctx)
	assert.ErrorIs(t, err, domain.ErrNoGraph)

	// Once a pipeline completes, later failures do not move the anchor.
	done, err := pipelines.CreatePipeline(ctx, first)
	require.NoError(t, err)
	require.NoError(t, pipelines.FinishPipeline(ctx, done.ID, domain.PipelineCompleted))

	bad, err := pipelines.CreatePipeline(ctx, second)
	require.NoError(t, err)
	require.NoError(t, pipelines.FinishPipeline(ctx, bad.ID, domain.PipelineCancelled))

	anchor, err := graphs.LatestPipelineGraphID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, anchor)
}

func TestGraphRepoStoreErrorWraps(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewGraphRepo(writeDB, readDB)

	g, _ := testGraph()
	_, err := repo.SaveGraph(context.Background(), g, nil)
	var se *domain.StoreError
	assert.True(t, errors.As(err, &se))
}
