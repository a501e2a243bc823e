package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featherbox/featherbox/internal/db"
	"github.com/featherbox/featherbox/internal/domain"
)

func openPipelineRepos(t *testing.T) (*GraphRepo, *PipelineRepo) {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)
	return NewGraphRepo(writeDB, readDB), NewPipelineRepo(writeDB, readDB)
}

func seedGraph(t *testing.T, graphs *GraphRepo) int64 {
	t.Helper()
	g, fps := testGraph()
	id, err := graphs.SaveGraph(context.Background(), g, fps)
	require.NoError(t, err)
	return id
}

func TestPipelineLifecycle(t *testing.T) {
	graphs, pipelines := openPipelineRepos(t)
	ctx := context.Background()
	graphID := seedGraph(t, graphs)

	p, err := pipelines.CreatePipeline(ctx, graphID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineRunning, p.Status)
	assert.NotEmpty(t, p.ID)

	until := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	actions, err := pipelines.InsertActions(ctx, p.ID, []domain.Action{
		{NodeName: "events", ExecutionOrder: 0, Until: &until},
		{NodeName: "daily", ExecutionOrder: 1},
	})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.NotEmpty(t, actions[0].ID)
	assert.Equal(t, domain.ActionPending, actions[0].Status)

	require.NoError(t, pipelines.MarkActionRunning(ctx, actions[0].ID))
	require.NoError(t, pipelines.FinishAction(ctx, actions[0].ID, domain.ActionCompleted, nil))

	msg := "boom"
	require.NoError(t, pipelines.MarkActionRunning(ctx, actions[1].ID))
	require.NoError(t, pipelines.FinishAction(ctx, actions[1].ID, domain.ActionFailed, &msg))

	require.NoError(t, pipelines.FinishPipeline(ctx, p.ID, domain.PipelineFailed))

	got, err := pipelines.GetPipeline(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineFailed, got.Status)
	require.NotNil(t, got.FinishedAt)

	list, err := pipelines.ListActions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "events", list[0].NodeName)
	assert.Equal(t, domain.ActionCompleted, list[0].Status)
	require.NotNil(t, list[0].Until)
	assert.True(t, until.Equal(*list[0].Until))
	assert.Equal(t, domain.ActionFailed, list[1].Status)
	require.NotNil(t, list[1].Error)
	assert.Equal(t, "boom", *list[1].Error)
}

func TestPipelineGetMissing(t *testing.T) {
	_, pipelines := openPipelineRepos(t)

	_, err := pipelines.GetPipeline(context.Background(), "nope")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestPipelineDuplicateNodeRejected(t *testing.T) {
	graphs, pipelines := openPipelineRepos(t)
	ctx := context.Background()
	p, err := pipelines.CreatePipeline(ctx, seedGraph(t, graphs))
	require.NoError(t, err)

	_, err = pipelines.InsertActions(ctx, p.ID, []domain.Action{
		{NodeName: "events", ExecutionOrder: 0},
		{NodeName: "events", ExecutionOrder: 1},
	})
	require.Error(t, err)

	// The transaction rolled back; nothing was recorded.
	list, err := pipelines.ListActions(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLastCompletedUntil(t *testing.T) {
	graphs, pipelines := openPipelineRepos(t)
	ctx := context.Background()
	graphID := seedGraph(t, graphs)

	got, err := pipelines.LastCompletedUntil(ctx, "events")
	require.NoError(t, err)
	assert.Nil(t, got)

	early := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	p1, err := pipelines.CreatePipeline(ctx, graphID)
	require.NoError(t, err)
	a1, err := pipelines.InsertActions(ctx, p1.ID, []domain.Action{
		{NodeName: "events", ExecutionOrder: 0, Until: &late},
	})
	require.NoError(t, err)
	require.NoError(t, pipelines.FinishAction(ctx, a1[0].ID, domain.ActionCompleted, nil))

	p2, err := pipelines.CreatePipeline(ctx, graphID)
	require.NoError(t, err)
	a2, err := pipelines.InsertActions(ctx, p2.ID, []domain.Action{
		{NodeName: "events", ExecutionOrder: 0, Until: &early},
	})
	require.NoError(t, err)
	require.NoError(t, pipelines.FinishAction(ctx, a2[0].ID, domain.ActionCompleted, nil))

	// A failed action with a newer window must not count.
	later := late.Add(24 * time.Hour)
	p3, err := pipelines.CreatePipeline(ctx, graphID)
	require.NoError(t, err)
	a3, err := pipelines.InsertActions(ctx, p3.ID, []domain.Action{
		{NodeName: "events", ExecutionOrder: 0, Until: &later},
	})
	require.NoError(t, err)
	msg := "source gone"
	require.NoError(t, pipelines.FinishAction(ctx, a3[0].ID, domain.ActionFailed, &msg))

	got, err = pipelines.LastCompletedUntil(ctx, "events")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, late.Equal(*got))
}

func TestListPipelinesNewestFirst(t *testing.T) {
	graphs, pipelines := openPipelineRepos(t)
	ctx := context.Background()
	graphID := seedGraph(t, graphs)

	first, err := pipelines.CreatePipeline(ctx, graphID)
	require.NoError(t, err)
	second, err := pipelines.CreatePipeline(ctx, graphID)
	require.NoError(t, err)

	list, err := pipelines.ListPipelines(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
