package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/domain"
	"github.com/featherbox/featherbox/internal/graph"
)

// ActionKind distinguishes what an action does to its node's table.
type ActionKind string

// Action kinds.
const (
	KindCreate ActionKind = "create"
	KindDrop   ActionKind = "drop"
)

// PlannedAction is one node's slot in a plan. Level is the node's
// dependency depth in the full graph; drops carry zero.
type PlannedAction struct {
	NodeName string
	Kind     ActionKind
	Level    int
	Since    *time.Time
	Until    *time.Time
}

// Plan is the ordered output of differential scheduling. Drops run
// first, consumers before producers. Live actions run level by level;
// actions within a level are independent. Filtered actions were
// excluded by an explicit node selection and are recorded as skipped
// without running.
type Plan struct {
	Drops    []PlannedAction
	Levels   [][]PlannedAction
	Filtered []PlannedAction
}

// Empty reports whether the plan does nothing.
func (p *Plan) Empty() bool {
	return len(p.Drops) == 0 && len(p.Levels) == 0 && len(p.Filtered) == 0
}

// LiveCount returns the number of actions that will execute.
func (p *Plan) LiveCount() int {
	n := len(p.Drops)
	for _, level := range p.Levels {
		n += len(level)
	}
	return n
}

// Planner turns a classification into an executable plan.
type Planner struct {
	cfg   *config.Config
	store domain.PipelineStore
	now   func() time.Time
}

// NewPlanner creates a Planner. A nil now defaults to time.Now.
func NewPlanner(cfg *config.Config, store domain.PipelineStore, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{cfg: cfg, store: store, now: now}
}

// BuildPlan computes the affected set (added and modified nodes plus
// everything downstream of them), groups it by dependency depth in the
// full new graph, orders removed nodes for dropping over the previous
// graph, and assigns data windows to time-partitioned adapters. Depth
// is anchored at the graph's roots, so a partial run keeps each node's
// usual level. With a non-empty only list, live actions for unselected
// nodes are moved to Filtered.
func (p *Planner) BuildPlan(ctx context.Context, next domain.Graph, prev *domain.Graph, cls domain.Classification, only []string) (*Plan, error) {
	plan := &Plan{}

	if len(cls.Removed) > 0 && prev != nil {
		order, err := graph.DropOrder(*prev, cls.Removed)
		if err != nil {
			return nil, err
		}
		for _, name := range order {
			plan.Drops = append(plan.Drops, PlannedAction{NodeName: name, Kind: KindDrop})
		}
	}

	seeds := append(append([]string{}, cls.Added...), cls.Modified...)
	if len(seeds) == 0 {
		return plan, nil
	}
	affected := graph.Downstream(next, seeds)

	depths, err := graph.Depths(next)
	if err != nil {
		return nil, err
	}
	// affected is sorted, so each bucket stays sorted by name.
	byDepth := map[int][]string{}
	for _, name := range affected {
		byDepth[depths[name]] = append(byDepth[depths[name]], name)
	}
	order := make([]int, 0, len(byDepth))
	for d := range byDepth {
		order = append(order, d)
	}
	sort.Ints(order)

	selected := map[string]bool{}
	for _, name := range only {
		selected[name] = true
	}

	for _, depth := range order {
		var level []PlannedAction
		for _, name := range byDepth[depth] {
			a := PlannedAction{NodeName: name, Kind: KindCreate, Level: depth}
			since, until, err := p.window(ctx, name)
			if err != nil {
				return nil, err
			}
			a.Since, a.Until = since, until

			if len(only) > 0 && !selected[name] {
				plan.Filtered = append(plan.Filtered, a)
				continue
			}
			level = append(level, a)
		}
		if len(level) > 0 {
			plan.Levels = append(plan.Levels, level)
		}
	}
	return plan, nil
}

// window computes the data window for a node. Only time-partitioned
// file adapters get one: since resumes from the last completed window
// (or the configured lower bound), until is now truncated to the
// pattern's finest granularity.
func (p *Planner) window(ctx context.Context, node string) (*time.Time, *time.Time, error) {
	a, ok := p.cfg.Adapters[node]
	if !ok || a.Source.File == nil {
		return nil, nil, nil
	}
	gran := PatternGranularity(a.Source.File.Path)
	if gran == GranNone {
		return nil, nil, nil
	}

	since, err := p.store.LastCompletedUntil(ctx, node)
	if err != nil {
		return nil, nil, err
	}
	if since == nil && a.RangeSince != "" {
		t, err := ParseSince(a.RangeSince)
		if err != nil {
			return nil, nil, domain.ErrConfigInvalid("adapter %q: %v", node, err)
		}
		since = &t
	}

	until := Truncate(p.now(), gran)
	return since, &until, nil
}
