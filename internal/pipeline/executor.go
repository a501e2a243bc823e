package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/featherbox/featherbox/internal/domain"
)

// Skip reasons recorded on skipped action rows.
const (
	reasonUpstreamFailed = "upstream_failed"
	reasonFiltered       = "filtered"
	reasonCancelled      = "cancelled"
	reasonAborted        = "aborted"
)

// Options tunes executor behavior for one run.
type Options struct {
	// Parallelism caps concurrent actions within a level; 0 means the
	// number of logical CPUs.
	Parallelism int

	// ContinueOnFailure keeps independent branches running after a
	// failure. The pipeline still finishes failed.
	ContinueOnFailure bool

	// RetryAttempts is the number of retries after the first try for
	// retryable errors. Zero picks the default of 3; negative disables
	// retries.
	RetryAttempts int

	// RetryDelay is the initial back-off delay; it doubles per retry.
	RetryDelay time.Duration

	// ActionTimeout bounds one action; zero means no deadline.
	ActionTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = 3
	} else if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// Runner executes a single planned action. *ActionRunner is the real
// implementation.
type Runner interface {
	Run(ctx context.Context, a PlannedAction) error
}

// Executor walks a plan: drops first, then live levels in order, with
// per-level parallelism, retry on retryable errors, and downstream skip
// propagation. Every state transition is written to the store before or
// after the corresponding side effect, never concurrently with it.
type Executor struct {
	runner Runner
	store  domain.PipelineStore
	log    *slog.Logger
	opts   Options
}

// NewExecutor creates an Executor.
func NewExecutor(runner Runner, store domain.PipelineStore, logger *slog.Logger, opts Options) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, store: store, log: logger, opts: opts.withDefaults()}
}

// scheduled pairs a stored action row with its plan entry.
type scheduled struct {
	row     domain.Action
	planned PlannedAction
}

// outcome is one node's terminal result. propagate marks outcomes that
// skip downstream nodes (failures and upstream-failed skips; filter
// skips do not propagate because the node's table still exists).
type outcome struct {
	status    domain.ActionStatus
	propagate bool
}

type outcomeBoard struct {
	mu sync.Mutex
	m  map[string]outcome
}

func newOutcomeBoard() *outcomeBoard {
	return &outcomeBoard{m: map[string]outcome{}}
}

func (b *outcomeBoard) set(node string, o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[node] = o
}

// upstreamBad reports whether any direct parent of node ended in a
// propagating bad state. Parents without an action this pipeline are
// unchanged nodes whose tables are intact.
func (b *outcomeBoard) upstreamBad(g domain.Graph, node string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, parent := range g.Parents(node) {
		if o, ok := b.m[parent]; ok && o.propagate {
			return true
		}
	}
	return false
}

// Execute records the plan's actions and runs them, returning the
// pipeline's terminal status. The caller closes the pipeline row with
// the returned status.
func (e *Executor) Execute(ctx context.Context, pipelineID string, g domain.Graph, plan *Plan) (domain.PipelineStatus, error) {
	rows, planned := planRows(plan)
	inserted, err := e.store.InsertActions(ctx, pipelineID, rows)
	if err != nil {
		return domain.PipelineFailed, err
	}

	var drops []scheduled
	byLevel := map[int][]scheduled{}
	for i, row := range inserted {
		s := scheduled{row: row, planned: planned[i]}
		switch {
		case row.Status == domain.ActionSkipped:
			// Filtered out before execution; already terminal.
		case s.planned.Kind == KindDrop:
			drops = append(drops, s)
		default:
			byLevel[s.planned.Level] = append(byLevel[s.planned.Level], s)
		}
	}
	// Levels are depths in the full graph and may have gaps when the
	// affected set starts below the roots.
	depths := make([]int, 0, len(byLevel))
	for d := range byLevel {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	levels := make([][]scheduled, 0, len(byLevel))
	for _, d := range depths {
		levels = append(levels, byLevel[d])
	}

	board := newOutcomeBoard()
	anyFailed := false

	for _, s := range drops {
		if ctx.Err() != nil {
			break
		}
		if err := e.runOne(ctx, s, board); err != nil {
			anyFailed = true
		}
	}

	aborted := false
	for _, level := range levels {
		if len(level) == 0 {
			continue
		}

		for _, s := range level {
			switch {
			case ctx.Err() != nil:
				e.skip(ctx, s, reasonCancelled, board)
			case board.upstreamBad(g, s.planned.NodeName):
				e.skip(ctx, s, reasonUpstreamFailed, board)
			case aborted:
				e.skip(ctx, s, reasonAborted, board)
			}
		}
		if ctx.Err() != nil || aborted {
			continue
		}

		grp := new(errgroup.Group)
		grp.SetLimit(e.opts.Parallelism)
		var mu sync.Mutex
		levelFailed := false
		for _, s := range level {
			if board.has(s.planned.NodeName) {
				continue // skipped above
			}
			grp.Go(func() error {
				if err := e.runOne(ctx, s, board); err != nil {
					mu.Lock()
					levelFailed = true
					mu.Unlock()
				}
				return nil
			})
		}
		_ = grp.Wait()

		if levelFailed {
			anyFailed = true
			if !e.opts.ContinueOnFailure {
				aborted = true
			}
		}
	}

	switch {
	case ctx.Err() != nil:
		return domain.PipelineCancelled, nil
	case anyFailed:
		return domain.PipelineFailed, nil
	default:
		return domain.PipelineCompleted, nil
	}
}

func (b *outcomeBoard) has(node string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.m[node]
	return ok
}

// runOne drives a single action through the state machine: running,
// then completed or failed, retrying retryable errors with exponential
// back-off.
func (e *Executor) runOne(ctx context.Context, s scheduled, board *outcomeBoard) error {
	node := s.planned.NodeName
	log := e.log.With("pipeline", s.row.PipelineID, "node", node, "kind", string(s.planned.Kind))

	if err := e.store.MarkActionRunning(ctx, s.row.ID); err != nil {
		return err
	}
	log.Info("action started")

	actx := ctx
	var cancel context.CancelFunc
	if e.opts.ActionTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, e.opts.ActionTimeout)
		defer cancel()
	}

	op := func() error {
		err := e.runner.Run(actx, s.planned)
		if err == nil {
			return nil
		}
		ae := domain.ActionErrorFrom(err)
		if !ae.Retryable() {
			return backoff.Permanent(ae)
		}
		return ae
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.opts.RetryDelay
	bo.MaxElapsedTime = 0

	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.opts.RetryAttempts)), actx),
		func(err error, next time.Duration) {
			log.Warn("action retrying", "error", err, "next_attempt_in", next)
		})

	if err == nil {
		if ferr := e.store.FinishAction(ctx, s.row.ID, domain.ActionCompleted, nil); ferr != nil {
			return ferr
		}
		board.set(node, outcome{status: domain.ActionCompleted})
		log.Info("action completed")
		return nil
	}

	ae := domain.ActionErrorFrom(err)
	msg := ae.Error()
	// Terminal writes use a detached context so a cancelled run still
	// records its state.
	if ferr := e.store.FinishAction(context.WithoutCancel(ctx), s.row.ID, domain.ActionFailed, &msg); ferr != nil {
		return ferr
	}
	board.set(node, outcome{status: domain.ActionFailed, propagate: true})
	log.Error("action failed", "error", ae, "kind", string(ae.Kind))
	return ae
}

// skip marks an action skipped without running it.
func (e *Executor) skip(ctx context.Context, s scheduled, reason string, board *outcomeBoard) {
	r := reason
	if err := e.store.FinishAction(context.WithoutCancel(ctx), s.row.ID, domain.ActionSkipped, &r); err != nil {
		e.log.Error("record skip", "node", s.planned.NodeName, "error", err)
	}
	board.set(s.planned.NodeName, outcome{
		status:    domain.ActionSkipped,
		propagate: reason == reasonUpstreamFailed,
	})
	e.log.Info("action skipped", "node", s.planned.NodeName, "reason", reason)
}

// planRows flattens a plan into insertable action rows plus the aligned
// plan entries. Execution order is one running sequence across drops,
// live actions, and filtered actions, so every row gets a distinct
// slot; the level stays on the plan entry as the scheduling key.
// Filtered actions are recorded as already skipped.
func planRows(plan *Plan) ([]domain.Action, []PlannedAction) {
	var rows []domain.Action
	var planned []PlannedAction

	next := 0
	for _, d := range plan.Drops {
		rows = append(rows, domain.Action{NodeName: d.NodeName, ExecutionOrder: next})
		next++
		planned = append(planned, d)
	}
	for _, level := range plan.Levels {
		for _, a := range level {
			rows = append(rows, domain.Action{
				NodeName:       a.NodeName,
				ExecutionOrder: next,
				Since:          a.Since,
				Until:          a.Until,
			})
			next++
			planned = append(planned, a)
		}
	}
	filteredReason := reasonFiltered
	for _, a := range plan.Filtered {
		rows = append(rows, domain.Action{
			NodeName:       a.NodeName,
			ExecutionOrder: next,
			Since:          a.Since,
			Until:          a.Until,
			Status:         domain.ActionSkipped,
			Error:          &filteredReason,
		})
		next++
		planned = append(planned, a)
	}
	return rows, planned
}
