package engine

import (
	"context"
	"fmt"
	"time"

	"db-transfer/internal/schema"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tune a transfer run.
type Options struct {
	BatchSize  int64
	Workers    int // tables copied concurrently, at least 1
	OnProgress ProgressFunc
}

// Orchestrator drives the planner and the copier over a selection of
// tables. A failing table never stops the others.
type Orchestrator struct {
	registry *Registry
	planner  *Planner
	copier   *Copier
	workers  int
	logger   *zap.Logger
}

func NewOrchestrator(registry *Registry, opts Options, logger *zap.Logger) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		registry: registry,
		planner:  NewPlanner(registry.Destination(), logger),
		copier:   NewCopier(registry.Destination(), opts.BatchSize, logger, opts.OnProgress),
		workers:  workers,
		logger:   logger,
	}
}

// job is one resolved table, or a failure that happened while resolving.
type job struct {
	ref TableRef
	err error
}

// PlannedTable is the decision Run would take for one table.
type PlannedTable struct {
	Ref      TableRef
	Table    *schema.Table
	Decision SyncDecision
	Err      error
}

// Run transfers the selected tables, or every table of every source when
// selection is empty, and closes the registry before returning.
func (o *Orchestrator) Run(ctx context.Context, selection []TableRef) (TransferSummary, error) {
	defer o.Close()
	start := time.Now()

	jobs := o.resolve(ctx, selection)
	o.logger.Info("starting transfer", zap.Int("tables", len(jobs)), zap.Int("workers", o.workers))

	results := make([]TransferResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = failed(j.ref, err)
			continue
		}
		if j.err != nil {
			results[i] = failed(j.ref, j.err)
			continue
		}
		i, j := i, j
		g.Go(func() error {
			results[i] = o.transferTable(ctx, j.ref)
			return nil
		})
	}
	_ = g.Wait()

	summary := newSummary(results, time.Since(start))
	o.logger.Info("transfer finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int64("rows", summary.RowsTransferred),
		zap.Duration("elapsed", summary.Duration))
	return summary, ctx.Err()
}

// Preview describes and plans the selected tables without copying anything.
func (o *Orchestrator) Preview(ctx context.Context, selection []TableRef) []PlannedTable {
	jobs := o.resolve(ctx, selection)
	plans := make([]PlannedTable, 0, len(jobs))
	for _, j := range jobs {
		plan := PlannedTable{Ref: j.ref, Err: j.err}
		if plan.Err == nil {
			plan.Table, plan.Decision, plan.Err = o.plan(ctx, j.ref)
		}
		plans = append(plans, plan)
	}
	return plans
}

// Close releases every connection of the registry. It is safe to call more
// than once.
func (o *Orchestrator) Close() error {
	return o.registry.Close()
}

func (o *Orchestrator) transferTable(ctx context.Context, ref TableRef) TransferResult {
	table, decision, err := o.plan(ctx, ref)
	if err != nil {
		res := failed(ref, err)
		o.logger.Error("table skipped", zap.String("source", ref.Source), zap.String("table", ref.Table), zap.Error(err))
		return res
	}

	o.logger.Info("sync decision",
		zap.String("source", ref.Source),
		zap.String("table", ref.Table),
		zap.String("mode", string(decision.Mode)),
		zap.String("predicate", decision.PredicateText()),
		zap.String("reason", decision.Reason))

	conn, _ := o.registry.Source(ref.Source)
	return o.copier.Execute(ctx, conn.Reader, table, table.DestinationName(), decision)
}

func (o *Orchestrator) plan(ctx context.Context, ref TableRef) (*schema.Table, SyncDecision, error) {
	conn, ok := o.registry.Source(ref.Source)
	if !ok {
		return nil, SyncDecision{}, &SchemaIntrospectionError{Source: ref.Source, Table: ref.Table, Err: fmt.Errorf("unknown source")}
	}
	table, err := conn.Catalog.Describe(ctx, ref.Source, ref.Table)
	if err != nil {
		return nil, SyncDecision{}, &SchemaIntrospectionError{Source: ref.Source, Table: ref.Table, Err: err}
	}
	decision, err := o.planner.Plan(ctx, table)
	if err != nil {
		return table, SyncDecision{}, err
	}
	return table, decision, nil
}

// resolve expands whole-source selections into tables. A source whose tables
// cannot be listed yields one failed job.
func (o *Orchestrator) resolve(ctx context.Context, selection []TableRef) []job {
	if len(selection) == 0 {
		for _, conn := range o.registry.Sources() {
			selection = append(selection, TableRef{Source: conn.Name})
		}
	}

	var jobs []job
	for _, ref := range selection {
		if ref.Table != "" {
			jobs = append(jobs, job{ref: ref})
			continue
		}
		conn, ok := o.registry.Source(ref.Source)
		if !ok {
			jobs = append(jobs, job{ref: ref, err: &SchemaIntrospectionError{Source: ref.Source, Table: "*", Err: fmt.Errorf("unknown source")}})
			continue
		}
		tables, err := conn.Catalog.ListTables(ctx)
		if err != nil {
			jobs = append(jobs, job{ref: ref, err: &SchemaIntrospectionError{Source: ref.Source, Table: "*", Err: err}})
			continue
		}
		for _, t := range tables {
			jobs = append(jobs, job{ref: TableRef{Source: ref.Source, Table: t}})
		}
	}
	// "sales sales:Orders" names Orders twice once sales is expanded.
	return lo.UniqBy(jobs, func(j job) TableRef { return j.ref })
}

func failed(ref TableRef, err error) TransferResult {
	now := time.Now()
	table, destName := "*", ""
	if ref.Table != "" {
		table, destName = ref.Table, schema.DestinationName(ref.Source, ref.Table)
	}
	return TransferResult{
		Source:          ref.Source,
		Table:           table,
		Destination:     destName,
		DestinationRows: -1,
		Err:             err,
		StartedAt:       now,
		FinishedAt:      now,
	}
}
