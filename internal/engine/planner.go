package engine

import (
	"context"
	"fmt"

	"db-transfer/internal/gateway"
	"db-transfer/internal/schema"

	"go.uber.org/zap"
)

// Planner decides how a table is synchronised. It keeps no state between
// runs: every decision is derived from what the destination holds now, so a
// rerun after a crash resumes where the last committed batch left off.
type Planner struct {
	dest   Destination
	logger *zap.Logger
}

func NewPlanner(dest Destination, logger *zap.Logger) *Planner {
	return &Planner{dest: dest, logger: logger}
}

func (p *Planner) Plan(ctx context.Context, table *schema.Table) (SyncDecision, error) {
	switch len(table.PrimaryKey) {
	case 0:
		return SyncDecision{Mode: ModeFull, Truncate: true, Reason: "no primary key"}, nil

	case 1:
		destName := table.DestinationName()
		pk := table.PrimaryKey[0]
		watermark, err := p.dest.MaxValue(ctx, destName, pk)
		if err != nil {
			return SyncDecision{}, fmt.Errorf("failed to read watermark of %s: %w", destName, err)
		}
		if watermark == nil {
			return SyncDecision{Mode: ModeIncremental, Reason: "destination empty"}, nil
		}
		return SyncDecision{
			Mode:      ModeIncremental,
			Predicate: &gateway.Predicate{Column: pk, Value: watermark},
			Reason:    "watermark",
		}, nil

	default:
		p.logger.Warn("composite primary key, falling back to full sync",
			zap.String("source", table.Source),
			zap.String("table", table.Name),
			zap.Strings("primary_key", table.PrimaryKey))
		return SyncDecision{Mode: ModeFull, Truncate: true, Reason: "composite primary key"}, nil
	}
}
