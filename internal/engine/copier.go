package engine

import (
	"context"
	"fmt"
	"time"

	"db-transfer/internal/schema"
	"db-transfer/internal/transform"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultBatchSize = 10000

// ProgressFunc is called after every loaded batch.
type ProgressFunc func(source, table string, transferred, total int64)

// Copier runs the extract, transform and load loop for one table.
type Copier struct {
	dest       Destination
	batchSize  int64
	logger     *zap.Logger
	onProgress ProgressFunc
}

func NewCopier(dest Destination, batchSize int64, logger *zap.Logger, onProgress ProgressFunc) *Copier {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Copier{dest: dest, batchSize: batchSize, logger: logger, onProgress: onProgress}
}

// Execute copies table into destName. Failures are reported in the returned
// result together with the rows loaded before the failing batch; they are
// never returned as errors.
func (c *Copier) Execute(ctx context.Context, src SourceReader, table *schema.Table, destName string, decision SyncDecision) TransferResult {
	res := TransferResult{
		Source:          table.Source,
		Table:           table.Name,
		Destination:     destName,
		Mode:            decision.Mode,
		Predicate:       decision.PredicateText(),
		DestinationRows: -1,
		StartedAt:       time.Now(),
	}
	log := c.logger.With(
		zap.String("source", table.Source),
		zap.String("table", table.Name),
		zap.String("destination", destName),
		zap.String("mode", string(decision.Mode)))

	fail := func(err error) TransferResult {
		res.Err = err
		res.FinishedAt = time.Now()
		log.Error("table transfer failed", zap.Int64("rows", res.TransferredRows), zap.Error(err))
		return res
	}

	exists, err := c.dest.TableExists(ctx, destName)
	if err != nil {
		return fail(err)
	}
	if !exists {
		if err := c.dest.CreateTable(ctx, destName, table.Columns); err != nil {
			return fail(err)
		}
		log.Info("created destination table")
	}

	if decision.Truncate {
		if err := c.dest.Truncate(ctx, destName); err != nil {
			log.Warn("continuing full sync over existing rows", zap.Error(fmt.Errorf("%w: %w", ErrTruncate, err)))
		}
	}

	total, err := src.RowCount(ctx, table.Name, decision.Predicate)
	if err != nil {
		return fail(err)
	}
	res.TotalRows = total
	if total == 0 {
		res.Success = true
		res.FinishedAt = time.Now()
		log.Info("nothing to transfer", zap.String("predicate", res.Predicate))
		return res
	}
	log.Info("starting copy", zap.Int64("total", total), zap.String("predicate", res.Predicate))

	columns := table.ColumnNames()
	convs := lo.Map(table.Columns, func(col *schema.Column, _ int) transform.Func {
		return transform.ForColumn(col.DataType, col.Metadata())
	})

	// The offset advances by a full batch even when a page comes back short.
	for offset := int64(0); offset < total; offset += c.batchSize {
		if err := ctx.Err(); err != nil {
			return fail(&LoadBatchError{Table: table.Name, Offset: offset, Err: err})
		}

		page, err := src.ExtractPage(ctx, table, offset, c.batchSize, decision.Predicate)
		if err != nil {
			return fail(&LoadBatchError{Table: table.Name, Offset: offset, Err: err})
		}

		coerced := 0
		for _, row := range page {
			coerced += transform.Row(row, convs)
		}
		if coerced > 0 {
			log.Warn("values stored as text after failed conversion", zap.Int64("offset", offset), zap.Int("values", coerced))
			res.CoercedValues += int64(coerced)
		}

		if err := c.dest.BulkInsert(ctx, destName, columns, page); err != nil {
			return fail(&LoadBatchError{Table: table.Name, Offset: offset, Err: err})
		}
		res.TransferredRows += int64(len(page))

		log.Debug("batch loaded", zap.Int64("offset", offset), zap.Int("rows", len(page)))
		if c.onProgress != nil {
			c.onProgress(table.Source, table.Name, res.TransferredRows, total)
		}
	}

	if count, err := c.dest.RowCount(ctx, destName); err != nil {
		log.Warn("could not verify destination row count", zap.Error(err))
	} else {
		res.DestinationRows = count
	}

	res.Success = true
	res.FinishedAt = time.Now()
	log.Info("table transferred", zap.Int64("rows", res.TransferredRows), zap.Duration("elapsed", res.Duration()))
	return res
}
