package engine

import (
	"context"

	"db-transfer/internal/gateway"
	"db-transfer/internal/schema"
)

// SourceReader pages rows out of one source database.
type SourceReader interface {
	Name() string
	RowCount(ctx context.Context, table string, pred *gateway.Predicate) (int64, error)
	ExtractPage(ctx context.Context, table *schema.Table, offset, limit int64, pred *gateway.Predicate) ([][]any, error)
}

// Catalog reads table metadata of one source database.
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, source, table string) (*schema.Table, error)
}

// Destination is the analytical store tables are copied into.
type Destination interface {
	TableExists(ctx context.Context, name string) (bool, error)
	CreateTable(ctx context.Context, name string, columns []*schema.Column) error
	BulkInsert(ctx context.Context, name string, columns []string, rows [][]any) error
	MaxValue(ctx context.Context, name, column string) (any, error)
	Truncate(ctx context.Context, name string) error
	RowCount(ctx context.Context, name string) (int64, error)
}

var (
	_ SourceReader = (*gateway.Source)(nil)
	_ Catalog      = (*schema.Inspector)(nil)
	_ Destination  = (*gateway.ClickHouse)(nil)
)
