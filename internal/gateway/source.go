package gateway

import (
	"context"
	"database/sql"
	"fmt"

	"db-transfer/internal/dialect"
	"db-transfer/internal/schema"
	"db-transfer/internal/typemap"

	"github.com/samber/lo"
)

// Predicate restricts extraction to rows whose Column is strictly greater
// than Value.
type Predicate struct {
	Column string
	Value  any
}

func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s > %s", p.Column, QuoteLiteral(p.Value))
}

// Source reads rows from one relational source database. The connection is
// shared by every table of that source.
type Source struct {
	name   string
	db     *sql.DB
	d      dialect.Dialect
	schema string
}

func NewSource(name string, db *sql.DB, d dialect.Dialect, schemaName string) *Source {
	return &Source{name: name, db: db, d: d, schema: schemaName}
}

func (s *Source) Name() string { return s.name }

// where renders the predicate clause. argIndex is the first placeholder index.
func (s *Source) where(pred *Predicate, argIndex int) (string, []any) {
	if pred == nil {
		return "", nil
	}
	return fmt.Sprintf(" WHERE %s > %s", s.d.QuoteIdent(pred.Column), s.d.Placeholder(argIndex)), []any{pred.Value}
}

// RowCount counts the rows of table matching pred. A nil pred counts all rows.
func (s *Source) RowCount(ctx context.Context, table string, pred *Predicate) (int64, error) {
	where, args := s.where(pred, 0)
	query := "SELECT COUNT(*) FROM " + dialect.QualifiedTable(s.d, s.schema, table) + where

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// ExtractPage reads up to limit rows of table starting at offset, with the
// columns in ordinal order. Rows are sorted by OrderColumns so consecutive
// pages neither overlap nor skip rows on an unchanged source.
func (s *Source) ExtractPage(ctx context.Context, table *schema.Table, offset, limit int64, pred *Predicate) ([][]any, error) {
	where, args := s.where(pred, 0)
	query := fmt.Sprintf("SELECT %s FROM %s%s",
		dialect.QuoteList(s.d, table.ColumnNames()),
		dialect.QualifiedTable(s.d, s.schema, table.Name),
		where)

	orderBy := dialect.QuoteList(s.d, OrderColumns(table))
	query, pageArgs := s.d.Paginate(query, orderBy, len(args), offset, limit)
	args = append(args, pageArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at offset %d: %w", table.Name, offset, err)
	}
	defer rows.Close()

	width := len(table.Columns)
	page := make([][]any, 0, limit)
	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table.Name, err)
		}
		page = append(page, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of %s: %w", table.Name, err)
	}
	return page, nil
}

// OrderColumns is the deterministic sort key of a page read: the primary key
// when there is one, otherwise every orderable column in ordinal order.
// An empty result leaves the choice to the dialect.
func OrderColumns(table *schema.Table) []string {
	if len(table.PrimaryKey) > 0 {
		return table.PrimaryKey
	}
	orderable := lo.Filter(table.Columns, func(c *schema.Column, _ int) bool {
		return typemap.Orderable(c.DataType)
	})
	return lo.Map(orderable, func(c *schema.Column, _ int) string { return c.Name })
}
