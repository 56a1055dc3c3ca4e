package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-transfer/internal/dialect"
)

// Inspector reads table, column and primary key metadata from one source
// database's catalog. Every query is read-only; an empty result is returned
// as an empty slice, never as an error.
type Inspector struct {
	db     *sql.DB
	d      dialect.Dialect
	schema string
}

func NewInspector(db *sql.DB, d dialect.Dialect, schemaName string) *Inspector {
	return &Inspector{db: db, d: d, schema: schemaName}
}

// ResolveSchema returns configured when set, otherwise the session's current
// schema as reported by the source.
func ResolveSchema(ctx context.Context, db *sql.DB, d dialect.Dialect, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	var name sql.NullString
	if err := db.QueryRowContext(ctx, d.CurrentSchemaQuery()).Scan(&name); err != nil {
		return "", fmt.Errorf("failed to get current schema: %w", err)
	}
	if !name.Valid || name.String == "" {
		return "", fmt.Errorf("no schema selected for %s source", d.Name())
	}
	return name.String, nil
}

// ListTables returns the base tables of the schema in name order.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, i.d.GetTablesQuery(), i.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the table's columns in ordinal order.
func (i *Inspector) ListColumns(ctx context.Context, table string) ([]*Column, error) {
	rows, err := i.db.QueryContext(ctx, i.d.GetColumnsQuery(), i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns := []*Column{}
	for rows.Next() {
		var cName, dType, isNull sql.NullString
		var cLen, cPrec, cScale sql.NullString // Use String for safety

		if err := rows.Scan(&cName, &dType, &isNull, &cLen, &cPrec, &cScale); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", table, err)
		}
		if !cName.Valid {
			continue // Skip invalid rows
		}

		nullable := strings.ToUpper(isNull.String)
		columns = append(columns, &Column{
			Name:       cName.String,
			DataType:   i.d.NormalizeType(dType.String),
			IsNullable: nullable == "YES" || nullable == "Y",
			Length:     parseNullInt(cLen),
			Precision:  parseNullInt(cPrec),
			Scale:      parseNullInt(cScale),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return columns, nil
}

// PrimaryKeyColumns returns the primary key columns in key order.
func (i *Inspector) PrimaryKeyColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, i.d.GetPrimaryKeysQuery(), i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key of %s: %w", table, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		keys = append(keys, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key columns: %w", err)
	}
	return keys, nil
}

// Describe assembles the full descriptor of one table.
func (i *Inspector) Describe(ctx context.Context, source, table string) (*Table, error) {
	columns, err := i.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no columns", i.schema, table)
	}
	keys, err := i.PrimaryKeyColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	t := &Table{Source: source, Name: table, Columns: columns, PrimaryKey: keys}
	for _, k := range keys {
		if c := t.Column(k); c != nil {
			c.IsPK = true
		}
	}
	return t, nil
}

// parseNullInt handles catalogs that report sizes as integers, decimals or
// strings depending on the driver.
func parseNullInt(s sql.NullString) sql.NullInt64 {
	if !s.Valid || s.String == "" {
		return sql.NullInt64{}
	}
	var length int64
	if _, err := fmt.Sscanf(s.String, "%d", &length); err == nil {
		return sql.NullInt64{Int64: length, Valid: true}
	}
	var fLength float64
	if _, err := fmt.Sscanf(s.String, "%f", &fLength); err == nil {
		return sql.NullInt64{Int64: int64(fLength), Valid: true}
	}
	return sql.NullInt64{}
}
