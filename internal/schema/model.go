package schema

import (
	"database/sql"
	"fmt"

	"db-transfer/internal/typemap"
)

type Table struct {
	Source     string // owning source database name
	Name       string
	Columns    []*Column // ordinal order
	PrimaryKey []string  // key order, empty when the table has none
}

type Column struct {
	Name       string
	DataType   string // normalised source type
	IsNullable bool
	IsPK       bool
	Length     sql.NullInt64
	Precision  sql.NullInt64
	Scale      sql.NullInt64
}

// Metadata returns the size information the type catalog works from.
func (c *Column) Metadata() typemap.Metadata {
	return typemap.Metadata{Length: c.Length, Precision: c.Precision, Scale: c.Scale}
}

// MappedType reports the ClickHouse type of the column and whether the
// source type was known to the catalog.
func (c *Column) MappedType() (string, bool) {
	return typemap.Lookup(c.DataType, c.Metadata())
}

// DestinationType is the ClickHouse column type, Nullable-wrapped when the
// source column accepts NULL.
func (c *Column) DestinationType() string {
	chType := typemap.Map(c.DataType, c.Metadata())
	if c.IsNullable {
		return typemap.Nullable(chType)
	}
	return chType
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// DestinationName is the replicated table name: {source}_{table}.
func (t *Table) DestinationName() string {
	return DestinationName(t.Source, t.Name)
}

func DestinationName(source, table string) string {
	return fmt.Sprintf("%s_%s", source, table)
}
