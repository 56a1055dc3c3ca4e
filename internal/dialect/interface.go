package dialect

// Dialect abstracts the source-database specific SQL used to read catalog
// metadata and to page through table rows.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection). Bind arguments are listed
	// next to each query.
	CurrentSchemaQuery() string  // no args
	GetTablesQuery() string      // schema
	GetColumnsQuery() string     // schema, table
	GetPrimaryKeysQuery() string // schema, table

	// Query Generation
	QuoteIdent(name string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1 etc.

	// Paginate appends a deterministic ORDER BY and an offset/limit clause
	// to query. argIndex is the index of the next bind placeholder; the
	// returned args must be appended after the query's own arguments.
	Paginate(query, orderBy string, argIndex int, offset, limit int64) (string, []any)

	// Helpers
	NormalizeType(sqlType string) string
}
