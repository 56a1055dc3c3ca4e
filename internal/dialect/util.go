package dialect

import (
	"strconv"
	"strings"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(strings.TrimSpace(sqlType))
}

// QuoteWith wraps name in open/close, doubling any embedded close character.
func QuoteWith(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// QualifiedTable renders schema.table with the dialect's identifier quoting.
func QualifiedTable(d Dialect, schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// QuoteList quotes and comma-joins identifiers in the given order.
func QuoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// offsetFetch is the ANSI OFFSET ... FETCH NEXT form shared by SQL Server and
// Oracle. Both require an ORDER BY.
func offsetFetch(d Dialect, query, orderBy string, argIndex int, offset, limit int64, fallbackOrder string) (string, []any) {
	if orderBy == "" {
		orderBy = fallbackOrder
	}
	q := query + " ORDER BY " + orderBy +
		" OFFSET " + d.Placeholder(argIndex) + " ROWS FETCH NEXT " + d.Placeholder(argIndex+1) + " ROWS ONLY"
	return q, []any{offset, limit}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
