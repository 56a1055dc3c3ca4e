package engine

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// TableRef names one source table. An empty Table stands for every base
// table of the source.
type TableRef struct {
	Source string
	Table  string
}

func (r TableRef) String() string {
	if r.Table == "" {
		return r.Source + ":*"
	}
	return r.Source + ":" + r.Table
}

// ParseSelection parses "source:table" items. Items may be comma separated;
// "source" and "source:*" select a whole source. Duplicates are dropped and
// the first-seen order is kept.
func ParseSelection(items []string) ([]TableRef, error) {
	parts := lo.FlatMap(items, func(item string, _ int) []string {
		return strings.Split(item, ",")
	})
	parts = lo.Compact(lo.Map(parts, func(p string, _ int) string { return strings.TrimSpace(p) }))

	refs := make([]TableRef, 0, len(parts))
	for _, p := range lo.Uniq(parts) {
		source, table, found := strings.Cut(p, ":")
		source = strings.TrimSpace(source)
		table = strings.TrimSpace(table)
		if source == "" {
			return nil, fmt.Errorf("invalid table selection %q: expected source:table", p)
		}
		if found && table == "" {
			return nil, fmt.Errorf("invalid table selection %q: missing table name", p)
		}
		if table == "*" {
			table = ""
		}
		refs = append(refs, TableRef{Source: source, Table: table})
	}
	return lo.Uniq(refs), nil
}
