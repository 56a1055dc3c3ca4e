package dialect

import (
	"strings"

	_ "github.com/sijms/go-ora/v2" // Oracle Driver
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) CurrentSchemaQuery() string {
	return `SELECT USER FROM DUAL`
}

func (d *OracleDialect) GetTablesQuery() string {
	// ALL_TABLES excludes views; nested and temporary tables are filtered out.
	return `SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 AND NESTED = 'NO' AND TEMPORARY = 'N' ORDER BY TABLE_NAME`
}

func (d *OracleDialect) GetColumnsQuery() string {
	return `
SELECT
    t.COLUMN_NAME,
    t.DATA_TYPE,
    t.NULLABLE,
    t.CHAR_LENGTH,
    t.DATA_PRECISION,
    t.DATA_SCALE
FROM ALL_TAB_COLUMNS t
WHERE t.OWNER = :1 AND t.TABLE_NAME = :2
ORDER BY t.COLUMN_ID`
}

func (d *OracleDialect) GetPrimaryKeysQuery() string {
	return `
SELECT cc.COLUMN_NAME
FROM ALL_CONSTRAINTS c
JOIN ALL_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
WHERE c.CONSTRAINT_TYPE = 'P' AND c.OWNER = :1 AND c.TABLE_NAME = :2
ORDER BY cc.POSITION`
}

func (d *OracleDialect) QuoteIdent(name string) string {
	// Oracle names are case sensitive when quoted; the catalog reports the stored case.
	return QuoteWith(name, `"`, `"`)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return ":" + itoa(index+1)
}

func (d *OracleDialect) Paginate(query, orderBy string, argIndex int, offset, limit int64) (string, []any) {
	return offsetFetch(d, query, orderBy, argIndex, offset, limit, "ROWID")
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := DefaultNormalizeType(sqlType)
	switch {
	case s == "date":
		// Oracle DATE carries a time of day.
		return "datetime"
	case strings.HasPrefix(s, "timestamp"):
		return s
	case strings.HasPrefix(s, "interval"):
		return "varchar2"
	default:
		return s
	}
}
