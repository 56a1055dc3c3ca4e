package dialect

import (
	"fmt"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) CurrentSchemaQuery() string {
	return `SELECT DATABASE()`
}

func (d *MysqlDialect) GetTablesQuery() string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MysqlDialect) GetColumnsQuery() string {
	return `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
}

func (d *MysqlDialect) GetPrimaryKeysQuery() string {
	return `SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY' ORDER BY ORDINAL_POSITION`
}

func (d *MysqlDialect) QuoteIdent(name string) string {
	return QuoteWith(name, "`", "`")
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) Paginate(query, orderBy string, argIndex int, offset, limit int64) (string, []any) {
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	return fmt.Sprintf("%s LIMIT %s OFFSET %s", query, d.Placeholder(argIndex), d.Placeholder(argIndex+1)), []any{limit, offset}
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	// DATA_TYPE drops the unsigned attribute, so integers are widened one
	// step to hold both ranges. bigint unsigned above MaxInt64 does not fit.
	switch t {
	case "tinyint":
		return "smallint"
	case "smallint", "mediumint":
		return "int"
	case "int", "integer":
		return "bigint"
	default:
		return t
	}
}
