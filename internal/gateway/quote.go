package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var identReplacer = strings.NewReplacer("\\", "\\\\", "`", "\\`")

// QuoteIdent quotes a ClickHouse identifier with backticks.
func QuoteIdent(name string) string {
	return "`" + identReplacer.Replace(name) + "`"
}

// QuoteTable renders database.table, or just the table when database is empty.
func QuoteTable(database, table string) string {
	if database == "" {
		return QuoteIdent(table)
	}
	return QuoteIdent(database) + "." + QuoteIdent(table)
}

var literalReplacer = strings.NewReplacer("'", "''")

// QuoteLiteral renders a watermark value as SQL text: numbers bare, text and
// temporal values single quoted. Only used for display; queries bind the
// value as a parameter.
func QuoteLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return cast.ToString(v)
	case decimal.Decimal:
		return v.String()
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case []byte:
		return "'" + literalReplacer.Replace(string(v)) + "'"
	case string:
		return "'" + literalReplacer.Replace(v) + "'"
	case fmt.Stringer:
		return "'" + literalReplacer.Replace(v.String()) + "'"
	}
	return "'" + literalReplacer.Replace(fmt.Sprintf("%v", value)) + "'"
}
