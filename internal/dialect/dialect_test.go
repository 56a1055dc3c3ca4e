package dialect_test

import (
	"testing"

	"db-transfer/internal/dialect"

	"github.com/stretchr/testify/require"
)

func TestGetDialect(t *testing.T) {
	require.IsType(t, &dialect.MSSQLDialect{}, dialect.GetDialect("sqlserver"))
	require.IsType(t, &dialect.MSSQLDialect{}, dialect.GetDialect("mssql"))
	require.IsType(t, &dialect.PostgresDialect{}, dialect.GetDialect("postgres"))
	require.IsType(t, &dialect.OracleDialect{}, dialect.GetDialect("oracle"))
	require.IsType(t, &dialect.MysqlDialect{}, dialect.GetDialect("mysql"))

	require.True(t, dialect.Supported("MSSQL"))
	require.False(t, dialect.Supported("sqlite"))
	require.Equal(t, "sqlserver", dialect.DriverName("mssql"))
	require.Equal(t, "postgres", dialect.DriverName("postgresql"))
}

func TestQuoteIdent(t *testing.T) {
	testCases := []struct {
		name     string
		d        dialect.Dialect
		input    string
		expected string
	}{
		{name: "mssql", d: &dialect.MSSQLDialect{}, input: "Order]Items", expected: "[Order]]Items]"},
		{name: "mysql", d: &dialect.MysqlDialect{}, input: "odd`name", expected: "`odd``name`"},
		{name: "postgres", d: &dialect.PostgresDialect{}, input: `say"hi`, expected: `"say""hi"`},
		{name: "oracle", d: &dialect.OracleDialect{}, input: "EVENTS", expected: `"EVENTS"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.d.QuoteIdent(tc.input))
		})
	}
}

func TestQualifiedTable(t *testing.T) {
	d := &dialect.MSSQLDialect{}
	require.Equal(t, "[dbo].[Orders]", dialect.QualifiedTable(d, "dbo", "Orders"))
	require.Equal(t, "[Orders]", dialect.QualifiedTable(d, "", "Orders"))
	require.Equal(t, "[id], [name]", dialect.QuoteList(d, []string{"id", "name"}))
}

func TestPaginate(t *testing.T) {
	t.Run("mssql", func(t *testing.T) {
		q, args := (&dialect.MSSQLDialect{}).Paginate("SELECT * FROM [t] WHERE [id] > @p1", "[id]", 1, 200, 100)
		require.Equal(t, "SELECT * FROM [t] WHERE [id] > @p1 ORDER BY [id] OFFSET @p2 ROWS FETCH NEXT @p3 ROWS ONLY", q)
		require.Equal(t, []any{int64(200), int64(100)}, args)
	})
	t.Run("mssql without order", func(t *testing.T) {
		q, _ := (&dialect.MSSQLDialect{}).Paginate("SELECT * FROM [t]", "", 0, 0, 10)
		require.Equal(t, "SELECT * FROM [t] ORDER BY (SELECT NULL) OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY", q)
	})
	t.Run("mysql", func(t *testing.T) {
		q, args := (&dialect.MysqlDialect{}).Paginate("SELECT * FROM `t`", "`id`", 0, 0, 50)
		require.Equal(t, "SELECT * FROM `t` ORDER BY `id` LIMIT ? OFFSET ?", q)
		require.Equal(t, []any{int64(50), int64(0)}, args)
	})
	t.Run("postgres", func(t *testing.T) {
		q, args := (&dialect.PostgresDialect{}).Paginate(`SELECT * FROM "t" WHERE "id" > $1`, `"id"`, 1, 10, 5)
		require.Equal(t, `SELECT * FROM "t" WHERE "id" > $1 ORDER BY "id" LIMIT $2 OFFSET $3`, q)
		require.Equal(t, []any{int64(5), int64(10)}, args)
	})
	t.Run("oracle", func(t *testing.T) {
		q, args := (&dialect.OracleDialect{}).Paginate(`SELECT * FROM "T"`, "", 0, 0, 5)
		require.Equal(t, `SELECT * FROM "T" ORDER BY ROWID OFFSET :1 ROWS FETCH NEXT :2 ROWS ONLY`, q)
		require.Equal(t, []any{int64(0), int64(5)}, args)
	})
}

func TestNormalizeType(t *testing.T) {
	require.Equal(t, "rowversion", (&dialect.MSSQLDialect{}).NormalizeType("timestamp"))
	require.Equal(t, "datetime2", (&dialect.MSSQLDialect{}).NormalizeType("DATETIME2"))
	require.Equal(t, "smallint", (&dialect.MysqlDialect{}).NormalizeType("tinyint"))
	require.Equal(t, "int", (&dialect.MysqlDialect{}).NormalizeType("mediumint"))
	require.Equal(t, "bigint", (&dialect.MysqlDialect{}).NormalizeType("INT"))
	require.Equal(t, "char", (&dialect.PostgresDialect{}).NormalizeType("bpchar"))
	require.Equal(t, "datetime", (&dialect.OracleDialect{}).NormalizeType("DATE"))
	require.Equal(t, "timestamp(6)", (&dialect.OracleDialect{}).NormalizeType("TIMESTAMP(6)"))
}

func TestGeneratePlaceholders(t *testing.T) {
	require.Equal(t, "$1, $2, $3", dialect.GeneratePlaceholders(3, (&dialect.PostgresDialect{}).Placeholder))
	require.Equal(t, "@p1, @p2", dialect.GeneratePlaceholders(2, (&dialect.MSSQLDialect{}).Placeholder))
}
