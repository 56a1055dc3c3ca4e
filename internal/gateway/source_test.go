package gateway_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"db-transfer/internal/dialect"
	"db-transfer/internal/gateway"
	"db-transfer/internal/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newSource(t *testing.T, d dialect.Dialect, schemaName string) (*gateway.Source, sqlmock.Sqlmock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return gateway.NewSource("sales", db, d, schemaName), dbMock
}

func eventsTable() *schema.Table {
	return &schema.Table{
		Source:     "sales",
		Name:       "Events",
		PrimaryKey: []string{"id"},
		Columns: []*schema.Column{
			{Name: "id", DataType: "bigint", IsPK: true},
			{Name: "name", DataType: "varchar", IsNullable: true},
		},
	}
}

func TestPredicate_String(t *testing.T) {
	var none *gateway.Predicate
	require.Equal(t, "", none.String())
	require.Equal(t, "id > 100", (&gateway.Predicate{Column: "id", Value: int64(100)}).String())
	require.Equal(t, "code > 'O''Brien'", (&gateway.Predicate{Column: "code", Value: "O'Brien"}).String())
	require.Equal(t, "at > '2024-01-02 03:04:05'",
		(&gateway.Predicate{Column: "at", Value: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}).String())
}

func TestSource_RowCount(t *testing.T) {
	ctx := context.Background()

	t.Run("whole table", func(t *testing.T) {
		src, dbMock := newSource(t, &dialect.MysqlDialect{}, "shop")
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `shop`.`Orders`")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))

		count, err := src.RowCount(ctx, "Orders", nil)
		require.NoError(t, err)
		require.Equal(t, int64(5), count)
	})

	t.Run("under predicate", func(t *testing.T) {
		src, dbMock := newSource(t, &dialect.MSSQLDialect{}, "dbo")
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM [dbo].[Events] WHERE [id] > @p1")).
			WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(50)))

		count, err := src.RowCount(ctx, "Events", &gateway.Predicate{Column: "id", Value: int64(100)})
		require.NoError(t, err)
		require.Equal(t, int64(50), count)
	})

	t.Run("error", func(t *testing.T) {
		src, dbMock := newSource(t, &dialect.MysqlDialect{}, "shop")
		dbMock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("gone away"))

		_, err := src.RowCount(ctx, "Orders", nil)
		require.ErrorContains(t, err, "gone away")
	})
}

func TestSource_ExtractPage(t *testing.T) {
	ctx := context.Background()

	t.Run("mysql ordered by primary key", func(t *testing.T) {
		src, dbMock := newSource(t, &dialect.MysqlDialect{}, "shop")
		dbMock.ExpectQuery(regexp.QuoteMeta(
			"SELECT `id`, `name` FROM `shop`.`Events` WHERE `id` > ? ORDER BY `id` LIMIT ? OFFSET ?",
		)).WithArgs(int64(100), int64(2), int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(105), "a").
				AddRow(int64(106), nil))

		page, err := src.ExtractPage(ctx, eventsTable(), 4, 2, &gateway.Predicate{Column: "id", Value: int64(100)})
		require.NoError(t, err)
		require.Equal(t, [][]any{{int64(105), "a"}, {int64(106), nil}}, page)
		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("postgres placeholders follow predicate", func(t *testing.T) {
		src, dbMock := newSource(t, &dialect.PostgresDialect{}, "public")
		dbMock.ExpectQuery(regexp.QuoteMeta(
			`SELECT "id", "name" FROM "public"."Events" WHERE "id" > $1 ORDER BY "id" LIMIT $2 OFFSET $3`,
		)).WithArgs(int64(7), int64(10), int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		page, err := src.ExtractPage(ctx, eventsTable(), 0, 10, &gateway.Predicate{Column: "id", Value: int64(7)})
		require.NoError(t, err)
		require.Empty(t, page)
	})

	t.Run("sql server without key orders by every orderable column", func(t *testing.T) {
		src, dbMock := newSource(t, &dialect.MSSQLDialect{}, "dbo")
		table := &schema.Table{
			Source: "sales",
			Name:   "Orders",
			Columns: []*schema.Column{
				{Name: "ref", DataType: "nvarchar"},
				{Name: "notes", DataType: "ntext"},
				{Name: "total", DataType: "money"},
			},
		}
		dbMock.ExpectQuery(regexp.QuoteMeta(
			"SELECT [ref], [notes], [total] FROM [dbo].[Orders] ORDER BY [ref], [total] OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY",
		)).WithArgs(int64(0), int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"ref", "notes", "total"}).AddRow("A-1", "n", []byte("9.5000")))

		page, err := src.ExtractPage(ctx, table, 0, 10, nil)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, []byte("9.5000"), page[0][2])
	})
}

func TestOrderColumns(t *testing.T) {
	require.Equal(t, []string{"id"}, gateway.OrderColumns(eventsTable()))

	composite := &schema.Table{PrimaryKey: []string{"a", "b"}}
	require.Equal(t, []string{"a", "b"}, gateway.OrderColumns(composite))

	blobs := &schema.Table{Columns: []*schema.Column{{Name: "doc", DataType: "image"}}}
	require.Empty(t, gateway.OrderColumns(blobs))
}
