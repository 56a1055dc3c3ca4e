package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"db-transfer/internal/dialect"
	"db-transfer/internal/schema"

	"github.com/ClickHouse/clickhouse-go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClickHouse server error codes the gateway reacts to.
const (
	codeUnknownTable    = 60
	codeUnknownDatabase = 81
)

// ClickHouseConfig holds the destination connection settings.
type ClickHouseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Secure       bool   `mapstructure:"secure"`
	SkipVerify   bool   `mapstructure:"skip_verify"`
	Cluster      string `mapstructure:"cluster"`
	Compress     bool   `mapstructure:"compress"`
	BlockSize    int    `mapstructure:"block_size"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
}

// DefaultBlockSize is the driver's block size when none is configured.
const DefaultBlockSize = 1000000

// EffectiveBlockSize is the number of rows the driver buffers before it
// sends a block to the server.
func (c ClickHouseConfig) EffectiveBlockSize() int {
	if c.BlockSize > 0 {
		return c.BlockSize
	}
	return DefaultBlockSize
}

// DSN renders the native protocol connection string understood by the
// clickhouse driver.
func (c ClickHouseConfig) DSN() string {
	dsn := url.URL{
		Scheme: "tcp",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}

	values := url.Values{
		"username":    []string{c.Username},
		"password":    []string{c.Password},
		"database":    []string{c.Database},
		"secure":      []string{strconv.FormatBool(c.Secure)},
		"skip_verify": []string{strconv.FormatBool(c.SkipVerify)},
		"compress":    []string{strconv.FormatBool(c.Compress)},
	}
	if c.BlockSize > 0 {
		values.Add("block_size", strconv.Itoa(c.BlockSize))
	}
	if c.ReadTimeout > 0 {
		values.Add("read_timeout", strconv.Itoa(c.ReadTimeout))
	}
	if c.WriteTimeout > 0 {
		values.Add("write_timeout", strconv.Itoa(c.WriteTimeout))
	}

	dsn.RawQuery = values.Encode()
	return dsn.String()
}

// ClickHouse is the destination gateway. Tables are created as MergeTree, or
// as ReplicatedMergeTree on every node when a cluster is configured.
type ClickHouse struct {
	db       *sql.DB
	database string
	cluster  string
	logger   *zap.Logger
}

func NewClickHouse(db *sql.DB, database, cluster string, logger *zap.Logger) *ClickHouse {
	return &ClickHouse{db: db, database: database, cluster: strings.TrimSpace(cluster), logger: logger}
}

func (ch *ClickHouse) table(name string) string {
	return QuoteTable(ch.database, name)
}

func (ch *ClickHouse) clusterClause() string {
	if ch.cluster == "" {
		return ""
	}
	return " ON CLUSTER " + QuoteIdent(ch.cluster)
}

func isException(err error, codes ...int32) bool {
	var exception *clickhouse.Exception
	if !errors.As(err, &exception) {
		return false
	}
	return lo.Contains(codes, exception.Code)
}

func (ch *ClickHouse) TableExists(ctx context.Context, name string) (bool, error) {
	var count uint64
	err := ch.db.QueryRowContext(ctx,
		"SELECT count() FROM system.tables WHERE database = ? AND name = ?",
		ch.database, name).Scan(&count)
	if err != nil {
		if isException(err, codeUnknownDatabase) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return count > 0, nil
}

// CreateTable creates the table if it is absent. Columns keep their given
// order. The sorting key is the primary key unless one of its columns is
// nullable, in which case the table is left unsorted.
func (ch *ClickHouse) CreateTable(ctx context.Context, name string, columns []*schema.Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}

	defs := lo.Map(columns, func(c *schema.Column, _ int) string {
		if _, known := c.MappedType(); !known {
			ch.logger.Debug("unmapped source type, storing as String",
				zap.String("destination", name), zap.String("column", c.Name), zap.String("type", c.DataType))
		}
		return QuoteIdent(c.Name) + " " + c.DestinationType()
	})

	engine := "MergeTree"
	engineOptions := ""
	if ch.cluster != "" {
		engine = "Replicated" + engine
		engineOptions = `'/clickhouse/{cluster}/tables/{database}/{table}', '{replica}'`
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s%s ( %s ) ENGINE = %s(%s) ORDER BY %s",
		ch.table(name), ch.clusterClause(), strings.Join(defs, ", "), engine, engineOptions, sortKey(columns))

	ch.logger.Debug("creating destination table", zap.String("destination", name), zap.String("query", query))
	if _, err := ch.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

func sortKey(columns []*schema.Column) string {
	keys := lo.Filter(columns, func(c *schema.Column, _ int) bool { return c.IsPK })
	if len(keys) == 0 || lo.SomeBy(keys, func(c *schema.Column) bool { return c.IsNullable }) {
		return "tuple()"
	}
	return "(" + strings.Join(lo.Map(keys, func(c *schema.Column, _ int) string { return QuoteIdent(c.Name) }), ", ") + ")"
}

// BulkInsert appends rows in one transaction. The driver sends a block every
// block_size rows and the rest on commit, so a failed call lands none of its
// rows only while len(rows) stays within the block size.
func (ch *ClickHouse) BulkInsert(ctx context.Context, name string, columns []string, rows [][]any) (err error) {
	if len(rows) == 0 {
		return nil
	}

	tx, err := ch.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert into %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cols := strings.Join(lo.Map(columns, func(c string, _ int) string { return QuoteIdent(c) }), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ch.table(name), cols, dialect.GeneratePlaceholders(len(columns), func(int) string { return "?" }))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert into %s: %w", name, err)
	}
	return nil
}

// MaxValue returns the largest value of column, or nil when the table is
// empty or missing. max() over an empty table yields the column default, so
// the row count decides emptiness.
//
// The driver hands Decimal values back unscaled, so those are read through
// their text form and returned as a decimal.Decimal, or as an int64 when the
// scale is zero. Both bind as exact values on every source driver.
func (ch *ClickHouse) MaxValue(ctx context.Context, name, column string) (any, error) {
	query := fmt.Sprintf("SELECT count(), max(%[1]s), toString(max(%[1]s)), toTypeName(max(%[1]s)) FROM %[2]s",
		QuoteIdent(column), ch.table(name))

	var (
		count    uint64
		value    any
		text     sql.NullString
		typeName string
	)
	if err := ch.db.QueryRowContext(ctx, query).Scan(&count, &value, &text, &typeName); err != nil {
		if isException(err, codeUnknownTable, codeUnknownDatabase) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read max(%s) of %s: %w", column, name, err)
	}
	if count == 0 || value == nil {
		return nil, nil
	}
	if !strings.Contains(typeName, "Decimal") {
		return value, nil
	}

	d, err := decimal.NewFromString(text.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse max(%s) of %s: %w", column, name, err)
	}
	if d.IsInteger() && d.BigInt().IsInt64() {
		return d.IntPart(), nil
	}
	return d, nil
}

func (ch *ClickHouse) Truncate(ctx context.Context, name string) error {
	query := fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s%s", ch.table(name), ch.clusterClause())
	if _, err := ch.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", name, err)
	}
	return nil
}

func (ch *ClickHouse) RowCount(ctx context.Context, name string) (int64, error) {
	var count uint64
	if err := ch.db.QueryRowContext(ctx, "SELECT count() FROM "+ch.table(name)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", name, err)
	}
	return int64(count), nil
}

func (ch *ClickHouse) Close() error {
	return ch.db.Close()
}
