package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"db-transfer/internal/dialect"
	"db-transfer/internal/gateway"
	"db-transfer/internal/schema"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// SourceSpec describes one configured source database.
type SourceSpec struct {
	Name   string
	Driver string
	DSN    string
	Schema string // empty means the session's current schema
}

// Connection bundles what the engine needs from one source.
type Connection struct {
	Name    string
	Reader  SourceReader
	Catalog Catalog
}

// Registry owns every open connection of a run: one per source and one to
// the destination. Close releases all of them exactly once.
type Registry struct {
	sources []*Connection
	byName  map[string]*Connection
	dest    Destination
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Connection)}
}

// AddSource registers a source. closer may be nil.
func (r *Registry) AddSource(name string, reader SourceReader, catalog Catalog, closer io.Closer) {
	conn := &Connection{Name: name, Reader: reader, Catalog: catalog}
	r.sources = append(r.sources, conn)
	r.byName[name] = conn
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
}

// SetDestination registers the destination. closer may be nil.
func (r *Registry) SetDestination(dest Destination, closer io.Closer) {
	r.dest = dest
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
}

func (r *Registry) Source(name string) (*Connection, bool) {
	conn, ok := r.byName[name]
	return conn, ok
}

// Sources returns the registered sources in registration order.
func (r *Registry) Sources() []*Connection { return r.sources }

func (r *Registry) Destination() Destination { return r.dest }

func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		for i := len(r.closers) - 1; i >= 0; i-- {
			if err := r.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}

// Connect opens and pings every source and the destination. Any failure
// closes what was already opened and returns a *ConnectivityError.
func Connect(ctx context.Context, sources []SourceSpec, dest gateway.ClickHouseConfig, retries int, logger *zap.Logger) (*Registry, error) {
	reg := NewRegistry()

	for _, spec := range sources {
		d := dialect.GetDialect(spec.Driver)
		db, err := Dial(ctx, dialect.DriverName(spec.Driver), spec.DSN, retries, logger.With(zap.String("source", spec.Name)))
		if err != nil {
			_ = reg.Close()
			return nil, &ConnectivityError{Target: spec.Name, Err: err}
		}
		schemaName, err := schema.ResolveSchema(ctx, db, d, spec.Schema)
		if err != nil {
			_ = db.Close()
			_ = reg.Close()
			return nil, &ConnectivityError{Target: spec.Name, Err: err}
		}
		logger.Info("connected to source",
			zap.String("source", spec.Name), zap.String("driver", d.Name()), zap.String("schema", schemaName))
		reg.AddSource(spec.Name, gateway.NewSource(spec.Name, db, d, schemaName), schema.NewInspector(db, d, schemaName), db)
	}

	chDB, err := Dial(ctx, "clickhouse", dest.DSN(), retries, logger.With(zap.String("target", "destination")))
	if err != nil {
		_ = reg.Close()
		return nil, &ConnectivityError{Target: "destination", Err: err}
	}
	logger.Info("connected to destination", zap.String("host", dest.Host), zap.String("database", dest.Database))
	reg.SetDestination(gateway.NewClickHouse(chDB, dest.Database, dest.Cluster, logger), chDB)

	return reg, nil
}

// Dial opens a pool for driver and pings it, retrying with exponential
// backoff up to retries extra attempts.
func Dial(ctx context.Context, driver, dsn string, retries int, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if retries < 0 {
		retries = 0
	}

	operation := func() error {
		return db.PingContext(ctx)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	err = backoff.RetryNotify(operation, policy, func(err error, t time.Duration) {
		logger.Warn("connection attempt failed, retrying", zap.Duration("after", t), zap.Error(err))
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return db, nil
}
