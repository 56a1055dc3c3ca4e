package engine_test

import (
	"context"
	"errors"
	"testing"

	"db-transfer/internal/engine"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDial_RetriesUntilPingSucceeds(t *testing.T) {
	db, dbMock, err := sqlmock.NewWithDSN("dial_retry", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))
	dbMock.ExpectPing()

	conn, err := engine.Dial(context.Background(), "sqlmock", "dial_retry", 2, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestDial_GivesUp(t *testing.T) {
	db, dbMock, err := sqlmock.NewWithDSN("dial_give_up", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = engine.Dial(context.Background(), "sqlmock", "dial_give_up", 0, zap.NewNop())
	require.ErrorContains(t, err, "connection refused")
}

func TestRegistry(t *testing.T) {
	src := newFakeSource("sales")
	dest := newFakeDestination()
	closer := &closeCounter{}

	reg := engine.NewRegistry()
	reg.AddSource("sales", src, src, closer)
	reg.AddSource("crm", newFakeSource("crm"), nil, nil)
	reg.SetDestination(dest, closer)

	conn, ok := reg.Source("sales")
	require.True(t, ok)
	require.Equal(t, "sales", conn.Reader.Name())
	_, ok = reg.Source("hr")
	require.False(t, ok)

	require.Equal(t, []string{"sales", "crm"}, []string{reg.Sources()[0].Name, reg.Sources()[1].Name})
	require.Same(t, dest, reg.Destination())

	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())
	require.Equal(t, 2, closer.count())
}

func TestConnectivityError(t *testing.T) {
	err := error(&engine.ConnectivityError{Target: "destination", Err: errors.New("dial tcp: refused")})
	require.True(t, engine.IsConnectivity(err))
	require.False(t, engine.IsConnectivity(errors.New("other")))
	require.EqualError(t, err, "cannot connect to destination: dial tcp: refused")
}
