package journal

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	xerrors "aptos-playground/internal/errors"
)

func sampleEntry(status string) Entry {
	started := time.UnixMilli(1_700_000_000_000)
	return Entry{
		RunID:          NewRunID(),
		Network:        "local",
		Sender:         "0x00000000000000000000000000000000000000000000000000000000000000a1",
		CoinType:       "0xa1::injoy_coin::InJoyCoin",
		TxnHash:        "0x01",
		SequenceNumber: 0,
		ChainID:        4,
		GasUnitPrice:   100,
		MaxGasAmount:   10_000,
		Status:         status,
		StartedAt:      started,
		FinishedAt:     started.Add(2 * time.Second),
	}
}

func TestNewRunIDIsUUID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.NotEqual(t, id, NewRunID())
}

func TestFileSinkPersistsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registrations.log")
	sink, err := Open(context.Background(), Config{Driver: "file", File: FileConfig{Path: path}})
	require.NoError(t, err)
	defer sink.Close()

	first := sampleEntry("success")
	second := sampleEntry("execution_failed")
	second.VMStatus = "Move abort"
	require.NoError(t, sink.Record(context.Background(), first))
	require.NoError(t, sink.Record(context.Background(), second))

	entries, err := ReadFile(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, second.RunID, entries[0].RunID)
	require.Equal(t, "Move abort", entries[0].VMStatus)
	require.Equal(t, first.RunID, entries[1].RunID)
	require.True(t, first.StartedAt.Equal(entries[1].StartedAt))

	latest, err := ReadFile(path, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
}

func TestReadFileMissingIsEmpty(t *testing.T) {
	entries, err := ReadFile(filepath.Join(t.TempDir(), "absent.log"), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOpenDrivers(t *testing.T) {
	sink, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	require.IsType(t, Nop{}, sink)
	require.NoError(t, sink.Record(context.Background(), sampleEntry("success")))

	_, err = Open(context.Background(), Config{Driver: "kafka"})
	require.Equal(t, xerrors.CodeConfig, xerrors.CodeOf(err))

	for _, driver := range []string{DriverMySQL, DriverRedis, DriverRabbitMQ} {
		_, err := Open(context.Background(), Config{Driver: driver})
		require.Error(t, err, driver)
		require.Equal(t, xerrors.CodeJournal, xerrors.CodeOf(err), driver)
	}
}

func TestMySQLSinkRecord(t *testing.T) {
	db, drv := newMockDB(t, []mockOperation{
		{query: createRegistrationsSQL},
		{query: insertRegistrationSQL},
	})
	defer db.Close()

	sink, err := newMySQLSink(context.Background(), db)
	require.NoError(t, err)

	entry := sampleEntry("success")
	require.NoError(t, sink.Record(context.Background(), entry))
	drv.assertConsumed(t)

	args := drv.ops[1].args
	require.Len(t, args, 16)
	require.Equal(t, entry.RunID, args[0].Value)
	require.Equal(t, "0xa1::injoy_coin::InJoyCoin", args[3].Value)
	require.Equal(t, entry.StartedAt.UnixMilli(), args[14].Value)
}

func TestMySQLSinkRecordError(t *testing.T) {
	db, _ := newMockDB(t, []mockOperation{
		{query: createRegistrationsSQL},
		{query: insertRegistrationSQL, err: fmt.Errorf("duplicate entry")},
	})
	defer db.Close()

	sink, err := newMySQLSink(context.Background(), db)
	require.NoError(t, err)
	err = sink.Record(context.Background(), sampleEntry("success"))
	require.ErrorContains(t, err, "duplicate entry")
}

type mockOperation struct {
	query string
	err   error
	args  []driver.NamedValue
}

type mockResult struct{}

func (mockResult) LastInsertId() (int64, error) { return 0, nil }
func (mockResult) RowsAffected() (int64, error) { return 1, nil }

type queueDriver struct {
	ops []mockOperation
	idx int32
}

var driverSeq atomic.Int32

func newMockDB(t *testing.T, ops []mockOperation) (*sql.DB, *queueDriver) {
	t.Helper()

	drv := &queueDriver{ops: ops}
	name := fmt.Sprintf("mock-journal-%d", driverSeq.Add(1))
	sql.Register(name, drv)

	db, err := sql.Open(name, "")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	return db, drv
}

func (d *queueDriver) assertConsumed(t *testing.T) {
	t.Helper()
	require.EqualValues(t, len(d.ops), atomic.LoadInt32(&d.idx), "not all operations consumed")
}

func (d *queueDriver) Open(string) (driver.Conn, error) {
	return &mockConn{driver: d}, nil
}

type mockConn struct {
	driver *queueDriver
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("transactions not supported")
}

func (c *mockConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	idx := int(atomic.LoadInt32(&c.driver.idx))
	if idx >= len(c.driver.ops) {
		return nil, fmt.Errorf("unexpected exec: %s", query)
	}
	op := &c.driver.ops[idx]
	atomic.AddInt32(&c.driver.idx, 1)
	if normalizeSQL(op.query) != normalizeSQL(query) {
		return nil, fmt.Errorf("unexpected query. want %q got %q", normalizeSQL(op.query), normalizeSQL(query))
	}
	op.args = args
	if op.err != nil {
		return nil, op.err
	}
	return mockResult{}, nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
