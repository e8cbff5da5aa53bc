package database_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/framework/database"
)

// ── fake driver ──────────────────────────────────────────────────────────────

type recorder struct {
	mu    sync.Mutex
	dsns  []string
	execs []string
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.dsns, r.execs = nil, nil
	r.mu.Unlock()
}

func (r *recorder) statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.execs...)
}

var rec = &recorder{}

type fakeDriver struct{}

func (fakeDriver) Open(dsn string) (driver.Conn, error) {
	rec.mu.Lock()
	rec.dsns = append(rec.dsns, dsn)
	rec.mu.Unlock()
	return fakeConn{}, nil
}

type fakeConn struct{}

func (fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (fakeConn) Close() error                        { return nil }
func (fakeConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (fakeConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	if strings.Contains(query, "latin0") {
		return nil, errors.New("unknown character set")
	}
	rec.mu.Lock()
	rec.execs = append(rec.execs, query)
	rec.mu.Unlock()
	return driver.RowsAffected(0), nil
}

func init() {
	sql.Register("mysql", fakeDriver{})
	sql.Register("fakedb", fakeDriver{})
}

// dsn forces a connection so the driver sees the DSN.
func dsn(t *testing.T, h *database.Handle) string {
	t.Helper()
	conn, err := h.DB.Conn(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.dsns)
	return rec.dsns[len(rec.dsns)-1]
}

// ── Create ───────────────────────────────────────────────────────────────────

func TestCreate_FromParameters(t *testing.T) {
	rec.reset()
	h, err := database.Create(database.Options{
		"driver": "mysql", "host": "db", "port": int64(3307), "dbname": "shop", "user": "app", "password": "s3cret",
	}, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "mysql", h.Driver)
	assert.Equal(t, "app:s3cret@tcp(db:3307)/shop", dsn(t, h))
	assert.Empty(t, rec.statements())
}

func TestCreate_ExplicitDSN(t *testing.T) {
	rec.reset()
	h, err := database.Create(database.Options{"driver": "fakedb", "dsn": "memory://x"}, nil)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "memory://x", dsn(t, h))
}

func TestCreate_CharsetAndCollation(t *testing.T) {
	rec.reset()
	h, err := database.Create(database.Options{
		"driver": "mysql", "dsn": "x", "charset": "utf8mb4", "collation": "utf8mb4_unicode_ci",
	}, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, []string{
		"SET SESSION character_set_client = 'utf8mb4'",
		"SET SESSION character_set_connection = 'utf8mb4'",
		"SET SESSION character_set_results = 'utf8mb4'",
		"SET SESSION collation_connection = 'utf8mb4_unicode_ci'",
	}, rec.statements())
}

func TestCreate_CharsetIgnoredForOtherDrivers(t *testing.T) {
	rec.reset()
	h, err := database.Create(database.Options{"driver": "fakedb", "dsn": "x", "charset": "utf8"}, nil)
	require.NoError(t, err)
	defer h.Close()
	assert.Empty(t, rec.statements())
}

func TestCreate_ReusesHandleAndConnection(t *testing.T) {
	db, err := sql.Open("fakedb", "shared")
	require.NoError(t, err)
	defer db.Close()

	h, err := database.Create(database.Options{"connection": db, "driver": "fakedb"}, nil)
	require.NoError(t, err)
	assert.Same(t, db, h.DB)

	again, err := database.Create(database.Options{"handle": h, "connection": "ignored"}, nil)
	require.NoError(t, err)
	assert.Same(t, h, again)
}

func TestCreate_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		opts   database.Options
		option string
	}{
		{"bad handle", database.Options{"handle": "nope"}, "handle"},
		{"bad connection", database.Options{"connection": 42}, "connection"},
		{"no driver", database.Options{"dsn": "x"}, "driver"},
		{"unknown driver", database.Options{"driver": "oracle9", "dsn": "x"}, "driver"},
		{"no dsn", database.Options{"driver": "fakedb"}, "dsn"},
		{"port", database.Options{"driver": "mysql", "port": "http"}, "port"},
		{"charset injection", database.Options{"driver": "mysql", "dsn": "x", "charset": "utf8'; DROP"}, "charset"},
		{"charset rejected", database.Options{"driver": "mysql", "dsn": "x", "charset": "latin0"}, "charset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := database.Create(tt.opts, nil)

			var ie *database.InvalidConfigurationError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.option, ie.Option)
			assert.ErrorIs(t, err, database.ErrInvalidConfiguration)
		})
	}
}
