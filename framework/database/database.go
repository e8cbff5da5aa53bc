// Package database turns connection options into a ready data-access handle.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/validation"
)

// Option keys understood by Create.
const (
	OptHandle     = "handle"
	OptConnection = "connection"
	OptDriver     = "driver"
	OptDSN        = "dsn"
	OptHost       = "host"
	OptPort       = "port"
	OptDBName     = "dbname"
	OptUser       = "user"
	OptPassword   = "password"
	OptCharset    = "charset"
	OptCollation  = "collation"
)

// Options is the flat option mapping, typically the "database" container
// parameter.
type Options map[string]any

// Handle is an open data-access handle.
type Handle struct {
	DB     *sql.DB
	Driver string
}

// Close releases the underlying pool.
func (h *Handle) Close() error { return h.DB.Close() }

var rules = validation.Rules{
	OptDriver:    "sometimes|alpha_dash",
	OptPort:      "sometimes|integer|gte:1|lte:65535",
	OptCharset:   "sometimes|alpha_num",
	OptCollation: "sometimes|alpha_dash",
}

// Create returns a handle for opts. In order of precedence it reuses a
// pre-built handle, wraps an existing *sql.DB, or opens a new pool from the
// connection parameters. Charset and collation are then applied to MySQL
// sessions.
func Create(opts Options, logger *zap.Logger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validate(opts); err != nil {
		return nil, err
	}

	var (
		h   *Handle
		err error
	)
	switch {
	case has(opts, OptHandle):
		hh, ok := opts[OptHandle].(*Handle)
		if !ok || hh == nil {
			return nil, invalid(OptHandle, fmt.Errorf("got %T, want *database.Handle", opts[OptHandle]))
		}
		h = hh
	case has(opts, OptConnection):
		db, ok := opts[OptConnection].(*sql.DB)
		if !ok || db == nil {
			return nil, invalid(OptConnection, fmt.Errorf("got %T, want *sql.DB", opts[OptConnection]))
		}
		h = &Handle{DB: db, Driver: str(opts, OptDriver)}
	default:
		if h, err = open(opts); err != nil {
			return nil, err
		}
		logger.Debug("database pool opened", zap.String("driver", h.Driver))
	}

	if err := setSession(h, opts); err != nil {
		return nil, err
	}
	return h, nil
}

func validate(opts Options) error {
	data := make(map[string]string, len(rules))
	for k := range rules {
		if has(opts, k) {
			data[k] = str(opts, k)
		}
	}
	v := validation.Make(data, rules)
	if !v.Fails() {
		return nil
	}
	field := v.Errors().Fields()[0]
	return invalid(field, errors.New(v.Errors().First(field)))
}

func open(opts Options) (*Handle, error) {
	driver := str(opts, OptDriver)
	if driver == "" {
		return nil, invalid(OptDriver, errors.New("a driver is required without handle or connection"))
	}
	dsn := str(opts, OptDSN)
	if dsn == "" {
		var err error
		if dsn, err = buildDSN(driver, opts); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, invalid(OptDriver, err)
	}
	return &Handle{DB: db, Driver: driver}, nil
}

func buildDSN(driver string, opts Options) (string, error) {
	host := str(opts, OptHost)
	if p := str(opts, OptPort); p != "" {
		host = net.JoinHostPort(host, p)
	}
	switch driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s)/%s", str(opts, OptUser), str(opts, OptPassword), host, str(opts, OptDBName)), nil
	case "postgres", "pgx":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(str(opts, OptUser), str(opts, OptPassword)),
			Host:   host,
			Path:   "/" + str(opts, OptDBName),
		}
		return u.String(), nil
	case "sqlite", "sqlite3":
		if name := str(opts, OptDBName); name != "" {
			return name, nil
		}
	}
	return "", invalid(OptDSN, fmt.Errorf("cannot build a DSN for driver %q", driver))
}

func isMySQL(driver string) bool {
	return strings.HasPrefix(driver, "mysql")
}

func setSession(h *Handle, opts Options) error {
	if !isMySQL(h.Driver) {
		return nil
	}
	ctx := context.Background()
	if cs := str(opts, OptCharset); cs != "" {
		for _, v := range []string{"character_set_client", "character_set_connection", "character_set_results"} {
			if _, err := h.DB.ExecContext(ctx, fmt.Sprintf("SET SESSION %s = '%s'", v, cs)); err != nil {
				return invalid(OptCharset, fmt.Errorf("invalid database character set %q: %w", cs, err))
			}
		}
	}
	if co := str(opts, OptCollation); co != "" {
		if _, err := h.DB.ExecContext(ctx, fmt.Sprintf("SET SESSION collation_connection = '%s'", co)); err != nil {
			return invalid(OptCollation, fmt.Errorf("invalid database collation %q: %w", co, err))
		}
	}
	return nil
}

func has(opts Options, key string) bool {
	v, ok := opts[key]
	return ok && v != nil
}

func str(opts Options, key string) string {
	v, ok := opts[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
