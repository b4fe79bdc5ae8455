package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"

	"airmon/internal/config"
)

// OpenTraced is Open with statement tracing on every connection.
func OpenTraced(cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(NewTraceConnector(dsn, logger))
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// NewTraceConnector returns a driver.Connector over the sqlite3 driver that
// logs every statement and its args at debug level. Use sql.OpenDB(connector)
// to get a *sql.DB that traces; wired in when the log level is debug so the
// snapshot index can be inspected without a sqlite shell.
func NewTraceConnector(dsn string, logger *slog.Logger) driver.Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &traceConnector{dsn: dsn, logger: logger}
}

type traceConnector struct {
	dsn    string
	logger *slog.Logger
}

func (c *traceConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := (&sqlite3.SQLiteDriver{}).Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &traceConn{conn: conn, logger: c.logger}, nil
}

func (c *traceConnector) Driver() driver.Driver { return traceDriver{} }

// traceDriver exists only to satisfy Connector; open via sql.OpenDB.
type traceDriver struct{}

func (traceDriver) Open(string) (driver.Conn, error) {
	return nil, fmt.Errorf("sqlite trace: use sql.OpenDB(NewTraceConnector(...))")
}

type traceConn struct {
	conn   driver.Conn
	logger *slog.Logger
}

func (c *traceConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &traceStmt{stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *traceConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := prep.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &traceStmt{stmt: stmt, query: query, logger: c.logger}, nil
	}
	return c.Prepare(query)
}

func (c *traceConn) Close() error { return c.conn.Close() }

func (c *traceConn) Begin() (driver.Tx, error) {
	//nolint:staticcheck // SA1019 – sqlite3 conn predates ConnBeginTx
	return c.conn.Begin()
}

func (c *traceConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when ConnBeginTx is missing
	return c.conn.Begin()
}

type traceStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
}

func (s *traceStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.log("exec", valueStrings(args))
	//nolint:staticcheck // SA1019 – sqlite3 stmt predates StmtExecContext
	return s.stmt.Exec(args)
}

func (s *traceStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.log("exec", namedStrings(args))
	if execCtx, ok := s.stmt.(driver.StmtExecContext); ok {
		return execCtx.ExecContext(ctx, args)
	}
	//nolint:staticcheck // SA1019 – fallback when StmtExecContext is missing
	return s.stmt.Exec(namedValues(args))
}

func (s *traceStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.log("query", valueStrings(args))
	//nolint:staticcheck // SA1019 – sqlite3 stmt predates StmtQueryContext
	return s.stmt.Query(args)
}

func (s *traceStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.log("query", namedStrings(args))
	if queryCtx, ok := s.stmt.(driver.StmtQueryContext); ok {
		return queryCtx.QueryContext(ctx, args)
	}
	//nolint:staticcheck // SA1019 – fallback when StmtQueryContext is missing
	return s.stmt.Query(namedValues(args))
}

func (s *traceStmt) Close() error { return s.stmt.Close() }

func (s *traceStmt) NumInput() int {
	if n, ok := s.stmt.(interface{ NumInput() int }); ok {
		return n.NumInput()
	}
	return -1
}

func (s *traceStmt) log(op string, args []string) {
	s.logger.Debug("sql", "op", op, "sql", s.query, "args", args)
}

func valueStrings(args []driver.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = formatArg(a)
	}
	return out
}

func namedStrings(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a.Name != "" {
			out[i] = a.Name + "=" + formatArg(a.Value)
		} else {
			out[i] = formatArg(a.Value)
		}
	}
	return out
}

func namedValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArg(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
