package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]slog.Value
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.records = append(h.records, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) sqlRecords() []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.records {
		if m["msg"].String() == "sql" {
			out = append(out, m)
		}
	}
	return out
}

func TestTraceConnector_LogsExecAndQuery(t *testing.T) {
	handler := &captureHandler{}
	logger := slog.New(handler)

	dbc := sql.OpenDB(NewTraceConnector(":memory:", logger))
	defer func() { _ = dbc.Close() }()

	if _, err := dbc.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := dbc.Exec(`INSERT INTO t (id, name) VALUES (?, ?)`, 1, "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var name string
	if err := dbc.QueryRow(`SELECT name FROM t WHERE id = ?`, 1).Scan(&name); err != nil {
		t.Fatalf("select: %v", err)
	}
	if name != "a" {
		t.Errorf("name = %q, want a", name)
	}

	recs := handler.sqlRecords()
	if len(recs) < 3 {
		t.Fatalf("got %d sql records, want at least 3", len(recs))
	}
	var sawInsert, sawSelect bool
	for _, m := range recs {
		switch m["op"].String() {
		case "exec":
			if m["sql"].String() == `INSERT INTO t (id, name) VALUES (?, ?)` {
				sawInsert = true
			}
		case "query":
			if m["sql"].String() == `SELECT name FROM t WHERE id = ?` {
				sawSelect = true
			}
		}
	}
	if !sawInsert {
		t.Error("insert statement was not traced")
	}
	if !sawSelect {
		t.Error("select statement was not traced")
	}
}

func TestTraceDriver_DirectOpenRefused(t *testing.T) {
	if _, err := (traceDriver{}).Open(":memory:"); err == nil {
		t.Fatal("direct driver open should be refused")
	}
}
