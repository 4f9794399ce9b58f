package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := OpenMemory(t, WithBusyTimeout(1234))

	var bt int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&bt); err != nil {
		t.Fatal(err)
	}
	if bt != 1234 {
		t.Fatalf("busy_timeout = %d, want 1234", bt)
	}
	var sync int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatal(err)
	}
	if sync != 1 {
		t.Fatalf("synchronous = %d, want 1 (NORMAL)", sync)
	}
}

func TestOpen_SchemaAndMkdir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	schema := `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)`
	db, err := Open(path, WithMkdirAll(), WithSchema(schema))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO kv VALUES ('a', '1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	// Reopening re-runs the schema without error.
	db, err = Open(path, WithSchema(schema))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var v string
	if err := db.QueryRow(`SELECT v FROM kv WHERE k = 'a'`).Scan(&v); err != nil || v != "1" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestOpen_BadSchema(t *testing.T) {
	if _, err := Open(":memory:", WithSchema("NOT SQL")); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("no such table"), false},
	}
	for _, c := range cases {
		if got := IsBusy(c.err); got != c.want {
			t.Errorf("IsBusy(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRunTx(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE n (v INTEGER)`))
	ctx := context.Background()

	if err := RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO n VALUES (1)`)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO n VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM n`).Scan(&count)
	if count != 1 {
		t.Fatalf("rolled back row persisted: count = %d", count)
	}
}
