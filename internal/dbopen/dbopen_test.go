package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/notamwatch/internal/dbopen"
)

func TestOpen_Pragmas(t *testing.T) {
	// WHAT: foreign keys, busy timeout and synchronous are applied.
	// WHY: the ledger relies on cascading deletes and on waiting out locks.
	db := dbopen.OpenMemory(t)

	var fk, sync, busy int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if fk != 1 || sync != 1 || busy != 10_000 {
		t.Errorf("pragmas: foreign_keys=%d synchronous=%d busy_timeout=%d", fk, sync, busy)
	}
}

func TestOpen_FileWithSchema(t *testing.T) {
	// WHAT: a file database is created under a missing directory with its schema.
	// WHY: the ledger path is configurable and may point at a fresh directory.
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(`CREATE TABLE t (x INTEGER)`))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO t (x) VALUES (1)`); err != nil {
		t.Errorf("insert: %v", err)
	}
}

func TestRunTx_Rollback(t *testing.T) {
	// WHAT: an error from fn rolls the transaction back and is returned as is.
	// WHY: a run and its failures are written together or not at all.
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE t (x INTEGER)`))
	boom := errors.New("boom")
	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (x) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after rollback: %d", n)
	}
}

func TestIsBusy(t *testing.T) {
	// WHAT: lock messages are recognised, other errors are not.
	// WHY: only busy errors are worth retrying.
	if !dbopen.IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("expected busy")
	}
	if dbopen.IsBusy(errors.New("no such table")) || dbopen.IsBusy(nil) {
		t.Error("unexpected busy")
	}
}
