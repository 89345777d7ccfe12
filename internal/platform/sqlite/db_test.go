package sqlite

import (
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	schema := `CREATE TABLE IF NOT EXISTS things (id TEXT PRIMARY KEY)`
	if err := Migrate(db, schema, schema); err != nil {
		t.Fatalf("Migrate should be repeatable: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, "not sql"); err == nil {
		t.Error("expected invalid schema to fail")
	}
}
