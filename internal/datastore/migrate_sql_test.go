//go:build sqltest
// +build sqltest

package datastore

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-txdb"
	_ "github.com/lib/pq" // PostgreSQL driver
)

func init() {
	dsn := os.Getenv("SQLTEST_DSN")
	if dsn == "" {
		dsn = "user=test password=test dbname=test host=/var/run/postgresql sslmode=disable"
	}
	txdb.Register("txdb", "postgres", dsn)
}

// TestMigrations runs every up migration, then its down migration, inside a
// transaction that is always rolled back.
func TestMigrations(t *testing.T) {
	migrationsDir := "../../db/schema"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("failed to read migrations directory: %v", err)
	}

	for _, file := range files {
		name := file.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		t.Run(name, func(t *testing.T) {
			db, err := sql.Open("txdb", name)
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			defer db.Close()

			up, err := os.ReadFile(filepath.Join(migrationsDir, name))
			if err != nil {
				t.Fatalf("failed to read migration file: %v", err)
			}
			down, err := os.ReadFile(filepath.Join(migrationsDir, strings.TrimSuffix(name, ".up.sql")+".down.sql"))
			if err != nil {
				t.Fatalf("missing down migration: %v", err)
			}

			tx, err := db.Begin()
			if err != nil {
				t.Fatalf("failed to begin transaction: %v", err)
			}
			defer tx.Rollback()

			if _, err := tx.Exec(string(up)); err != nil {
				t.Fatalf("up migration failed: %v", err)
			}
			if _, err := tx.Exec(string(down)); err != nil {
				t.Errorf("down migration failed: %v", err)
			}
		})
	}
}
