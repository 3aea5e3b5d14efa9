//go:build sqlite

package main

import (
	"fmt"
	"path/filepath"

	"github.com/billingcat/invoicedesk/model"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3" // CGO!
)

func migrationsDir() string { return "migrations/sqlite3" }

func migrateDSN(cfg *model.Config) (string, error) {
	svr := cfg.CurrentServer()
	if svr.Database != "sqlite3" {
		return "", fmt.Errorf("mode %q does not use sqlite3", cfg.Mode)
	}
	dbPath := svr.SQLiteFile()
	if !filepath.IsAbs(dbPath) {
		dbPath = "./" + dbPath
	}
	return fmt.Sprintf("sqlite3://%s?_foreign_keys=on&_journal_mode=WAL",
		filepath.ToSlash(dbPath)), nil
}
