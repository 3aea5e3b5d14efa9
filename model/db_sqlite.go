package model

import (
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// sqlite (pure Go)
func sqliteDialector(svr Server) gorm.Dialector {
	return sqlite.Open(sqliteFilename(svr) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
}

func sqliteFilename(svr Server) string {
	if filepath.IsAbs(svr.DBName) {
		return svr.DBName
	}
	return filepath.Join("db", svr.DBName)
}

// SQLiteFile is the database file used for this server section.
func (s Server) SQLiteFile() string { return sqliteFilename(s) }
