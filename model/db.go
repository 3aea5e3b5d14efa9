package model

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// Store is the persistence layer. All methods are scoped by vendor id where
// the data belongs to a vendor.
type Store struct {
	db     *gorm.DB
	Config *Config
}

// NewStore wraps an open gorm connection.
func NewStore(db *gorm.DB, cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	return &Store{db: db, Config: cfg}
}

// InitDatabase opens the database of the configured mode and migrates the
// schema.
func InitDatabase(cfg *Config) (*Store, error) {
	svr, ok := cfg.Servers[cfg.Mode]
	if !ok {
		return nil, fmt.Errorf("no server configured for mode %q", cfg.Mode)
	}
	var dialector gorm.Dialector
	switch svr.Database {
	case "sqlite3":
		dialector = sqliteDialector(svr)
		slog.Info("using database", "engine", "sqlite3", "file", sqliteFilename(svr))
	case "postgresql":
		dialector = postgresDialector(svr)
		slog.Info("using database", "engine", "postgresql", "host", svr.DBHost, "dbname", svr.DBName)
	default:
		return nil, fmt.Errorf("database %q not implemented", svr.Database)
	}
	db, err := gorm.Open(dialector, gormLoggerFor(cfg, svr))
	if err != nil {
		return nil, err
	}
	s := NewStore(db, cfg)
	if err = s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// AutoMigrate creates or updates all tables.
func (s *Store) AutoMigrate() error {
	for _, m := range []any{
		&Vendor{},
		&OneTimeCode{},
		&Customer{},
		&Template{},
		&Invoice{},
		&InvoiceItem{},
		&History{},
		&Payment{},
		&APIToken{},
	} {
		if err := s.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
