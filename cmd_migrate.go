package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate up|down [steps]",
	Short: "Apply or roll back SQL migrations",
	Long: `Applies the SQL files below migrations/<engine>. The database engine is
chosen at build time:

  go build -tags postgres
  go build -tags sqlite`,
	Example: `  invoicedesk migrate up
  invoicedesk migrate down 1`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, args []string) error {
	steps := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("steps must be a positive number, got %q", args[1])
		}
		steps = n
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dsn, err := migrateDSN(cfg)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+migrationsDir(), dsn)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		// without a count only the last migration is rolled back
		if steps == 0 {
			steps = 1
		}
		err = m.Steps(-steps)
	default:
		return fmt.Errorf("unknown direction %q, want up or down", args[0])
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("migrate: no change")
		return nil
	}
	if err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	slog.Info("migrate: done", "version", version, "dirty", dirty)
	return nil
}
