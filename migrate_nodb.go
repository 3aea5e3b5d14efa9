//go:build !postgres && !sqlite

package main

import (
	"errors"

	"github.com/billingcat/invoicedesk/model"
)

var errNoMigrateDriver = errors.New("migrate: build with -tags postgres or -tags sqlite")

func migrationsDir() string { return "" }

func migrateDSN(_ *model.Config) (string, error) { return "", errNoMigrateDriver }
