package main

import (
	"github.com/billingcat/invoicedesk/controller"
	"github.com/billingcat/invoicedesk/model"
	"github.com/spf13/cobra"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Remove stale tokens and codes, expire subscriptions, vacuum the database",
	Long: `Runs the housekeeping tasks once and exits. Meant to be started from cron.
On PostgreSQL an advisory lock keeps concurrent runs apart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := controller.NewLogger(cfg.Mode)
		store, err := model.InitDatabase(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return model.RunMaintenance(cmd.Context(), store, logger)
	},
}

func init() {
	rootCmd.AddCommand(maintenanceCmd)
}
