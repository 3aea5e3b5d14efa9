package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/billingcat/invoicedesk/billing"
	"github.com/billingcat/invoicedesk/controller"
	"github.com/billingcat/invoicedesk/filestore"
	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/mail"
	"github.com/billingcat/invoicedesk/model"
	"github.com/billingcat/invoicedesk/payments"
	"github.com/billingcat/invoicedesk/render"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := controller.NewLogger(cfg.Mode)
	slog.SetDefault(logger)

	store, err := model.InitDatabase(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := newFileStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	images := filestore.NewProfileImages(files)
	mailer := mail.New(cfg.Mode, cfg.MailAPIKey, cfg.MailSecret, cfg.MailFrom, logger)
	gate := invoicing.NewGate(store)
	svc := billing.NewService(store, gate, invoicing.NewEmitter(store, logger), newRenderer(cfg, logger), mailer, images, logger)

	gateway := payments.NewGateway(cfg.PaymentKeyID, cfg.PaymentSecret)
	if !gateway.Configured() {
		logger.Warn("payment gateway not configured, subscriptions are disabled")
	}

	logger.Info("starting server", "port", cfg.Port, "mode", cfg.Mode, "renderer", cfg.Renderer)
	return controller.NewController(store, controller.Deps{
		Billing:  svc,
		Gate:     gate,
		Images:   images,
		Mailer:   mailer,
		Payments: gateway,
		Logger:   logger,
	})
}

func newRenderer(cfg *model.Config, logger *slog.Logger) render.Renderer {
	if cfg.Renderer == "publisher" {
		return render.NewPublisherRenderer(cfg.PublishingServerUsername, cfg.PublishingServerAddress, cfg.Basedir, logger)
	}
	return render.NewPDFRenderer(logger)
}

// newFileStore uses the GCS bucket when one is configured, otherwise a
// directory below Basedir.
func newFileStore(ctx context.Context, cfg *model.Config) (filestore.Store, error) {
	if cfg.ImageBucket != "" {
		return filestore.NewGCS(ctx, cfg.ImageBucket, cfg.ImageCredentials)
	}
	dir := filepath.Join(cfg.Basedir, "images")
	files, err := filestore.NewLocal(dir)
	if err != nil {
		return nil, fmt.Errorf("image directory %s: %w", dir, err)
	}
	return files, nil
}
