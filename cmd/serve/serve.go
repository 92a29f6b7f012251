// Package serve implements the dashboard server command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autovisor/visitmon/internal/conf"
	"github.com/autovisor/visitmon/internal/httpcontroller"
	"github.com/autovisor/visitmon/internal/logging"
	"github.com/autovisor/visitmon/internal/observability"
	"github.com/autovisor/visitmon/internal/sheets"
	"github.com/autovisor/visitmon/internal/visit"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dealer visit dashboard server",
		Long:  "Serve the interactive dashboard: summary metrics, dealer table, issue and feature charts, and the recent visits view.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Dashboard.Host, "host", viper.GetString("dashboard.host"), "Host address to bind to")
	cmd.Flags().StringVar(&settings.Dashboard.Port, "port", viper.GetString("dashboard.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}

func runServe(ctx context.Context, settings *conf.Settings) error {
	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	client, err := sheets.NewClient(ctx, sheets.Config{
		CredentialsFile: settings.Sheets.CredentialsFile,
		CredentialsJSON: settings.Sheets.CredentialsJSON,
		SpreadsheetName: settings.Sheets.SpreadsheetName,
		WorksheetName:   settings.Sheets.WorksheetName,
		Timeout:         time.Duration(settings.Sheets.Timeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("initializing sheets client: %w", err)
	}
	defer client.Close()

	loader := visit.NewService(client,
		visit.WithTTL(time.Duration(settings.Sheets.CacheTTL)*time.Minute),
		visit.WithAllowPartial(settings.Sheets.AllowPartial),
		visit.WithMetrics(metrics.Loader),
	)
	defer visit.Close()

	server := httpcontroller.New(settings, loader, metrics)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("dashboard starting",
		"host", settings.Dashboard.Host,
		"port", settings.Dashboard.Port,
		"spreadsheet", settings.Sheets.SpreadsheetName,
		"cache_ttl_minutes", settings.Sheets.CacheTTL)

	return server.Start(ctx)
}
