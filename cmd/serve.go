package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/neo/personasim/internal/database"
	"github.com/neo/personasim/internal/server"
	"github.com/spf13/cobra"
)

var (
	port           string
	allowedOrigins string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored simulation results over HTTP",
	Long: `Start the read-only results API over the local datastore. It lists
sessions, returns a session's iteration records, reports aggregate statistics
and exposes Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}

		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		srvConfig := server.DefaultConfig()
		srvConfig.Port = cfg.Port
		srvConfig.Env = cfg.Env
		if allowedOrigins != "" {
			srvConfig.AllowedOrigins = strings.Split(allowedOrigins, ",")
		}

		srv := server.NewServer(db, srvConfig, nil)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&port, "port", "P", "8080", "port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&allowedOrigins, "origins", "", "comma-separated CORS allowlist (default any origin)")
}
