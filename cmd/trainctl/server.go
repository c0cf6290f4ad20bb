package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainctl/internal/system"
)

var (
	serverHost string
	serverPort int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the REST API service",
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverHost, "host", "", "listen address overriding the configured one")
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "listen port overriding the configured one")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	lifecycle, err := system.NewLifecycleManager(cfg, logger)
	if err != nil {
		return err
	}

	if err := lifecycle.Start(); err != nil {
		lifecycle.Shutdown(context.Background())
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-lifecycle.Done():
		// Shutdown came through the API.
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return lifecycle.Shutdown(ctx)
}
