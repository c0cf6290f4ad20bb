package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trainctl/internal/config"
)

var (
	cfgFile     string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "trainctl",
	Short: "Control board for the model railway layout",
	Long: `trainctl drives the layout control board: 24 indicator LEDs, the
track power relay, the turnout point motors and the occupancy sensors.

Run one-shot hardware diagnostics with "trainctl test", or start the
long-running REST service with "trainctl server".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (built-in defaults when unset)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "board profile overriding the configured one")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if profileName != "" {
		cfg.Board.Profile = profileName
	}
	return cfg, nil
}
