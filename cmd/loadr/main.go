package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/QueryGate/internal/loadr"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:           "loadr",
		Short:         "loadr - fixture data and workload generator for QueryGate",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required for '%s'", cmd.Name())
			}
			return logger.InitLogger(logger.LogConfig{Level: logLevel})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Write a seed SQL file with fixture tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadr.ReadSeedConfig(configPath)
			if err != nil {
				return err
			}
			return loadr.Load(cfg)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Drive a query workload against a running gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadr.ReadRunConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stats, err := loadr.Run(ctx, cfg, nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(loadCmd, runCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
