package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaibhaw-/QueryGate/internal/querygate/config"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

var (
	cfgFile string
	Version = "v0.1"
	build   = "dev"
	rootCmd = &cobra.Command{
		Use:           "querygate",
		Short:         "QueryGate - guarded SQL query gateway",
		Long:          "QueryGate: admission-controlled, rate-limited SQL execution over HTTP with query history and a tamper-evident audit trail.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			} else {
				// default: ./config.yaml
				viper.SetConfigFile("config.yaml")
			}
			if err := viper.ReadInConfig(); err != nil {
				// missing config is fine, defaults and QUERYGATE_* env still apply
				if cfgFile != "" {
					fmt.Fprintf(os.Stderr, "Warning: could not read config (%v). Using defaults and flags.\n", err)
				}
			}
			if err := config.Load(viper.GetViper()); err != nil {
				return err
			}

			cfg := config.Get()
			if err := logger.InitLogger(logger.LogConfig{
				Level:       cfg.Logging.Level,
				Development: cfg.Logging.Development,
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
