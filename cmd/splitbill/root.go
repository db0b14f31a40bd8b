package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/splitbill/internal/config"
	"github.com/aretw0/splitbill/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "splitbill",
	Short: "splitbill splits a shared bill between participants",
	Long: `splitbill walks a group through a bill: participants, payer, items typed in,
scanned from a receipt QR code or imported from a table, and who shares what.
It then reports who owes how much to the payer.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with SPLITBILL_* variables (ignored when absent)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

// loadConfig reads the configuration selected by the persistent flags and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	dotenv, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(file, dotenv)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	logger, err := logging.FromConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
