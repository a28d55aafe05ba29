package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theplant/pagequery/internal/config"
	"github.com/theplant/pagequery/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pagequery",
	Short: "Paginated list API with allow-listed filters, search and sorting",
	Long: `pagequery turns untrusted pagination, filter, sort and search parameters
into allow-listed queries against PostgreSQL and returns a page of records
with pagination metadata.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: search ., ./config, /etc/pagequery)")
}

// bootstrap loads the configuration and builds the logger every command needs.
func bootstrap() (*config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	l, level, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	return cfg, l, level, nil
}
