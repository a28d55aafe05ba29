package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theplant/pagequery/internal/database"
	"github.com/theplant/pagequery/internal/model"
)

var seedFlags struct {
	migrate bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo company, user and posts",
	Long: `Insert demo data. The demo user signs in as test@gmail.com / test12345.
Running it again is a no-op.

Examples:
  pagequery seed
  pagequery seed --migrate`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedFlags.migrate, "migrate", false, "create or update tables before seeding")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, _, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	handle := database.New(cfg.Database, logger)
	defer handle.Close()

	ctx := cmd.Context()
	db, err := handle.DB(ctx)
	if err != nil {
		return err
	}

	if seedFlags.migrate {
		if err := db.AutoMigrate(model.All()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		logger.Info("auto-migration completed")
	}

	if err := model.Seed(ctx, db); err != nil {
		return err
	}
	logger.Info("seed completed", zap.String("email", model.DemoEmail))
	return nil
}
