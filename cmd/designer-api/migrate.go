package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tradewatt/designer/internal/config"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/pkg/log"
	"github.com/tradewatt/designer/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("designer_api").Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Named("designer_api").Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if cfg.Service.MigrationFolder != "" {
			if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
				zap.S().Named("designer_api").Fatalf("running goose migrations: %v", err)
			}
			zap.S().Named("designer_api").Info("Db migrated")
			return nil
		}

		if err := s.InitialMigration(); err != nil {
			zap.S().Named("designer_api").Fatalf("running initial migration: %v", err)
		}
		zap.S().Named("designer_api").Info("Db migrated")
		return nil
	},
}
