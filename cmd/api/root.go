package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/config"
	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/logging"
)

// newRootCommand creates the materialive command tree.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "materialive",
		Short:         "Materialive warehouse staging API",
		Long:          "Tracks material staged for pickup and reconciles purchase orders pushed by the ERP sync agent.",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newUserCommand())

	return cmd
}

// env is the configuration, logger and database shared by every command.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.DB
}

// setup loads configuration and opens the database. When migrate is set the
// schema is brought up to date before returning.
func setup(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	e.db.Close()
	e.log.Sync()
}
