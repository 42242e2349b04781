package cmd

import (
	"fmt"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/database"
)

// runMigrate applies pending database migrations and exits.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	if err := database.Migrate(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("database schema up to date")
	return nil
}
