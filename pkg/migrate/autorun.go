package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/pkg/config"
)

// MaybeAutoRun applies pending migrations on boot when AUTO_MIGRATE is set outside production.
func MaybeAutoRun(ctx context.Context, cfg *config.Config, log *zap.Logger, db *sql.DB) error {
	if cfg == nil || !cfg.Migrations.AutoRun || cfg.Env == config.EnvProduction {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("running goose migrations (auto-run)", zap.String("env", cfg.Env))
	if err := Run(ctx, db, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	log.Info("goose migrations completed")
	return nil
}
