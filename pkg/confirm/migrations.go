package confirm

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/confirmkit/pkg/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the confirmation_tokens schema required by
// PostgresStore. The migration is embedded in the module, so callers
// only need a connected pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return pg.Migrate(ctx, pool, migrationsFS, "migrations", cfg, log)
}
