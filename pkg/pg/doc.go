// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver. It offers a thin abstraction around connection pooling,
// embedded schema migrations, health checks, and common error helpers so
// that the Postgres token store can bootstrap a resilient database layer
// with only a few lines of code.
//
// The package purposefully keeps a very small API surface while relying on
// battle-tested upstream libraries (`pgx/v5` for connectivity and `goose/v3`
// for schema migrations) so that callers are never locked-in and can freely
// extend the behaviour where needed.
//
// # Usage
//
//	cfg := pg.Config{ConnectionString: os.Getenv("PG_CONN_URL")}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrationsFS, "migrations", cfg, slog.Default()); err != nil {
//	    log.Fatal(err)
//	}
//
// The error helpers (IsNotFoundError, IsDuplicateKeyError, IsTxClosedError)
// translate driver-level failures into the classifications the token store
// cares about, keeping pgx error codes out of application code.
package pg
