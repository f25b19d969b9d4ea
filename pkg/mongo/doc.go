// Package mongo provides MongoDB connection management for the
// document-backed token store.
//
// Configuration is environment-driven through the Config struct
// (github.com/caarlos0/env tags), and New retries the connection to
// tolerate transient failures during startup.
//
// # Usage
//
//	cfg := mongo.Config{
//	    ConnectionURL: "mongodb://localhost:27017",
//	}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "myapp")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Client().Disconnect(ctx)
//
// Connection failures are wrapped in package errors usable with
// errors.Is(). The document token store requires a replica set or
// sharded deployment, since it relies on multi-document transactions.
package mongo
