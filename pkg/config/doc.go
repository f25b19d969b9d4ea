// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Parsing is backed by github.com/caarlos0/env struct tags. Each
// configuration type is loaded once per process and cached, so the same
// struct can be requested from several places without re-reading the
// environment.
//
// # Usage
//
//	var cfg confirm.Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Use MustLoad for configuration the process cannot run without; it
// panics on failure so misconfiguration stops startup instead of
// surfacing later as runtime errors.
package config
