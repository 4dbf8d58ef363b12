// Package config handles configuration loading and validation from
// environment variables and optional config files, giving the rest of the
// application type-safe access to server, database, messaging, generation,
// worker, and sweeper settings.
package config
