// Package store defines the persistence error vocabulary and the database
// access contract shared by all storage implementations. Conditional-update
// conflicts surface here as ErrConflict so callers can tell a lost race from
// a fault.
package store
