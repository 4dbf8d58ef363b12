// Package domain contains the core business entities and invariants: the
// task state machine, palette metadata validation, and rendered variation
// records. It is independent of any storage, transport, or generation
// backend.
package domain
