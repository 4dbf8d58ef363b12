// Package events carries task status change notifications from the engine to
// interested consumers (logs, message bus) without the engine depending on
// any particular transport.
package events
