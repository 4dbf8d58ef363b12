// Package service provides the application layer between the HTTP handlers
// and the task engine: request-scoped orchestration of validation, storage,
// caching, and trigger publication.
package service
