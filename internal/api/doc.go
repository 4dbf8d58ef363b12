// Package api implements the HTTP surface: task submission and retrieval
// handlers, request/response models, and the error-to-status mapping.
package api
