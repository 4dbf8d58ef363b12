package api

import (
	"errors"
	"net/http"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/service"
)

// statusForError maps domain and service errors to HTTP status codes.
// Ownership failures read as 404 so task ids leak no existence information
// across owners.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrVariationNotFound),
		errors.Is(err, service.ErrNotOwned):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageForStatus returns the client-facing message for a status code.
// Internal details stay in the logs.
func messageForStatus(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusNotFound:
		if errors.Is(err, service.ErrVariationNotFound) {
			return "Variation not found"
		}
		return "Task not found"
	default:
		return "Internal server error"
	}
}
