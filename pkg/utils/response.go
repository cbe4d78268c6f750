package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"cable-backend/internal/models"
)

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes a JSON error body with the given status code.
func RespondError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps the shared sentinel errors onto HTTP status codes.
// Anything unrecognized counts as a validation failure: services check their
// input before touching the database.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotPending),
		errors.Is(err, models.ErrVersionConflict),
		errors.Is(err, models.ErrDuplicate):
		RespondError(w, http.StatusConflict, err.Error())
	default:
		RespondError(w, http.StatusBadRequest, err.Error())
	}
}
