package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/users"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a storage failure and comes back retryable.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assessment.ErrNotFound), errors.Is(err, users.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, assessment.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assessment.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
