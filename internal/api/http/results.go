package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/rbac"
)

// GET /results?assessment_id=...&user_id=...
// Returns the single matching result; with repeat attempts the latest
// attempt_date wins. Students are scoped to their own results.
func GetResultHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assessmentID := strings.TrimSpace(r.URL.Query().Get("assessment_id"))
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

		role := rbac.RoleFromContext(r.Context())
		if role != "teacher" && role != "admin" {
			userID = rbac.SubjectFromContext(r.Context())
		}
		if assessmentID == "" || userID == "" {
			http.Error(w, "assessment_id and user_id required", http.StatusBadRequest)
			return
		}
		res, err := store.GetResultByUserAndAssessment(r.Context(), userID, assessmentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /assessments/{assessmentID}/results — all submissions, newest first.
func ListResultsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "assessmentID")
		list, err := store.ListResultsByAssessment(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /results/{resultID} — the per-question review payload.
// Readable by the result's owner or anyone with result:view-all.
func GetDetailedResultHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "resultID")
		det, err := store.GetDetailedResult(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		role := rbac.RoleFromContext(r.Context())
		if role != "teacher" && role != "admin" && det.UserID != rbac.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, det)
	}
}
