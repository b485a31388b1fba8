package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/logger"
	"github.com/brightclass/brightclass-lms/internal/rbac"
)

// POST /assessments
func CreateAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a assessment.Assessment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		a.ID = "" // minted by the store
		a.CreatedBy = rbac.SubjectFromContext(r.Context())
		created, err := store.PutAssessment(r.Context(), a)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// PUT /assessments/{assessmentID} — full replace-on-edit of the question set.
func UpdateAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assessmentID"))
		if id == "" {
			http.Error(w, "assessmentID required", http.StatusBadRequest)
			return
		}
		// replace-on-edit requires an existing assessment
		if _, err := store.GetQuestionBank(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		var a assessment.Assessment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		a.ID = id
		updated, err := store.PutAssessment(r.Context(), a)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// GET /assessments/{assessmentID} — student-safe view, no correctness flags.
func GetAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "assessmentID")
		a, err := store.GetAssessment(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /assessments/{assessmentID}/full — authoritative view for teachers.
func GetAssessmentFullHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "assessmentID")
		a, err := store.GetQuestionBank(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /assessments?course_id=...&limit=50&offset=0
func ListAssessmentsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListAssessments(r.Context(), assessment.ListOpts{
			CourseID: strings.TrimSpace(r.URL.Query().Get("course_id")),
			Limit:    parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:   parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DELETE /assessments/{assessmentID} — cascade delete, all-or-nothing.
func DeleteAssessmentHandler(store assessment.Store, timeout time.Duration, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assessmentID"))
		if id == "" {
			http.Error(w, "assessmentID required", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := store.DeleteAssessment(ctx, id); err != nil {
			if errors.Is(err, assessment.ErrNotFound) {
				writeError(w, err)
				return
			}
			log.Error("cascade delete failed", "assessment_id", id, "err", err)
			http.Error(w, "delete failed, no changes made", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
