package http

import (
	"encoding/json"
	"net/http"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/rbac"
)

// POST /submissions
// Body: { assessment_id, user_id, answers: [{question_id, selected_option_id}] }
// Students can only submit for themselves; the subject overrides user_id.
func SubmitHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub assessment.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		if role != "teacher" && role != "admin" {
			sub.UserID = rbac.SubjectFromContext(r.Context())
		}
		if sub.AssessmentID == "" || sub.UserID == "" {
			http.Error(w, "assessment_id and user_id required", http.StatusBadRequest)
			return
		}
		res, err := svc.Submit(r.Context(), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}
