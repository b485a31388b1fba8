package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/logger"
)

func TestClientDrivesSessionAgainstServer(t *testing.T) {
	bank := twoQuestionBank()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			http.Error(w, "missing bearer", http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/assessments/a1":
			_ = json.NewEncoder(w).Encode(bank)
		case r.Method == http.MethodPost && r.URL.Path == "/submissions":
			var sub assessment.Submission
			if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(assessment.DetailedResult{
				ResultID: "r1",
				UserID:   sub.UserID,
				Score:    len(sub.Answers),
				MaxScore: len(bank.Questions),
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	s, err := Start(context.Background(), c, c, "a1", "u1", logger.NewNop())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SelectAnswer("q1", "q1a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.SelectAnswer("q2", "q2b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	res := s.Result()
	if res == nil || res.Score != 2 {
		t.Fatalf("result = %+v, want score 2", res)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "assessment a1: not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if _, err := c.GetAssessment(context.Background(), "a1"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
