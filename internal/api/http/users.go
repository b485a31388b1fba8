package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/brightclass/brightclass-lms/internal/rbac"
	"github.com/brightclass/brightclass-lms/internal/users"
)

// POST /users/bulk — accepts either a multipart file= (CSV/JSON) or a raw
// JSON array in the body.
func BulkUpsertUsersHandler(dir *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []users.UpsertRow
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", 400)
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by first non-space byte
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				http.Error(w, "empty file", 400)
				return
			}
			if s, ok := f.(io.Seeker); ok {
				_, _ = s.Seek(0, io.SeekStart)
			}
			if buf[0] == '[' || buf[0] == '{' {
				if err := json.NewDecoder(f).Decode(&rows); err != nil {
					http.Error(w, "bad json", 400)
					return
				}
			} else {
				rs, err := parseUserCSV(f)
				if err != nil {
					http.Error(w, "bad csv: "+err.Error(), 400)
					return
				}
				rows = rs
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				http.Error(w, "expected JSON array or multipart file", 400)
				return
			}
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"inserted": 0, "updated": 0})
			return
		}

		ins, upd, err := dir.BulkUpsert(r.Context(), rows)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inserted": ins, "updated": upd})
	}
}

// GET /users?role=student
func ListUsersHandler(dir *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := dir.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /users/change-password  { "current": "...", "new": "..." }
func ChangePasswordHandler(dir *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current string `json:"current"`
			New     string `json:"new"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if len(req.New) < 8 {
			http.Error(w, "new password too short", 400)
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		if err := dir.ChangePassword(r.Context(), userID, req.Current, req.New); err != nil {
			if errors.Is(err, users.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
	}
}

func parseUserCSV(r io.Reader) ([]users.UpsertRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	required := []string{"id", "username", "role"}
	for _, k := range required {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []users.UpsertRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := users.UpsertRow{
			ID:       rec[idx["id"]],
			Username: rec[idx["username"]],
			Role:     strings.ToLower(rec[idx["role"]]),
		}
		if i, ok := idx["display_name"]; ok {
			row.DisplayName = rec[i]
		}
		if i, ok := idx["password"]; ok {
			row.Password = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
