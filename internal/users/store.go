// Package users is the user directory: display-name lookups for grading
// surfaces plus the local credential store behind /auth/login.
package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/brightclass/brightclass-lms/internal/logger"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// UpsertRow is one row of a bulk user import. Password is plaintext and
// hashed before storage; it may be empty for updates that keep the hash.
type UpsertRow struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Password    string `json:"password,omitempty"`
}

type Store struct {
	db  *sql.DB
	log *logger.Logger
}

func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log.With("store", "users")}
}

func (s *Store) Get(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, created_at FROM users WHERE id=$1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// DisplayName resolves a user id to a display name, falling back to the
// username when no display name is set.
func (s *Store) DisplayName(ctx context.Context, id string) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if u.DisplayName != "" {
		return u.DisplayName, nil
	}
	return u.Username, nil
}

// Authenticate checks a username/password pair against the stored bcrypt hash.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash, created_at FROM users WHERE username=$1`, username)
	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &hash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) List(ctx context.Context, role string) ([]User, error) {
	var rows *sql.Rows
	var err error
	if role == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, username, display_name, role, created_at FROM users ORDER BY username`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, username, display_name, role, created_at FROM users WHERE role=$1 ORDER BY username`, role)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// BulkUpsert inserts or updates users in one transaction. New users need a
// password; updates keep the existing hash when Password is empty.
func (s *Store) BulkUpsert(ctx context.Context, rows []UpsertRow) (inserted, updated int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := time.Now().Unix()
	for _, r := range rows {
		if r.Role == "" {
			r.Role = "student"
		}
		if r.Role != "student" && r.Role != "teacher" && r.Role != "admin" {
			return inserted, updated, errors.New("invalid role: " + r.Role)
		}
		var phash string
		if r.Password != "" {
			b, e := bcrypt.GenerateFromPassword([]byte(r.Password), 12)
			if e != nil {
				return inserted, updated, e
			}
			phash = string(b)
		}

		var existingID string
		exists := true
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 OR username=$2`, r.ID, r.Username).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			exists = false
		case err != nil:
			return inserted, updated, err
		case existingID != r.ID:
			// the username already belongs to a different user; updating
			// by the row's id would silently write nothing
			return inserted, updated, errors.New("username " + r.Username + " already belongs to user " + existingID)
		}
		if exists {
			if phash != "" {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET username=$1, display_name=$2, role=$3, password_hash=$4 WHERE id=$5`,
					r.Username, r.DisplayName, r.Role, phash, r.ID)
			} else {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET username=$1, display_name=$2, role=$3 WHERE id=$4`,
					r.Username, r.DisplayName, r.Role, r.ID)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		} else {
			if phash == "" {
				return inserted, updated, errors.New("password required for new user: " + r.Username)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, display_name, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
				r.ID, r.Username, r.DisplayName, phash, r.Role, now)
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		}
	}
	return
}

// ChangePassword verifies the current password before writing the new hash.
func (s *Store) ChangePassword(ctx context.Context, id, current, next string) error {
	var hash string
	if err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	b, err := bcrypt.GenerateFromPassword([]byte(next), 12)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(b), id)
	return err
}
