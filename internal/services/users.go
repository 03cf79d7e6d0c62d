package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studyprep/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches the given identifier.
	ErrUserNotFound = errors.New("user not found")
)

// UserService persists identity-provider user records and their keyed data.
type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// SyncInput carries the fields pushed by the identity provider on each sync.
type SyncInput struct {
	ClerkID   string
	Email     string
	FirstName string
	LastName  string
	FullName  string
	ImageURL  string
}

// Sync upserts a user keyed by the provider id. The primary id is assigned
// on first sync and never changes afterwards, even when the email does.
func (s *UserService) Sync(ctx context.Context, in SyncInput) (*models.User, error) {
	now := time.Now().UTC()

	var existingID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE clerk_id = ?;`, in.ClerkID).Scan(&existingID)
	switch {
	case err == nil:
		if _, err := s.db.ExecContext(ctx, `
			UPDATE users
			SET email = ?, first_name = ?, last_name = ?, full_name = ?, image_url = ?, updated_at = ?
			WHERE clerk_id = ?;
		`, in.Email, nullable(in.FirstName), nullable(in.LastName), nullable(in.FullName), nullable(in.ImageURL), now, in.ClerkID); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// The provider id doubles as the primary key for new rows.
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, clerk_id, email, first_name, last_name, full_name, image_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, in.ClerkID, in.ClerkID, in.Email, nullable(in.FirstName), nullable(in.LastName), nullable(in.FullName), nullable(in.ImageURL), now, now); err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
	default:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return s.GetByClerkID(ctx, in.ClerkID)
}

func (s *UserService) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	return s.fetchUser(ctx, `
		SELECT id, clerk_id, email, first_name, last_name, full_name, image_url, created_at, updated_at
		FROM users WHERE clerk_id = ?;
	`, clerkID)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.fetchUser(ctx, `
		SELECT id, clerk_id, email, first_name, last_name, full_name, image_url, created_at, updated_at
		FROM users WHERE email = ?;
	`, email)
}

func (s *UserService) fetchUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	user := &models.User{}
	if err := row.Scan(
		&user.ID,
		&user.ClerkID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.FullName,
		&user.ImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// Delete removes a user by provider id. ErrUserNotFound is returned when
// nothing matched.
func (s *UserService) Delete(ctx context.Context, clerkID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE clerk_id = ?;`, clerkID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetDatum upserts one keyed value for a user.
func (s *UserService) SetDatum(ctx context.Context, userID, key, value string) error {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_data (user_id, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
	`, userID, key, value, now, now); err != nil {
		return fmt.Errorf("set user datum %s: %w", key, err)
	}
	return nil
}

// GetDatum returns the value stored under key, or ErrUserNotFound when the
// pair does not exist.
func (s *UserService) GetDatum(ctx context.Context, userID, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM user_data WHERE user_id = ? AND key = ?;
	`, userID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("get user datum %s: %w", key, err)
	}
	return value.String, nil
}

// AllData returns every keyed value stored for a user.
func (s *UserService) AllData(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM user_data WHERE user_id = ?;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user data: %w", err)
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan user datum: %w", err)
		}
		data[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user data: %w", err)
	}
	return data, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
