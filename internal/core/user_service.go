package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages staff accounts.
type UserService struct {
	pool *pgxpool.Pool
}

func NewUserService(pool *pgxpool.Pool) *UserService {
	return &UserService{pool: pool}
}

// GetUsers returns every account ordered by username.
func (s *UserService) GetUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, password_hash, role, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns one account by id.
func (s *UserService) GetUser(ctx context.Context, userID int) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "user", Ref: strconv.Itoa(userID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

// CreateUser registers a staff account. Usernames are unique.
func (s *UserService) CreateUser(ctx context.Context, username, password string, role Role) (*User, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username", Reason: "required"}
	}
	if len(password) < 6 {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	if !ValidRole(role) {
		return nil, &ValidationError{Field: "role", Reason: "unknown role " + string(role)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, role, created_at`,
		username, string(hash), role,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, &ConflictError{Reason: fmt.Sprintf("username %q already exists", username)}
	}
	if err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}
	return u, nil
}

// UpdateUserPassword resets an account's password.
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) error {
	if len(newPassword) < 6 {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, string(hash))
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "user", Ref: strconv.Itoa(userID)}
	}
	return nil
}

// Authenticate verifies credentials and returns the account. The error is
// the same for unknown users and wrong passwords.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errors.New("invalid credentials")
	}
	return u, nil
}
