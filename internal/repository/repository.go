package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/auth-service/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when an insert or update collides with
	// the unique email constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, full_name, password_hash, is_active, is_superuser, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.FullName, user.PasswordHash, user.IsActive, user.IsSuperuser).
		Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, full_name, password_hash, is_active, is_superuser
		FROM users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.IsActive, &user.IsSuperuser)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, full_name, password_hash, is_active, is_superuser
		FROM users
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.IsActive, &user.IsSuperuser)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateUser applies a partial update and returns the resulting row. Only
// non-nil patch fields become SET clauses.
func (r *Repository) UpdateUser(ctx context.Context, id int64, patch *models.UserPatch) (*models.User, error) {
	var (
		set  []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.IsSuperuser != nil {
		add("is_superuser", *patch.IsSuperuser)
	}
	if len(set) == 0 {
		return r.FindUserByID(ctx, id)
	}
	set = append(set, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING id, email, full_name, password_hash, is_active, is_superuser`,
		strings.Join(set, ", "), len(args))

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.IsActive, &user.IsSuperuser)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// UserStats holds aggregate account counts for the audit job
type UserStats struct {
	Total      int64
	Active     int64
	Inactive   int64
	Superusers int64
}

// UserStats aggregates account counts by status
func (r *Repository) UserStats(ctx context.Context) (*UserStats, error) {
	stats := &UserStats{}
	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE is_active),
		       count(*) FILTER (WHERE NOT is_active),
		       count(*) FILTER (WHERE is_superuser)
		FROM users`
	err := r.db.QueryRowContext(ctx, query).
		Scan(&stats.Total, &stats.Active, &stats.Inactive, &stats.Superusers)
	if err != nil {
		return nil, fmt.Errorf("failed to collect user stats: %w", err)
	}
	return stats, nil
}
