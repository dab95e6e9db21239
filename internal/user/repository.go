package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUserNotFound = errors.New("user not found")

// Postgres unique_violation, for the username constraint.
const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, u *User) (*User, error) {
	u.ID = uuid.NewString()
	query := "INSERT INTO users (id, username, password) VALUES ($1, $2, $3)"

	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.Password); err != nil {
		// Two concurrent registrations can both pass the service's
		// existence check; the constraint is the real arbiter.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	query := "SELECT id, username, password FROM users WHERE username = $1"

	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	query := "SELECT id, username, password FROM users WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListExcept backs the people listing: everyone but the caller.
func (r *Repository) ListExcept(ctx context.Context, userID string) ([]Person, error) {
	query := `SELECT id, username FROM users WHERE id != $1 ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.UserID, &p.Username); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}
