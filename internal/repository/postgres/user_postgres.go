package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docrepo/internal/model"
	"docrepo/internal/query"
	"docrepo/internal/repository"
)

const userColumns = "id, name, email, role, department_id"

// UserPostgres reads the users table.
type UserPostgres struct {
	db      *sql.DB
	dialect query.Dialect
}

func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db, dialect: query.Postgres}
}

// WithDialect returns a copy of r that binds parameters in d's style.
func (r *UserPostgres) WithDialect(d query.Dialect) *UserPostgres {
	cp := *r
	cp.dialect = d
	return &cp
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func (r *UserPostgres) FindByID(ctx context.Context, id int64) (*model.User, error) {
	q := r.dialect.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}

// FindByEmail matches case-insensitively.
func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	q := r.dialect.Rebind("SELECT " + userColumns + " FROM users WHERE LOWER(email) = ?")
	u, err := scanUser(r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user %q: %w", email, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u    model.User
		role string
		dept sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &dept); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if dept.Valid {
		u.DepartmentID = &dept.Int64
	}
	return &u, nil
}
