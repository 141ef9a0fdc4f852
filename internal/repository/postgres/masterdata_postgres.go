package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docrepo/internal/model"
	"docrepo/internal/query"
	"docrepo/internal/repository"
)

// MasterDataPostgres reads departments and categories.
type MasterDataPostgres struct {
	db      *sql.DB
	dialect query.Dialect
}

func NewMasterDataPostgres(db *sql.DB) *MasterDataPostgres {
	return &MasterDataPostgres{db: db, dialect: query.Postgres}
}

// WithDialect returns a copy of r that binds parameters in d's style.
func (r *MasterDataPostgres) WithDialect(d query.Dialect) *MasterDataPostgres {
	cp := *r
	cp.dialect = d
	return &cp
}

var _ repository.MasterDataRepository = (*MasterDataPostgres)(nil)

func (r *MasterDataPostgres) ListDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Department, 0)
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *MasterDataPostgres) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, description FROM categories ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		var (
			c    model.Category
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Title, &desc); err != nil {
			return nil, err
		}
		if desc.Valid {
			c.Description = &desc.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *MasterDataPostgres) DepartmentExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "departments", id)
}

func (r *MasterDataPostgres) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "categories", id)
}

// exists is only called with the fixed table names above.
func (r *MasterDataPostgres) exists(ctx context.Context, table string, id int64) (bool, error) {
	q := r.dialect.Rebind("SELECT COUNT(*) FROM " + table + " WHERE id = ?")
	var n int
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return n > 0, nil
}
