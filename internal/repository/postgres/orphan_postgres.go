package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docrepo/internal/model"
	"docrepo/internal/query"
	"docrepo/internal/repository"
)

// OrphanPostgres persists storage keys the janitor still has to remove.
type OrphanPostgres struct {
	db      *sql.DB
	dialect query.Dialect
	now     func() time.Time
}

func NewOrphanPostgres(db *sql.DB) *OrphanPostgres {
	return &OrphanPostgres{
		db:      db,
		dialect: query.Postgres,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithDialect returns a copy of r that binds parameters in d's style.
func (r *OrphanPostgres) WithDialect(d query.Dialect) *OrphanPostgres {
	cp := *r
	cp.dialect = d
	return &cp
}

var _ repository.OrphanRepository = (*OrphanPostgres)(nil)

func (r *OrphanPostgres) Record(ctx context.Context, filePath, reason string) error {
	q := r.dialect.Rebind(`INSERT INTO storage_orphans (file_path, reason, attempts, created_at) VALUES (?, ?, 0, ?)`)
	if _, err := r.db.ExecContext(ctx, q, filePath, reason, r.now()); err != nil {
		return fmt.Errorf("record orphan %s: %w", filePath, err)
	}
	return nil
}

func (r *OrphanPostgres) ListOrphans(ctx context.Context, limit int) ([]model.StorageOrphan, error) {
	q := r.dialect.Rebind(`SELECT id, file_path, reason, attempts, created_at FROM storage_orphans ORDER BY created_at, id LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	defer rows.Close()

	out := make([]model.StorageOrphan, 0)
	for rows.Next() {
		var o model.StorageOrphan
		if err := rows.Scan(&o.ID, &o.FilePath, &o.Reason, &o.Attempts, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrphanPostgres) DeleteOrphan(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM storage_orphans WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete orphan %d: %w", id, err)
	}
	return nil
}

func (r *OrphanPostgres) BumpAttempts(ctx context.Context, id int64) error {
	q := r.dialect.Rebind(`UPDATE storage_orphans SET attempts = attempts + 1 WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("bump orphan %d: %w", id, err)
	}
	return affectedOne(res)
}
