package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docrepo/internal/model"
	"docrepo/internal/policy"
	"docrepo/internal/query"
	"docrepo/internal/repository"
)

const (
	documentColumns = `d.id, d.title, d.description, d.file_name, d.file_path, d.file_type, d.file_size,
		d.category_id, d.department_id, d.uploaded_by, d.access_level, d.download_count, d.created_at, d.updated_at,
		c.title, dp.name, u.name, u.email`

	documentFrom = `documents d
		LEFT JOIN categories c ON c.id = d.category_id
		LEFT JOIN departments dp ON dp.id = d.department_id
		LEFT JOIN users u ON u.id = d.uploaded_by`
)

// DocumentPostgres is a database/sql implementation of repository.DocumentRepository.
// Statements are written for PostgreSQL; WithDialect switches placeholders so the same
// statements run on SQLite.
type DocumentPostgres struct {
	db      *sql.DB
	dialect query.Dialect
	now     func() time.Time
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{
		db:      db,
		dialect: query.Postgres,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithDialect returns a copy of r that binds parameters in d's style.
func (r *DocumentPostgres) WithDialect(d query.Dialect) *DocumentPostgres {
	cp := *r
	cp.dialect = d
	return &cp
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row. CreatedAt/UpdatedAt default to now when zero.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	out := *doc
	if out.CreatedAt.IsZero() {
		out.CreatedAt = r.now()
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.CreatedAt
	}

	q := r.dialect.Rebind(`
		INSERT INTO documents (title, description, file_name, file_path, file_type, file_size,
			category_id, department_id, uploaded_by, access_level, download_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowContext(ctx, q,
		out.Title,
		out.Description,
		out.FileName,
		out.FilePath,
		out.FileType,
		out.FileSize,
		out.CategoryID,
		out.DepartmentID,
		out.UploadedBy,
		string(out.AccessLevel),
		out.CreatedAt,
		out.UpdatedAt,
	).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	out.DownloadCount = 0
	return &out, nil
}

// FindByID fetches a single document view by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.DocumentView, error) {
	q := r.dialect.Rebind("SELECT " + documentColumns + " FROM " + documentFrom + " WHERE d.id = ?")
	v, err := scanView(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find document %d: %w", id, err)
	}
	return v, nil
}

// List runs the scoped, filtered page query and its matching count.
func (r *DocumentPostgres) List(ctx context.Context, scope policy.Scope, f query.Filter, p query.Page) (*repository.PageResult[model.DocumentView], error) {
	st := query.Build(r.dialect, "d", scope, f, p)

	countSQL, countArgs := st.CountSQL("documents d")
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	listSQL, listArgs := st.SelectSQL(documentColumns, documentFrom)
	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]model.DocumentView, 0, st.Page().PerPage)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.DocumentView]{
		Items: items,
		Total: total,
	}, nil
}

// Update writes the patched columns. An empty patch only touches updated_at.
func (r *DocumentPostgres) Update(ctx context.Context, id int64, patch model.DocumentPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.DepartmentID != nil {
		set("department_id", *patch.DepartmentID)
	}
	if patch.AccessLevel != nil {
		set("access_level", string(*patch.AccessLevel))
	}
	set("updated_at", r.now())
	args = append(args, id)

	q := r.dialect.Rebind("UPDATE documents SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update document %d: %w", id, err)
	}
	return affectedOne(res)
}

// Delete removes a document by ID.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	return affectedOne(res)
}

// IncrementDownloadCount bumps the counter in a single statement so concurrent downloads never lose updates.
func (r *DocumentPostgres) IncrementDownloadCount(ctx context.Context, id int64) (int64, error) {
	q := r.dialect.Rebind(`UPDATE documents SET download_count = download_count + 1 WHERE id = ? RETURNING download_count`)
	var n int64
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment download count %d: %w", id, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(s rowScanner) (*model.DocumentView, error) {
	var (
		v                          model.DocumentView
		desc                       sql.NullString
		level                      string
		catTitle, deptName         sql.NullString
		uploaderName, uploaderMail sql.NullString
	)
	err := s.Scan(
		&v.ID,
		&v.Title,
		&desc,
		&v.FileName,
		&v.FilePath,
		&v.FileType,
		&v.FileSize,
		&v.CategoryID,
		&v.DepartmentID,
		&v.UploadedBy,
		&level,
		&v.DownloadCount,
		&v.CreatedAt,
		&v.UpdatedAt,
		&catTitle,
		&deptName,
		&uploaderName,
		&uploaderMail,
	)
	if err != nil {
		return nil, err
	}

	v.AccessLevel = model.AccessLevel(level)
	if desc.Valid {
		v.Description = &desc.String
	}
	if catTitle.Valid {
		v.Category = &model.CategoryRef{ID: v.CategoryID, Title: catTitle.String}
	}
	if deptName.Valid {
		v.Department = &model.DepartmentRef{ID: v.DepartmentID, Name: deptName.String}
	}
	if uploaderName.Valid {
		v.Uploader = &model.UploaderRef{ID: v.UploadedBy, Name: uploaderName.String, Email: uploaderMail.String}
	}
	return &v, nil
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
