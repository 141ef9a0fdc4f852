package repository

import (
	"context"
	"errors"

	"docrepo/internal/model"
	"docrepo/internal/policy"
	"docrepo/internal/query"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentRepository defines data access for documents using SQL queries only.
// No authorization happens here; List trusts the scope it is handed.
type DocumentRepository interface {
	// Create inserts doc and returns it with the generated ID.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns the document joined with its category, department and uploader.
	FindByID(ctx context.Context, id int64) (*model.DocumentView, error)

	// List returns one page of documents inside scope that match f, newest first,
	// plus the number of rows matching the same predicate.
	List(ctx context.Context, scope policy.Scope, f query.Filter, p query.Page) (*PageResult[model.DocumentView], error)

	// Update applies the non-nil fields of patch and bumps updated_at.
	Update(ctx context.Context, id int64, patch model.DocumentPatch) error

	// Delete removes the row. ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id int64) error

	// IncrementDownloadCount atomically adds one to download_count and returns the new value.
	IncrementDownloadCount(ctx context.Context, id int64) (int64, error)
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
