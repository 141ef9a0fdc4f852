package repository

import (
	"context"

	"docrepo/internal/model"
)

// OrphanRepository tracks storage keys whose removal failed after their document row was deleted.
type OrphanRepository interface {
	Record(ctx context.Context, filePath, reason string) error
	// ListOrphans returns up to limit orphans, oldest first.
	ListOrphans(ctx context.Context, limit int) ([]model.StorageOrphan, error)
	DeleteOrphan(ctx context.Context, id int64) error
	BumpAttempts(ctx context.Context, id int64) error
}
