package repository

import (
	"context"

	"docrepo/internal/model"
)

// MasterDataRepository reads the reference tables documents point at.
type MasterDataRepository interface {
	ListDepartments(ctx context.Context) ([]model.Department, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DepartmentExists(ctx context.Context, id int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
}
