package service

import (
	"context"
	"fmt"
	"time"

	"docrepo/internal/cache"
	"docrepo/internal/model"
	"docrepo/internal/repository"
)

const (
	departmentsCacheKey = "docrepo:departments"
	categoriesCacheKey  = "docrepo:categories"
)

// MasterDataService lists the reference data clients pick from when uploading or filtering.
type MasterDataService interface {
	// ListDepartments returns all departments ordered by name.
	ListDepartments(ctx context.Context) ([]model.Department, error)
	// ListCategories returns all categories ordered by title.
	ListCategories(ctx context.Context) ([]model.Category, error)
}

type masterDataService struct {
	repo  repository.MasterDataRepository
	cache *cache.Cache
	ttl   time.Duration
}

// NewMasterDataService reads through c, which may be nil to disable caching.
func NewMasterDataService(repo repository.MasterDataRepository, c *cache.Cache, ttl time.Duration) MasterDataService {
	return &masterDataService{repo: repo, cache: c, ttl: ttl}
}

func (s *masterDataService) ListDepartments(ctx context.Context) ([]model.Department, error) {
	out, err := cache.GetOrLoadJSON(s.cache, ctx, departmentsCacheKey, s.ttl, s.repo.ListDepartments)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

func (s *masterDataService) ListCategories(ctx context.Context) ([]model.Category, error) {
	out, err := cache.GetOrLoadJSON(s.cache, ctx, categoriesCacheKey, s.ttl, s.repo.ListCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
