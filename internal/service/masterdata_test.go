package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrepo/internal/model"
	repoMocks "docrepo/internal/repository/mocks"
)

func TestMasterDataService_WithoutCache(t *testing.T) {
	repo := new(repoMocks.MockMasterDataRepository)
	svc := NewMasterDataService(repo, nil, time.Minute)

	repo.On("ListDepartments", ctx).Return([]model.Department{{ID: 2, Name: "Finance"}, {ID: 1, Name: "HR"}}, nil).Twice()
	repo.On("ListCategories", ctx).Return(nil, errors.New("db down"))

	for i := 0; i < 2; i++ {
		depts, err := svc.ListDepartments(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Finance", depts[0].Name)
	}

	_, err := svc.ListCategories(ctx)
	assert.ErrorContains(t, err, "list categories: db down")
	assert.Equal(t, KindInternal, KindOf(err))
	repo.AssertExpectations(t)
}
