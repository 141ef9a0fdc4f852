package janitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"docrepo/internal/config"
	"docrepo/internal/model"
	repoMocks "docrepo/internal/repository/mocks"
	"docrepo/internal/storage"
	storageMocks "docrepo/internal/storage/mocks"
)

func TestRunOnce(t *testing.T) {
	orphans := []model.StorageOrphan{
		{ID: 1, FilePath: "documents/a.pdf", Attempts: 0},
		{ID: 2, FilePath: "documents/b.pdf", Attempts: 2},
		{ID: 3, FilePath: "documents/c.pdf", Attempts: 1},
	}

	tests := []struct {
		name       string
		setupMocks func(r *repoMocks.MockOrphanRepository, s *storageMocks.MockStorage)
		want       Result
		wantErr    bool
	}{
		{
			name: "removes files and rows, bumps failures",
			setupMocks: func(r *repoMocks.MockOrphanRepository, s *storageMocks.MockStorage) {
				r.On("ListOrphans", mock.Anything, 10).Return(orphans, nil).Once()
				s.On("Delete", mock.Anything, "documents/a.pdf").Return(nil).Once()
				s.On("Delete", mock.Anything, "documents/b.pdf").Return(errors.New("minio down")).Once()
				s.On("Delete", mock.Anything, "documents/c.pdf").Return(storage.ErrObjectNotFound).Once()
				r.On("DeleteOrphan", mock.Anything, int64(1)).Return(nil).Once()
				r.On("BumpAttempts", mock.Anything, int64(2)).Return(nil).Once()
				r.On("DeleteOrphan", mock.Anything, int64(3)).Return(nil).Once()
			},
			want: Result{Scanned: 3, Removed: 2, Failed: 1},
		},
		{
			name: "row delete failure counts as failed",
			setupMocks: func(r *repoMocks.MockOrphanRepository, s *storageMocks.MockStorage) {
				r.On("ListOrphans", mock.Anything, 10).Return(orphans[:1], nil).Once()
				s.On("Delete", mock.Anything, "documents/a.pdf").Return(nil).Once()
				r.On("DeleteOrphan", mock.Anything, int64(1)).Return(errors.New("db gone")).Once()
			},
			want: Result{Scanned: 1, Failed: 1},
		},
		{
			name: "nothing to do",
			setupMocks: func(r *repoMocks.MockOrphanRepository, s *storageMocks.MockStorage) {
				r.On("ListOrphans", mock.Anything, 10).Return([]model.StorageOrphan{}, nil).Once()
			},
			want: Result{},
		},
		{
			name: "list error",
			setupMocks: func(r *repoMocks.MockOrphanRepository, s *storageMocks.MockStorage) {
				r.On("ListOrphans", mock.Anything, 10).Return(nil, errors.New("db gone")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockOrphanRepository)
			store := new(storageMocks.MockStorage)
			tt.setupMocks(repo, store)

			j := New(config.JanitorConfig{BatchSize: 10}, repo, store, zap.NewNop())
			got, err := j.RunOnce(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
			store.AssertExpectations(t)
		})
	}
}

func TestRunOnce_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := new(repoMocks.MockOrphanRepository)
	store := new(storageMocks.MockStorage)
	repo.On("ListOrphans", mock.Anything, defaultBatchSize).Return([]model.StorageOrphan{{ID: 4, FilePath: "documents/d.png", Attempts: 4}}, nil).Once()
	store.On("Delete", mock.Anything, "documents/d.png").Return(errors.New("timeout")).Once()
	repo.On("BumpAttempts", mock.Anything, int64(4)).Return(nil).Once()

	j := New(config.JanitorConfig{}, repo, store, zap.New(core))
	_, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	warn := logs.FilterMessage("orphan removal failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, int64(5), warn[0].ContextMap()["attempts"])
	assert.Equal(t, "documents/d.png", warn[0].ContextMap()["file_path"])
}

func TestRunOnce_StopsOnCancel(t *testing.T) {
	repo := new(repoMocks.MockOrphanRepository)
	store := new(storageMocks.MockStorage)
	repo.On("ListOrphans", mock.Anything, 10).Return([]model.StorageOrphan{{ID: 1, FilePath: "x"}}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j := New(config.JanitorConfig{BatchSize: 10}, repo, store, zap.NewNop())
	_, err := j.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestStartStop(t *testing.T) {
	t.Run("disabled schedule", func(t *testing.T) {
		j := New(config.JanitorConfig{}, new(repoMocks.MockOrphanRepository), new(storageMocks.MockStorage), zap.NewNop())
		require.NoError(t, j.Start(context.Background()))
		require.NoError(t, j.Stop(context.Background()))
	})

	t.Run("invalid schedule", func(t *testing.T) {
		j := New(config.JanitorConfig{Schedule: "every now and then"}, new(repoMocks.MockOrphanRepository), new(storageMocks.MockStorage), zap.NewNop())
		assert.Error(t, j.Start(context.Background()))
	})

	t.Run("runs on schedule", func(t *testing.T) {
		repo := new(repoMocks.MockOrphanRepository)
		ran := make(chan struct{}, 1)
		repo.On("ListOrphans", mock.Anything, 5).Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		}).Return([]model.StorageOrphan{}, nil)

		j := New(config.JanitorConfig{Schedule: "@every 1s", BatchSize: 5}, repo, new(storageMocks.MockStorage), zap.NewNop())
		require.NoError(t, j.Start(context.Background()))

		select {
		case <-ran:
		case <-time.After(3 * time.Second):
			t.Fatal("janitor did not run")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, j.Stop(ctx))
	})
}
