package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docrepo/internal/model"
	"docrepo/internal/policy"
	"docrepo/internal/query"
	"docrepo/internal/repository"
	repoMocks "docrepo/internal/repository/mocks"
	"docrepo/internal/storage"
	storeMocks "docrepo/internal/storage/mocks"
)

var (
	ctx       = context.Background()
	admin     = model.Caller{ID: 1, Role: model.RoleAdmin, DepartmentID: 3}
	hrManager = model.Caller{ID: 2, Role: model.RoleManager, DepartmentID: 1}
	itManager = model.Caller{ID: 3, Role: model.RoleManager, DepartmentID: 2}
	employee  = model.Caller{ID: 4, Role: model.RoleEmployee, DepartmentID: 1}
	stranger  = model.Caller{ID: 9, Role: "auditor", DepartmentID: 1}
)

type deps struct {
	store   *storeMocks.MockStorage
	docs    *repoMocks.MockDocumentRepository
	master  *repoMocks.MockMasterDataRepository
	orphans *repoMocks.MockOrphanRepository
}

func (d deps) assert(t *testing.T) {
	d.store.AssertExpectations(t)
	d.docs.AssertExpectations(t)
	d.master.AssertExpectations(t)
	d.orphans.AssertExpectations(t)
}

func newTestService(t *testing.T) (*documentService, deps) {
	t.Helper()
	d := deps{
		store:   new(storeMocks.MockStorage),
		docs:    new(repoMocks.MockDocumentRepository),
		master:  new(repoMocks.MockMasterDataRepository),
		orphans: new(repoMocks.MockOrphanRepository),
	}
	svc := NewDocumentService(d.store, d.docs, d.master, d.orphans, zap.NewNop(), 1024).(*documentService)
	svc.newKey = func(ext string) string { return "documents/fixed." + ext }
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, d
}

func view(id int64, level model.AccessLevel, dept, uploader int64) *model.DocumentView {
	return &model.DocumentView{Document: model.Document{
		ID:           id,
		Title:        "Doc",
		FileName:     "doc.pdf",
		FilePath:     "documents/doc.pdf",
		FileType:     "pdf",
		CategoryID:   1,
		DepartmentID: dept,
		UploadedBy:   uploader,
		AccessLevel:  level,
	}}
}

func intp(v int) *int       { return &v }
func i64p(v int64) *int64   { return &v }
func strp(v string) *string { return &v }

func TestDocumentService_List(t *testing.T) {
	tests := []struct {
		name       string
		caller     model.Caller
		in         ListInput
		setupMocks func(d deps)
		wantKind   Kind
		wantFields []string
		check      func(t *testing.T, res *DocumentListResult)

		// wantRepoCall marks error cases that reach the repository.
		wantRepoCall bool
	}{
		{
			name:     "unknown role denied",
			caller:   stranger,
			wantKind: KindPermissionDenied,
		},
		{
			name:       "per_page out of range",
			caller:     employee,
			in:         ListInput{PerPage: intp(101)},
			setupMocks: func(d deps) {},
			wantKind:   KindValidation,
			wantFields: []string{"per_page"},
		},
		{
			name:       "explicit zero per_page and page",
			caller:     employee,
			in:         ListInput{PerPage: intp(0), Page: intp(0)},
			setupMocks: func(d deps) {},
			wantKind:   KindValidation,
			wantFields: []string{"per_page", "page"},
		},
		{
			name:       "page beyond the largest offset",
			caller:     employee,
			in:         ListInput{Page: intp(math.MaxInt64 / 50), PerPage: intp(100)},
			setupMocks: func(d deps) {},
			wantKind:   KindValidation,
			wantFields: []string{"page"},
		},
		{
			name:   "last addressable page is accepted",
			caller: employee,
			in:     ListInput{Page: intp(query.MaxPage(100)), PerPage: intp(100)},
			setupMocks: func(d deps) {
				d.docs.On("List", ctx, policy.PublicOnly{OwnerID: 4}, query.Filter{}, query.Page{Page: query.MaxPage(100), PerPage: 100}).
					Return(&repository.PageResult[model.DocumentView]{Items: []model.DocumentView{}}, nil)
			},
			check: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, query.MaxPage(100), res.Page)
			},
		},
		{
			name:       "search too long and unknown category",
			caller:     employee,
			in:         ListInput{Search: strings.Repeat("a", 256), CategoryID: 77},
			setupMocks: func(d deps) { d.master.On("CategoryExists", ctx, int64(77)).Return(false, nil) },
			wantKind:   KindValidation,
			wantFields: []string{"search", "category_id"},
		},
		{
			name:   "manager gets department scope and default page",
			caller: hrManager,
			in:     ListInput{Search: "plan", DepartmentID: 1},
			setupMocks: func(d deps) {
				d.master.On("DepartmentExists", ctx, int64(1)).Return(true, nil)
				d.docs.On("List", ctx,
					policy.OwnPublicDepartmentOrOwned{DepartmentID: 1, UserID: 2},
					query.Filter{Search: "plan", DepartmentID: 1},
					query.Page{Page: 1, PerPage: 20},
				).Return(&repository.PageResult[model.DocumentView]{
					Items: []model.DocumentView{*view(5, model.AccessDepartment, 1, 3)},
					Total: 41,
				}, nil)
			},
			check: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 41, res.TotalMatching)
				assert.Equal(t, 1, res.Page)
				assert.Equal(t, 20, res.PerPage)
				assert.Len(t, res.Items, 1)
			},
		},
		{
			name:   "employee gets public scope",
			caller: employee,
			in:     ListInput{Page: intp(3), PerPage: intp(5)},
			setupMocks: func(d deps) {
				d.docs.On("List", ctx, policy.PublicOnly{OwnerID: 4}, query.Filter{}, query.Page{Page: 3, PerPage: 5}).
					Return(&repository.PageResult[model.DocumentView]{Items: []model.DocumentView{}}, nil)
			},
			check: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 0, res.TotalMatching)
				assert.Equal(t, 3, res.Page)
				assert.Equal(t, 5, res.PerPage)
			},
		},
		{
			name:   "repository error is internal",
			caller: admin,
			setupMocks: func(d deps) {
				d.docs.On("List", ctx, policy.Unrestricted{}, query.Filter{}, query.Page{Page: 1, PerPage: 20}).
					Return(nil, errors.New("db down"))
			},
			wantKind:     KindInternal,
			wantRepoCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(t)
			if tt.setupMocks != nil {
				tt.setupMocks(d)
			}

			res, err := svc.List(ctx, tt.caller, tt.in)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				if len(tt.wantFields) > 0 {
					se, ok := AsError(err)
					require.True(t, ok)
					for _, f := range tt.wantFields {
						assert.Contains(t, se.Fields, f)
					}
				}
				if tt.wantRepoCall {
					d.assert(t)
				} else {
					d.docs.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, res)
			d.assert(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	tests := []struct {
		name     string
		caller   model.Caller
		stored   *model.DocumentView
		repoErr  error
		wantKind Kind
	}{
		{name: "not found", caller: admin, repoErr: repository.ErrNotFound, wantKind: KindNotFound},
		{name: "db error", caller: admin, repoErr: errors.New("boom"), wantKind: KindInternal},
		{name: "employee cannot see department doc", caller: employee, stored: view(7, model.AccessDepartment, 1, 3), wantKind: KindPermissionDenied},
		{name: "manager sees own department doc", caller: hrManager, stored: view(7, model.AccessDepartment, 1, 3)},
		{name: "manager cannot see other department doc", caller: itManager, stored: view(7, model.AccessDepartment, 1, 1), wantKind: KindPermissionDenied},
		{name: "uploader sees own private doc", caller: itManager, stored: view(7, model.AccessPrivate, 1, 3)},
		{name: "anyone sees public doc", caller: employee, stored: view(7, model.AccessPublic, 2, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(t)
			d.docs.On("FindByID", ctx, int64(7)).Return(tt.stored, tt.repoErr)

			got, err := svc.Get(ctx, tt.caller, 7)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stored, got)
		})
	}
}

func TestDocumentService_Get_InvalidID(t *testing.T) {
	svc, d := newTestService(t)
	_, err := svc.Get(ctx, admin, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	d.docs.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// An admin uploads a private document; an employee of the same department is refused,
// the uploading admin is not.
func TestDocumentService_PrivateAdminUpload(t *testing.T) {
	svc, d := newTestService(t)
	uploaderAdmin := model.Caller{ID: 1, Role: model.RoleAdmin, DepartmentID: 1}

	d.master.On("CategoryExists", ctx, int64(1)).Return(true, nil)
	d.master.On("DepartmentExists", ctx, int64(1)).Return(true, nil)
	d.store.On("Put", ctx, "documents/fixed.pdf", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "documents/fixed.pdf"}, nil)
	d.docs.On("Create", ctx, mock.Anything).Return(&model.Document{ID: 30}, nil)
	stored := view(30, model.AccessPrivate, 1, 1)
	d.docs.On("FindByID", ctx, int64(30)).Return(stored, nil)

	_, err := svc.Upload(ctx, uploaderAdmin, UploadInput{
		Title: "Salaries", CategoryID: 1, DepartmentID: 1, AccessLevel: model.AccessPrivate,
		FileName: "salaries.pdf", Size: 10, Content: strings.NewReader("0123456789"),
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, employee, 30)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	got, err := svc.Get(ctx, uploaderAdmin, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.ID)
}

func TestDocumentService_Upload(t *testing.T) {
	validInput := func() UploadInput {
		return UploadInput{
			Title:        "  Handbook  ",
			Description:  strp("for new hires"),
			CategoryID:   1,
			DepartmentID: 1,
			AccessLevel:  model.AccessDepartment,
			FileName:     "Handbook.PDF",
			Size:         11,
			Content:      strings.NewReader("hello world"),
		}
	}
	refsOK := func(d deps) {
		d.master.On("CategoryExists", ctx, int64(1)).Return(true, nil)
		d.master.On("DepartmentExists", ctx, int64(1)).Return(true, nil)
	}

	tests := []struct {
		name       string
		caller     model.Caller
		mutate     func(in *UploadInput)
		setupMocks func(d deps)
		wantKind   Kind
		wantFields []string
		wantErrMsg string
	}{
		{
			name:     "employee cannot upload",
			caller:   employee,
			wantKind: KindPermissionDenied,
		},
		{
			name:   "validation collects every field before storage",
			caller: admin,
			mutate: func(in *UploadInput) {
				in.Title = ""
				in.AccessLevel = "secret"
				in.FileName = "run.exe"
				in.CategoryID = 99
			},
			setupMocks: func(d deps) {
				d.master.On("CategoryExists", ctx, int64(99)).Return(false, nil)
				d.master.On("DepartmentExists", ctx, int64(1)).Return(true, nil)
			},
			wantKind:   KindValidation,
			wantFields: []string{"title", "access_level", "file", "category_id"},
		},
		{
			name:       "file too large",
			caller:     admin,
			mutate:     func(in *UploadInput) { in.Size = 1025 },
			setupMocks: refsOK,
			wantKind:   KindValidation,
			wantFields: []string{"file"},
		},
		{
			name:   "manager cannot upload to another department",
			caller: itManager,
			setupMocks: func(d deps) {
				refsOK(d)
			},
			wantKind: KindDepartmentScope,
		},
		{
			name:   "storage error",
			caller: hrManager,
			setupMocks: func(d deps) {
				refsOK(d)
				d.store.On("Put", ctx, "documents/fixed.pdf", mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:   "repository error with successful rollback",
			caller: hrManager,
			setupMocks: func(d deps) {
				refsOK(d)
				d.store.On("Put", ctx, "documents/fixed.pdf", mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				d.docs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				d.store.On("Delete", ctx, "documents/fixed.pdf").Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:   "repository error with failed rollback",
			caller: hrManager,
			setupMocks: func(d deps) {
				refsOK(d)
				d.store.On("Put", ctx, "documents/fixed.pdf", mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/fixed.pdf"}, nil)
				d.docs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				d.store.On("Delete", ctx, "documents/fixed.pdf").Return(errors.New("delete fail"))
				d.orphans.On("Record", ctx, "documents/fixed.pdf", "upload rollback: delete fail").Return(nil)
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
		{
			name:   "happy path",
			caller: hrManager,
			setupMocks: func(d deps) {
				refsOK(d)
				d.store.On("Put", ctx, "documents/fixed.pdf", mock.Anything, storage.PutObjectOptions{
					Size:        11,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "Handbook.PDF"},
				}).Return(storage.ObjectInfo{Key: "documents/fixed.pdf", Size: 11}, nil)
				d.docs.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Title == "Handbook" &&
						doc.FileName == "Handbook.PDF" &&
						doc.FilePath == "documents/fixed.pdf" &&
						doc.FileType == "pdf" &&
						doc.FileSize == 11 &&
						doc.UploadedBy == 2 &&
						doc.DepartmentID == 1 &&
						doc.AccessLevel == model.AccessDepartment &&
						*doc.Description == "for new hires"
				})).Return(&model.Document{ID: 12}, nil)
				d.docs.On("FindByID", ctx, int64(12)).Return(view(12, model.AccessDepartment, 1, 2), nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(t)
			if tt.setupMocks != nil {
				tt.setupMocks(d)
			}
			in := validInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			got, err := svc.Upload(ctx, tt.caller, in)

			switch {
			case tt.wantKind != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				se, _ := AsError(err)
				for _, f := range tt.wantFields {
					assert.Contains(t, se.Fields, f)
				}
				d.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(12), got.ID)
			}
			d.assert(t)
		})
	}
}

func TestDocumentService_Upload_DepartmentScopeIsPermissionDenied(t *testing.T) {
	svc, d := newTestService(t)
	d.master.On("CategoryExists", ctx, int64(1)).Return(true, nil)
	d.master.On("DepartmentExists", ctx, int64(2)).Return(true, nil)

	_, err := svc.Upload(ctx, hrManager, UploadInput{
		Title: "t", CategoryID: 1, DepartmentID: 2, AccessLevel: model.AccessPublic,
		FileName: "a.png", Size: 1, Content: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrDepartmentScope)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDocumentService_Update(t *testing.T) {
	newTitle := "Renamed"
	itDept := int64(2)
	hrDept := int64(1)
	private := model.AccessPrivate
	var noDesc *string

	tests := []struct {
		name       string
		caller     model.Caller
		stored     *model.DocumentView
		in         UpdateInput
		setupMocks func(d deps)
		wantKind   Kind
	}{
		{
			name:     "employee cannot update",
			caller:   employee,
			stored:   view(3, model.AccessPublic, 1, 4),
			in:       UpdateInput{Title: &newTitle},
			wantKind: KindPermissionDenied,
		},
		{
			name:     "manager cannot update someone else's doc",
			caller:   hrManager,
			stored:   view(3, model.AccessDepartment, 1, 1),
			in:       UpdateInput{Title: &newTitle},
			wantKind: KindPermissionDenied,
		},
		{
			name:   "manager cannot move own doc to another department",
			caller: hrManager,
			stored: view(3, model.AccessDepartment, 1, 2),
			in:     UpdateInput{DepartmentID: &itDept},
			setupMocks: func(d deps) {
				d.master.On("DepartmentExists", ctx, int64(2)).Return(true, nil)
			},
			wantKind: KindDepartmentScope,
		},
		{
			name:     "manager cannot keep own doc in a foreign department",
			caller:   hrManager,
			stored:   view(3, model.AccessDepartment, 2, 2),
			in:       UpdateInput{Title: &newTitle},
			wantKind: KindDepartmentScope,
		},
		{
			name:   "unknown department is a validation error",
			caller: admin,
			stored: view(3, model.AccessDepartment, 1, 2),
			in:     UpdateInput{DepartmentID: i64p(50)},
			setupMocks: func(d deps) {
				d.master.On("DepartmentExists", ctx, int64(50)).Return(false, nil)
			},
			wantKind: KindValidation,
		},
		{
			name:     "empty title rejected",
			caller:   admin,
			stored:   view(3, model.AccessDepartment, 1, 2),
			in:       UpdateInput{Title: strp("")},
			wantKind: KindValidation,
		},
		{
			name:     "whitespace-only title rejected",
			caller:   admin,
			stored:   view(3, model.AccessDepartment, 1, 2),
			in:       UpdateInput{Title: strp("   ")},
			wantKind: KindValidation,
		},
		{
			name:   "title is trimmed before saving",
			caller: admin,
			stored: view(3, model.AccessDepartment, 1, 2),
			in:     UpdateInput{Title: strp("  Renamed  ")},
			setupMocks: func(d deps) {
				d.docs.On("Update", ctx, int64(3), model.DocumentPatch{Title: &newTitle}).Return(nil)
			},
		},
		{
			name:   "manager keeps own doc in own department",
			caller: hrManager,
			stored: view(3, model.AccessDepartment, 1, 2),
			in:     UpdateInput{DepartmentID: &hrDept, AccessLevel: &private},
			setupMocks: func(d deps) {
				d.master.On("DepartmentExists", ctx, int64(1)).Return(true, nil)
				d.docs.On("Update", ctx, int64(3), model.DocumentPatch{DepartmentID: &hrDept, AccessLevel: &private}).Return(nil)
			},
		},
		{
			name:   "admin moves doc and clears description",
			caller: admin,
			stored: view(3, model.AccessDepartment, 1, 2),
			in:     UpdateInput{DepartmentID: &itDept, Description: NullableString{Set: true}},
			setupMocks: func(d deps) {
				d.master.On("DepartmentExists", ctx, int64(2)).Return(true, nil)
				d.docs.On("Update", ctx, int64(3), model.DocumentPatch{DepartmentID: &itDept, Description: &noDesc}).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(t)
			d.docs.On("FindByID", ctx, int64(3)).Return(tt.stored, nil)
			if tt.setupMocks != nil {
				tt.setupMocks(d)
			}

			got, err := svc.Update(ctx, tt.caller, 3, tt.in)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				d.docs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
			d.assert(t)
		})
	}
}

func TestDocumentService_Update_EmptyPatchReturnsCurrent(t *testing.T) {
	svc, d := newTestService(t)
	stored := view(3, model.AccessPublic, 1, 2)
	d.docs.On("FindByID", ctx, int64(3)).Return(stored, nil)

	got, err := svc.Update(ctx, hrManager, 3, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	d.docs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Delete(t *testing.T) {
	tests := []struct {
		name       string
		caller     model.Caller
		setupMocks func(d deps)
		wantKind   Kind
	}{
		{
			name:   "not found",
			caller: admin,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(4)).Return(nil, repository.ErrNotFound)
			},
			wantKind: KindNotFound,
		},
		{
			name:   "manager cannot delete others' doc",
			caller: hrManager,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(4)).Return(view(4, model.AccessDepartment, 1, 1), nil)
			},
			wantKind: KindPermissionDenied,
		},
		{
			name:   "row deleted but file already missing",
			caller: admin,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(4)).Return(view(4, model.AccessPublic, 1, 2), nil)
				d.docs.On("Delete", ctx, int64(4)).Return(nil)
				d.store.On("Exists", ctx, "documents/doc.pdf").Return(false, nil)
			},
			wantKind: KindNotFound,
		},
		{
			name:   "happy path removes row then file",
			caller: hrManager,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(4)).Return(view(4, model.AccessPrivate, 1, 2), nil)
				d.docs.On("Delete", ctx, int64(4)).Return(nil)
				d.store.On("Exists", ctx, "documents/doc.pdf").Return(true, nil)
				d.store.On("Delete", ctx, "documents/doc.pdf").Return(nil)
			},
		},
		{
			name:   "stat failure is recorded as orphan",
			caller: admin,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(4)).Return(view(4, model.AccessPublic, 1, 2), nil)
				d.docs.On("Delete", ctx, int64(4)).Return(nil)
				d.store.On("Exists", ctx, "documents/doc.pdf").Return(false, errors.New("timeout"))
				d.orphans.On("Record", ctx, "documents/doc.pdf", "timeout").Return(nil)
			},
			wantKind: KindStorageCleanup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(t)
			tt.setupMocks(d)

			err := svc.Delete(ctx, tt.caller, 4)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, KindOf(err))
			} else {
				assert.NoError(t, err)
			}
			d.assert(t)
		})
	}
}

// The file removal fails after the row is deleted. The row stays gone, the failure
// is reported and recorded, and a later show answers NotFound.
func TestDocumentService_Delete_FileRemovalFails(t *testing.T) {
	svc, d := newTestService(t)
	d.docs.On("FindByID", ctx, int64(4)).Return(view(4, model.AccessPublic, 1, 2), nil).Once()
	d.docs.On("Delete", ctx, int64(4)).Return(nil).Once()
	d.store.On("Exists", ctx, "documents/doc.pdf").Return(true, nil)
	d.store.On("Delete", ctx, "documents/doc.pdf").Return(errors.New("bucket offline"))
	d.orphans.On("Record", ctx, "documents/doc.pdf", "bucket offline").Return(errors.New("db also down"))

	var err error
	require.NotPanics(t, func() { err = svc.Delete(ctx, admin, 4) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageCleanup)
	assert.ErrorContains(t, err, "bucket offline")

	d.docs.On("FindByID", ctx, int64(4)).Return(nil, repository.ErrNotFound)
	_, err = svc.Get(ctx, admin, 4)
	assert.ErrorIs(t, err, ErrNotFound)
	d.assert(t)
}

func TestDocumentService_Download(t *testing.T) {
	tests := []struct {
		name       string
		caller     model.Caller
		setupMocks func(d deps)
		wantKind   Kind
	}{
		{
			name:   "employee cannot download private doc",
			caller: employee,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(6)).Return(view(6, model.AccessPrivate, 1, 2), nil)
			},
			wantKind: KindPermissionDenied,
		},
		{
			name:   "missing file is not counted",
			caller: employee,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(6)).Return(view(6, model.AccessPublic, 1, 2), nil)
				d.store.On("Exists", ctx, "documents/doc.pdf").Return(false, nil)
			},
			wantKind: KindNotFound,
		},
		{
			name:   "streams and counts",
			caller: employee,
			setupMocks: func(d deps) {
				d.docs.On("FindByID", ctx, int64(6)).Return(view(6, model.AccessPublic, 1, 2), nil)
				d.store.On("Exists", ctx, "documents/doc.pdf").Return(true, nil)
				d.docs.On("IncrementDownloadCount", ctx, int64(6)).Return(int64(8), nil)
				d.store.On("Get", ctx, "documents/doc.pdf").
					Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{Size: 4}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(t)
			tt.setupMocks(d)

			got, err := svc.Download(ctx, tt.caller, 6)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, KindOf(err))
				d.docs.AssertNotCalled(t, "IncrementDownloadCount", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			defer got.Content.Close()
			body, _ := io.ReadAll(got.Content)
			assert.Equal(t, "%PDF", string(body))
			assert.Equal(t, "doc.pdf", got.FileName)
			assert.Equal(t, "application/pdf", got.ContentType)
			assert.Equal(t, int64(8), got.DownloadCount)
			d.assert(t)
		})
	}
}

func TestDocumentService_PresignDownload(t *testing.T) {
	svc, d := newTestService(t)
	d.docs.On("FindByID", ctx, int64(6)).Return(view(6, model.AccessDepartment, 1, 3), nil)
	d.store.On("Exists", ctx, "documents/doc.pdf").Return(true, nil)
	d.docs.On("IncrementDownloadCount", ctx, int64(6)).Return(int64(1), nil)
	d.store.On("PresignGet", ctx, "documents/doc.pdf", 10*time.Minute).Return("https://s3/doc.pdf?sig=x", nil)

	got, err := svc.PresignDownload(ctx, hrManager, 6)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/doc.pdf?sig=x", got.URL)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 10, 0, 0, time.UTC), got.ExpiresAt)
	assert.Equal(t, int64(1), got.DownloadCount)
	d.assert(t)
}
