package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docrepo/internal/model"
	"docrepo/internal/policy"
	"docrepo/internal/query"
	"docrepo/internal/repository"
	"docrepo/internal/storage"
)

const (
	// DefaultMaxUploadBytes is 10 MiB.
	DefaultMaxUploadBytes int64 = 10 << 20
	presignExpiry               = 10 * time.Minute
	storagePrefix               = "documents"
)

// allowedExtensions are the accepted upload types, lower-case without the dot.
var allowedExtensions = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"jpg":  "image/jpeg",
	"png":  "image/png",
}

// ListInput holds list filters as received. Nil Page/PerPage mean "not supplied".
type ListInput struct {
	Search       string `json:"search" validate:"max=255"`
	CategoryID   int64  `json:"category_id" validate:"gte=0"`
	DepartmentID int64  `json:"department_id" validate:"gte=0"`
	Page         *int   `json:"page" validate:"omitnil,min=1"`
	PerPage      *int   `json:"per_page" validate:"omitnil,min=1,max=100"`
}

// DocumentListResult is one page of visible documents.
type DocumentListResult struct {
	Items         []model.DocumentView `json:"items"`
	TotalMatching int                  `json:"total_matching"`
	Page          int                  `json:"page"`
	PerPage       int                  `json:"per_page"`
}

// UploadInput is a new document and its content. Size is the exact content length.
type UploadInput struct {
	Title        string            `json:"title" validate:"required,max=255"`
	Description  *string           `json:"description" validate:"-"`
	CategoryID   int64             `json:"category_id" validate:"required,gt=0"`
	DepartmentID int64             `json:"department_id" validate:"required,gt=0"`
	AccessLevel  model.AccessLevel `json:"access_level" validate:"required,oneof=public department private"`
	FileName     string            `json:"file" validate:"required"`
	ContentType  string            `json:"-" validate:"-"`
	Size         int64             `json:"-" validate:"-"`
	Content      io.Reader         `json:"-" validate:"-"`
}

// NullableString tells an absent JSON field apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title        *string            `json:"title" validate:"omitnil,min=1,max=255"`
	Description  NullableString     `json:"description" validate:"-"`
	CategoryID   *int64             `json:"category_id" validate:"omitnil,gt=0"`
	DepartmentID *int64             `json:"department_id" validate:"omitnil,gt=0"`
	AccessLevel  *model.AccessLevel `json:"access_level" validate:"omitnil,oneof=public department private"`
}

func (in UpdateInput) patch() model.DocumentPatch {
	p := model.DocumentPatch{
		Title:        in.Title,
		CategoryID:   in.CategoryID,
		DepartmentID: in.DepartmentID,
		AccessLevel:  in.AccessLevel,
	}
	if in.Description.Set {
		d := in.Description.Value
		p.Description = &d
	}
	return p
}

// Download is an open file stream. The caller must close Content.
type Download struct {
	Content       io.ReadCloser
	FileName      string
	ContentType   string
	Size          int64
	DownloadCount int64
}

// PresignedDownload is a time-limited direct link to the file.
type PresignedDownload struct {
	URL           string    `json:"url"`
	ExpiresAt     time.Time `json:"expires_at"`
	DownloadCount int64     `json:"download_count"`
}

// DocumentService defines the document use cases. Every method authorizes the explicit caller.
type DocumentService interface {
	// List returns the caller's visible documents matching the filters, newest first.
	List(ctx context.Context, caller model.Caller, in ListInput) (*DocumentListResult, error)

	// Get returns one document.
	Get(ctx context.Context, caller model.Caller, id int64) (*model.DocumentView, error)

	// Upload validates and authorizes before writing to storage, then saves metadata and
	// removes the stored object again if the metadata insert fails.
	Upload(ctx context.Context, caller model.Caller, in UploadInput) (*model.DocumentView, error)

	// Update applies a partial update.
	Update(ctx context.Context, caller model.Caller, id int64, in UpdateInput) (*model.DocumentView, error)

	// Delete removes the row first and the file second.
	Delete(ctx context.Context, caller model.Caller, id int64) error

	// Download counts the download and opens the file.
	Download(ctx context.Context, caller model.Caller, id int64) (*Download, error)

	// PresignDownload counts the download and returns a direct link instead of a stream.
	PresignDownload(ctx context.Context, caller model.Caller, id int64) (*PresignedDownload, error)
}

type documentService struct {
	store     storage.Storage
	docs      repository.DocumentRepository
	master    repository.MasterDataRepository
	orphans   repository.OrphanRepository
	log       *zap.Logger
	maxUpload int64
	newKey    func(ext string) string
	now       func() time.Time
}

// NewDocumentService constructs a new DocumentService. maxUpload <= 0 uses DefaultMaxUploadBytes.
func NewDocumentService(
	store storage.Storage,
	docs repository.DocumentRepository,
	master repository.MasterDataRepository,
	orphans repository.OrphanRepository,
	log *zap.Logger,
	maxUpload int64,
) DocumentService {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &documentService{
		store:     store,
		docs:      docs,
		master:    master,
		orphans:   orphans,
		log:       log.With(zap.String("component", "document_service")),
		maxUpload: maxUpload,
		newKey: func(ext string) string {
			return path.Join(storagePrefix, uuid.NewString()+"."+ext)
		},
		now: time.Now,
	}
}

func (s *documentService) List(ctx context.Context, caller model.Caller, in ListInput) (*DocumentListResult, error) {
	if !policy.CanListAny(caller) {
		return nil, ErrPermissionDenied
	}

	err := validateStruct(in)
	refs, refErr := s.checkRefs(ctx, in.CategoryID, in.DepartmentID)
	if refErr != nil {
		return nil, refErr
	}

	page := query.Page{}
	if in.Page != nil {
		page.Page = *in.Page
	}
	if in.PerPage != nil {
		page.PerPage = *in.PerPage
	}
	if last := query.MaxPage(page.PerPage); page.Page > last {
		refs["page"] = fmt.Sprintf("page must not be greater than %d", last)
	}
	if err := merge(err, refs); err != nil {
		return nil, err
	}
	page = page.Normalize()

	res, err := s.docs.List(ctx, policy.VisibilityScope(caller), query.Filter{
		Search:       in.Search,
		CategoryID:   in.CategoryID,
		DepartmentID: in.DepartmentID,
	}, page)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return &DocumentListResult{
		Items:         res.Items,
		TotalMatching: res.Total,
		Page:          page.Page,
		PerPage:       page.PerPage,
	}, nil
}

func (s *documentService) Get(ctx context.Context, caller model.Caller, id int64) (*model.DocumentView, error) {
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(caller, v.Document) {
		return nil, ErrPermissionDenied
	}
	return v, nil
}

func (s *documentService) Upload(ctx context.Context, caller model.Caller, in UploadInput) (*model.DocumentView, error) {
	if !policy.CanCreate(caller) {
		return nil, ErrPermissionDenied
	}

	ext := fileExtension(in.FileName)
	if err := s.validateUpload(ctx, in, ext); err != nil {
		return nil, err
	}
	if !policy.CanUploadToDepartment(caller, in.DepartmentID) {
		return nil, ErrDepartmentScope
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = allowedExtensions[ext]
	}

	key := s.newKey(ext)
	obj, err := s.store.Put(ctx, key, in.Content, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": in.FileName},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	now := s.now().UTC()
	stored, err := s.docs.Create(ctx, &model.Document{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		FileName:     path.Base(in.FileName),
		FilePath:     key,
		FileType:     ext,
		FileSize:     in.Size,
		CategoryID:   in.CategoryID,
		DepartmentID: in.DepartmentID,
		UploadedBy:   caller.ID,
		AccessLevel:  in.AccessLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			s.log.Error("upload rollback failed", zap.String("file_path", key), zap.Error(delErr))
			if recErr := s.orphans.Record(ctx, key, "upload rollback: "+delErr.Error()); recErr != nil {
				s.log.Error("record storage orphan", zap.String("file_path", key), zap.Error(recErr))
			}
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %w", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.log.Info("document uploaded",
		zap.Int64("document_id", stored.ID),
		zap.Int64("uploaded_by", caller.ID),
		zap.String("file_path", key),
		zap.Int64("file_size", in.Size),
	)

	v, err := s.docs.FindByID(ctx, stored.ID)
	if err != nil {
		// The document exists; answer without the joined references.
		s.log.Warn("reload uploaded document", zap.Int64("document_id", stored.ID), zap.Error(err))
		return &model.DocumentView{Document: *stored}, nil
	}
	return v, nil
}

func (s *documentService) Update(ctx context.Context, caller model.Caller, id int64, in UpdateInput) (*model.DocumentView, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(caller, current.Document) {
		return nil, ErrPermissionDenied
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	verr := validateStruct(in)
	var catID, deptID int64
	if in.CategoryID != nil {
		catID = *in.CategoryID
	}
	if in.DepartmentID != nil {
		deptID = *in.DepartmentID
	}
	refs, err := s.checkRefs(ctx, catID, deptID)
	if err != nil {
		return nil, err
	}
	if err := merge(verr, refs); err != nil {
		return nil, err
	}

	patch := in.patch()
	next := patch.Apply(current.Document)
	if !policy.CanUploadToDepartment(caller, next.DepartmentID) {
		return nil, ErrDepartmentScope
	}
	if patch.Empty() {
		return current, nil
	}

	if err := s.docs.Update(ctx, id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "document not found", err)
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return s.find(ctx, id)
}

func (s *documentService) Delete(ctx context.Context, caller model.Caller, id int64) error {
	v, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(caller, v.Document) {
		return ErrPermissionDenied
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, "document not found", err)
		}
		return fmt.Errorf("delete document: %w", err)
	}

	key := v.FilePath
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return s.orphan(ctx, id, key, err)
	}
	if !exists {
		s.log.Warn("deleted document had no file", zap.Int64("document_id", id), zap.String("file_path", key))
		return newError(KindNotFound, "file not found", storage.ErrObjectNotFound)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return s.orphan(ctx, id, key, err)
	}

	s.log.Info("document deleted", zap.Int64("document_id", id), zap.Int64("deleted_by", caller.ID))
	return nil
}

// orphan records key for the janitor and reports the cleanup failure.
func (s *documentService) orphan(ctx context.Context, id int64, key string, cause error) error {
	s.log.Warn("file removal failed after row delete",
		zap.Int64("document_id", id), zap.String("file_path", key), zap.Error(cause))
	if err := s.orphans.Record(ctx, key, cause.Error()); err != nil {
		s.log.Error("record storage orphan", zap.String("file_path", key), zap.Error(err))
	}
	return newError(KindStorageCleanup, "document deleted but file removal failed", cause)
}

func (s *documentService) Download(ctx context.Context, caller model.Caller, id int64) (*Download, error) {
	v, count, err := s.countDownload(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	rc, info, err := s.store.Get(ctx, v.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, newError(KindNotFound, "file not found", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = allowedExtensions[v.FileType]
	}
	return &Download{
		Content:       rc,
		FileName:      v.FileName,
		ContentType:   contentType,
		Size:          info.Size,
		DownloadCount: count,
	}, nil
}

func (s *documentService) PresignDownload(ctx context.Context, caller model.Caller, id int64) (*PresignedDownload, error) {
	v, count, err := s.countDownload(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	u, err := s.store.PresignGet(ctx, v.FilePath, presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign file: %w", err)
	}
	return &PresignedDownload{URL: u, ExpiresAt: s.now().UTC().Add(presignExpiry), DownloadCount: count}, nil
}

// countDownload authorizes, confirms the file exists and increments the counter.
func (s *documentService) countDownload(ctx context.Context, caller model.Caller, id int64) (*model.DocumentView, int64, error) {
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !policy.CanView(caller, v.Document) {
		return nil, 0, ErrPermissionDenied
	}

	exists, err := s.store.Exists(ctx, v.FilePath)
	if err != nil {
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}
	if !exists {
		return nil, 0, newError(KindNotFound, "file not found", storage.ErrObjectNotFound)
	}

	count, err := s.docs.IncrementDownloadCount(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, newError(KindNotFound, "document not found", err)
		}
		return nil, 0, fmt.Errorf("count download: %w", err)
	}
	return v, count, nil
}

func (s *documentService) find(ctx context.Context, id int64) (*model.DocumentView, error) {
	if id <= 0 {
		return nil, newError(KindNotFound, "document not found", nil)
	}
	v, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "document not found", err)
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return v, nil
}

func (s *documentService) validateUpload(ctx context.Context, in UploadInput, ext string) error {
	err := validateStruct(in)

	extra := map[string]string{}
	switch {
	case in.Content == nil:
		extra["file"] = "file is required"
	case in.Size <= 0:
		extra["file"] = "file must not be empty"
	case in.Size > s.maxUpload:
		extra["file"] = fmt.Sprintf("file must not exceed %d KB", s.maxUpload/1024)
	case allowedExtensions[ext] == "":
		extra["file"] = "file must be of type: pdf, docx, xlsx, jpg, png"
	}

	refs, refErr := s.checkRefs(ctx, in.CategoryID, in.DepartmentID)
	if refErr != nil {
		return refErr
	}
	for k, v := range refs {
		extra[k] = v
	}
	return merge(err, extra)
}

// checkRefs reports unknown category/department ids as field errors. Zero ids are skipped.
func (s *documentService) checkRefs(ctx context.Context, categoryID, departmentID int64) (map[string]string, error) {
	fields := map[string]string{}
	if categoryID > 0 {
		ok, err := s.master.CategoryExists(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("check category: %w", err)
		}
		if !ok {
			fields["category_id"] = "selected category_id is invalid"
		}
	}
	if departmentID > 0 {
		ok, err := s.master.DepartmentExists(ctx, departmentID)
		if err != nil {
			return nil, fmt.Errorf("check department: %w", err)
		}
		if !ok {
			fields["department_id"] = "selected department_id is invalid"
		}
	}
	return fields, nil
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
