package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docrepo/internal/http/middleware"
	"docrepo/internal/model"
	"docrepo/internal/service"
)

func callerOf(c *fiber.Ctx) (model.Caller, error) {
	caller, ok := middleware.CallerFromCtx(c)
	if !ok {
		return model.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}
	return caller, nil
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

// optionalInt reads an integer query or form value. Empty means absent.
func optionalInt(raw, field string, bad map[string]string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		bad[field] = "must be an integer"
		return nil
	}
	return &v
}

func intPtr(v *int64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// ListDocuments returns one page of the documents visible to the caller.
//
//	@Summary	List visible documents
//	@Tags		documents
//	@Produce	json
//	@Security	BearerAuth
//	@Param		search			query		string	false	"Case-insensitive title/description search"
//	@Param		category_id		query		int		false	"Category filter"
//	@Param		department_id	query		int		false	"Department filter"
//	@Param		page			query		int		false	"Page, 1-based"
//	@Param		per_page		query		int		false	"Page size, 1..100"
//	@Success	200				{object}	service.DocumentListResult
//	@Failure	403				{object}	errorPayload
//	@Failure	422				{object}	errorPayload
//	@Router		/api/v1/documents [get]
func ListDocuments(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}

		bad := map[string]string{}
		in := service.ListInput{
			Search:       c.Query("search"),
			CategoryID:   deref(optionalInt(c.Query("category_id"), "category_id", bad)),
			DepartmentID: deref(optionalInt(c.Query("department_id"), "department_id", bad)),
			Page:         intPtr(optionalInt(c.Query("page"), "page", bad)),
			PerPage:      intPtr(optionalInt(c.Query("per_page"), "per_page", bad)),
		}
		if len(bad) > 0 {
			return writeFieldError(c, fiber.StatusUnprocessableEntity, string(service.KindValidation), "validation failed", bad)
		}

		res, err := svc.List(c.UserContext(), caller, in)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument stores a new document from a multipart form.
//
//	@Summary	Upload a document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	BearerAuth
//	@Param		file			formData	file	true	"pdf, docx, xlsx, jpg or png"
//	@Param		title			formData	string	true	"Title"
//	@Param		description		formData	string	false	"Description"
//	@Param		category_id		formData	int		true	"Category"
//	@Param		department_id	formData	int		true	"Owning department"
//	@Param		access_level	formData	string	true	"public, department or private"
//	@Success	201				{object}	model.DocumentView
//	@Failure	400				{object}	errorPayload
//	@Failure	403				{object}	errorPayload
//	@Failure	422				{object}	errorPayload
//	@Router		/api/v1/documents [post]
func UploadDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		bad := map[string]string{}
		in := service.UploadInput{
			Title:        strings.TrimSpace(c.FormValue("title")),
			CategoryID:   deref(optionalInt(c.FormValue("category_id"), "category_id", bad)),
			DepartmentID: deref(optionalInt(c.FormValue("department_id"), "department_id", bad)),
			AccessLevel:  model.AccessLevel(c.FormValue("access_level")),
			FileName:     fh.Filename,
			ContentType:  fh.Header.Get(fiber.HeaderContentType),
			Size:         fh.Size,
			Content:      f,
		}
		if d := c.FormValue("description"); d != "" {
			in.Description = &d
		}
		if len(bad) > 0 {
			return writeFieldError(c, fiber.StatusUnprocessableEntity, string(service.KindValidation), "validation failed", bad)
		}

		doc, err := svc.Upload(c.UserContext(), caller, in)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a single document.
//
//	@Summary	Get a document
//	@Tags		documents
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Document ID"
//	@Success	200	{object}	model.DocumentView
//	@Failure	403	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/api/v1/documents/{id} [get]
func GetDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, err := svc.Get(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(doc)
	}
}

// UpdateDocument applies a JSON partial update.
//
//	@Summary	Update document metadata
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int					true	"Document ID"
//	@Param		body	body		service.UpdateInput	true	"Fields to change"
//	@Success	200		{object}	model.DocumentView
//	@Failure	400		{object}	errorPayload
//	@Failure	403		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Failure	422		{object}	errorPayload
//	@Router		/api/v1/documents/{id} [patch]
func UpdateDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var in service.UpdateInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		doc, err := svc.Update(c.UserContext(), caller, id, in)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes a document and its file.
//
//	@Summary	Delete a document
//	@Tags		documents
//	@Security	BearerAuth
//	@Param		id	path	int	true	"Document ID"
//	@Success	204
//	@Failure	403	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Failure	500	{object}	errorPayload
//	@Router		/api/v1/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := svc.Delete(c.UserContext(), caller, id); err != nil {
			return writeServiceError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument streams the file, or with presign=1 returns a short-lived direct link.
// Either way the download is counted.
//
//	@Summary	Download a document
//	@Tags		documents
//	@Produce	octet-stream
//	@Security	BearerAuth
//	@Param		id		path		int		true	"Document ID"
//	@Param		presign	query		bool	false	"Return a presigned URL instead of the file"
//	@Success	200		{file}		binary
//	@Failure	403		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/api/v1/documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if c.QueryBool("presign") {
			link, err := svc.PresignDownload(c.UserContext(), caller, id)
			if err != nil {
				return writeServiceError(c, log, err)
			}
			return c.JSON(link)
		}

		d, err := svc.Download(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, log, err)
		}

		c.Attachment(d.FileName)
		if d.ContentType != "" {
			c.Set(fiber.HeaderContentType, d.ContentType)
		}
		c.Set("X-Download-Count", strconv.FormatInt(d.DownloadCount, 10))
		// fasthttp closes the stream once the body is written
		return c.SendStream(d.Content, int(d.Size))
	}
}
