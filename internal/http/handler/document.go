package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// ListDocuments returns the caller's live documents.
//
// @Summary List own documents
// @Tags documents
// @Produce json
// @Param limit query int false "page size (default 20, max 100)"
// @Param offset query int false "offset"
// @Param folder_id query string false "folder filter"
// @Param search query string false "title/description search"
// @Param favorites query bool false "favorites only"
// @Success 200 {object} service.DocumentListResult
// @Failure 400,401 {object} errorPayload
// @Security BearerAuth
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		f := model.DocumentFilter{
			Search:    c.Query("search"),
			Favorites: c.QueryBool("favorites"),
			Limit:     limit,
			Offset:    offset,
		}
		if folder := c.Query("folder_id"); folder != "" {
			f.FolderID = &folder
		}

		res, err := svc.List(c.UserContext(), middleware.ActorFrom(c), f)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument creates a document from a multipart upload.
//
// @Summary Upload a new document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "document content"
// @Param title formData string false "defaults to the file name"
// @Param description formData string false "description"
// @Param folder_id formData string false "folder"
// @Param tags formData string false "comma separated tags"
// @Param is_public formData bool false "public flag"
// @Param expires_at formData string false "RFC3339 expiry"
// @Param change_summary formData string false "version 1 summary"
// @Success 201 {object} model.DocumentDetail
// @Failure 400,401,502 {object} errorPayload
// @Security BearerAuth
// @Router /documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "multipart form with a file is required")
		}
		file, f, err := openUpload(c)
		if f == nil {
			return err
		}
		defer f.Close()

		expires, err := optionalTime(formValue(form, "expires_at"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRES_AT", err.Error())
		}
		in := service.CreateInput{
			Title:         formValue(form, "title"),
			Description:   formValue(form, "description"),
			Tags:          formTags(form),
			ExpiresAt:     expires,
			ChangeSummary: formValue(form, "change_summary"),
			File:          file,
		}
		if folder := formValue(form, "folder_id"); folder != "" {
			in.FolderID = &folder
		}
		if v := formValue(form, "is_public"); v != "" {
			if in.IsPublic, err = strconv.ParseBool(v); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_IS_PUBLIC", "is_public must be a boolean")
			}
		}

		doc, err := svc.Create(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a document with its versions and tags.
//
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.DocumentDetail
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		doc, err := svc.Get(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

type updateDocumentRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	FolderID    *string    `json:"folder_id"`
	ClearFolder bool       `json:"clear_folder"`
	IsFavorite  *bool      `json:"is_favorite"`
	IsPublic    *bool      `json:"is_public"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expiry"`
	Tags        *[]string  `json:"tags"`
}

// UpdateDocument changes owner-editable metadata.
//
// @Summary Update document metadata
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body updateDocumentRequest true "fields to change"
// @Success 200 {object} model.DocumentDetail
// @Failure 400,401,403,404,409 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id} [put]
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		var req updateDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := svc.Update(c.UserContext(), middleware.ActorFrom(c), id, service.UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			FolderID:    req.FolderID,
			ClearFolder: req.ClearFolder,
			IsFavorite:  req.IsFavorite,
			IsPublic:    req.IsPublic,
			ExpiresAt:   req.ExpiresAt,
			ClearExpiry: req.ClearExpiry,
			Tags:        req.Tags,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument soft-deletes a document.
//
// @Summary Soft-delete a document
// @Tags documents
// @Param id path string true "document id"
// @Success 204
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		if err := svc.SoftDelete(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RestoreDocument undoes a soft delete before the purge time.
//
// @Summary Restore a soft-deleted document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/restore [post]
func RestoreDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		doc, err := svc.Restore(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ListVersions returns a document's version history, newest first.
//
// @Summary List versions
// @Tags versions
// @Produce json
// @Param id path string true "document id"
// @Success 200 {array} model.DocumentVersion
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/versions [get]
func ListVersions(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		versions, err := svc.ListVersions(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": versions})
	}
}

// UploadVersion appends a new version.
//
// @Summary Upload a new version
// @Tags versions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "document id"
// @Param file formData file true "new content"
// @Param change_summary formData string false "summary"
// @Param is_autosave formData bool false "autosave flag"
// @Success 201 {object} model.DocumentVersion
// @Failure 400,401,403,404,409,502 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/versions [post]
func UploadVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		file, f, err := openUpload(c)
		if f == nil {
			return err
		}
		defer f.Close()

		in := service.VersionInput{
			File:          file,
			ChangeSummary: c.FormValue("change_summary"),
		}
		if v := c.FormValue("is_autosave"); v != "" {
			if in.IsAutosave, err = strconv.ParseBool(v); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_IS_AUTOSAVE", "is_autosave must be a boolean")
			}
		}

		v, err := svc.UploadVersion(c.UserContext(), middleware.ActorFrom(c), id, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// GetVersion returns one version.
//
// @Summary Get a version
// @Tags versions
// @Produce json
// @Param id path string true "document id"
// @Param version path int true "version number"
// @Success 200 {object} model.DocumentVersion
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/versions/{version} [get]
func GetVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		number, err := versionParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "version must be a positive integer")
		}
		v, err := svc.GetVersion(c.UserContext(), middleware.ActorFrom(c), id, number)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(v)
	}
}

// DownloadDocument streams a version, the latest when none is given.
//
// @Summary Download content
// @Tags documents
// @Produce octet-stream
// @Param id path string true "document id"
// @Param version path int false "version number"
// @Success 200 {file} binary
// @Failure 400,401,403,404,409,502 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/download/{version} [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		number, err := versionParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "version must be a positive integer")
		}
		return sendDownload(c, svc, middleware.ActorFrom(c), id, number)
	}
}

// sendDownload streams the blob. fasthttp closes the body once it is sent.
func sendDownload(c *fiber.Ctx, svc service.DocumentService, actor model.Actor, id string, number *int) error {
	dl, err := svc.Download(c.UserContext(), actor, id, number)
	if err != nil {
		return writeServiceError(c, err)
	}
	ct := dl.Version.MimeType
	if ct == "" {
		ct = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, ct)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", dl.Version.FileName))
	c.Set("X-Document-Version", strconv.Itoa(dl.Version.VersionNumber))
	c.Set("X-Content-SHA256", dl.Version.FileHash)

	size := int(dl.Version.FileSize)
	if dl.Info.Size > 0 {
		size = int(dl.Info.Size)
	}
	return c.SendStream(dl.Body, size)
}

// PreviewDocument returns a short-lived URL for the latest version.
//
// @Summary Preview the latest version
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} service.Preview
// @Failure 400,401,403,404,409,502 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/preview [get]
func PreviewDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		p, err := svc.Preview(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// ResolveAccess reports the caller's effective permission.
//
// @Summary Effective permission
// @Tags access
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} service.Decision
// @Failure 400,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/access [get]
func ResolveAccess(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		d, err := svc.ResolveAccess(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(d)
	}
}

type recordAccessRequest struct {
	Action  string `json:"action"`
	Version *int   `json:"version"`
}

// RecordAccess appends a client-reported access log entry, e.g. print.
//
// @Summary Record an access
// @Tags access
// @Accept json
// @Param id path string true "document id"
// @Param body body recordAccessRequest true "action"
// @Success 204
// @Failure 400,401,403,404,503 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/access-logs [post]
func RecordAccess(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		var req recordAccessRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		ctx := c.UserContext()
		err = svc.RecordAccess(ctx, middleware.ActorFrom(c), id, req.Version, model.AccessAction(req.Action), service.ClientInfoFrom(ctx))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
