package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/service"
)

var errBadParam = errors.New("bad parameter")

// documentID reads and validates the :id route parameter.
func documentID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	return id, nil
}

// shareID reads and validates the :shareId route parameter.
func shareID(c *fiber.Ctx) (string, error) {
	id := c.Params("shareId")
	if _, err := uuid.Parse(id); err != nil {
		return "", writeError(c, fiber.StatusBadRequest, "INVALID_SHARE_ID", "invalid share id format")
	}
	return id, nil
}

// versionParam reads an optional positive :version parameter.
func versionParam(c *fiber.Ctx) (*int, error) {
	raw := c.Params("version")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil, errBadParam
	}
	return &n, nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errBadParam, key)
	}
	return n, nil
}

func optionalTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expires_at must be RFC3339", errBadParam)
	}
	return &t, nil
}

// formTags accepts repeated "tags" fields as well as comma-separated values.
func formTags(form *multipart.Form) []string {
	var tags []string
	for _, v := range form.Value["tags"] {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return tags
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// openUpload returns the "file" part of a multipart request. The caller
// closes the returned file.
func openUpload(c *fiber.Ctx) (service.FileInput, multipart.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return service.FileInput{}, nil, writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return service.FileInput{}, nil, writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	return service.FileInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	}, f, nil
}
