package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// linkActor builds the anonymous bearer of the :token link.
func linkActor(c *fiber.Ctx) model.Actor {
	return model.Actor{
		LinkToken:    c.Params("token"),
		LinkPassword: c.Get(middleware.LinkPasswordHeader),
	}
}

// PublicDocument opens a document through a public link. Each call spends
// one link use.
//
// @Summary Open a shared link
// @Tags public
// @Produce json
// @Param token path string true "link token"
// @Param X-Link-Password header string false "link password"
// @Success 200 {object} model.DocumentDetail
// @Failure 403,404,409,429 {object} errorPayload
// @Router /public/links/{token} [get]
func PublicDocument(docs service.DocumentService, sharing service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		link, err := sharing.LookupLink(c.UserContext(), c.Params("token"))
		if err != nil {
			return writeServiceError(c, err)
		}
		doc, err := docs.Get(c.UserContext(), linkActor(c), link.DocumentID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// PublicDownload streams the latest version through a public link.
//
// @Summary Download through a shared link
// @Tags public
// @Produce octet-stream
// @Param token path string true "link token"
// @Param X-Link-Password header string false "link password"
// @Success 200 {file} binary
// @Failure 403,404,409,429 {object} errorPayload
// @Router /public/links/{token}/download [get]
func PublicDownload(docs service.DocumentService, sharing service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		link, err := sharing.LookupLink(c.UserContext(), c.Params("token"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendDownload(c, docs, linkActor(c), link.DocumentID, nil)
	}
}
