package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

type shareRequest struct {
	UserID     string           `json:"user_id"`
	GroupID    string           `json:"group_id"`
	Permission model.Permission `json:"permission" swaggertype:"string" enums:"view,comment,edit,owner"`
	ExpiresAt  *time.Time       `json:"expires_at"`
	Message    string           `json:"message"`
}

type linkRequest struct {
	Permission model.Permission `json:"permission" swaggertype:"string" enums:"view,comment,edit"`
	Password   string           `json:"password"`
	MaxUses    *int             `json:"max_uses"`
	ExpiresAt  *time.Time       `json:"expires_at"`
}

// linkResponse exposes the token once, at creation and in owner listings.
type linkResponse struct {
	Token     string `json:"token"`
	Protected bool   `json:"password_protected"`
	*model.PublicLink
}

func toLinkResponse(l *model.PublicLink) linkResponse {
	return linkResponse{Token: l.ID, Protected: l.HasPassword(), PublicLink: l}
}

// ShareDocument grants a user or a group access.
//
// @Summary Share a document
// @Tags sharing
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body shareRequest true "exactly one of user_id or group_id"
// @Success 201 {object} model.Share
// @Failure 400,401,403,404,409 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/shares [post]
func ShareDocument(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		var req shareRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		share, err := svc.ShareDocument(c.UserContext(), middleware.ActorFrom(c), id, service.ShareInput{
			UserID:     req.UserID,
			GroupID:    req.GroupID,
			Permission: req.Permission,
			ExpiresAt:  req.ExpiresAt,
			Message:    req.Message,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(share)
	}
}

// ListShares lists the document's shares.
//
// @Summary List shares
// @Tags sharing
// @Produce json
// @Param id path string true "document id"
// @Success 200 {array} model.Share
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/shares [get]
func ListShares(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		shares, err := svc.ListShares(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": shares})
	}
}

// RevokeShare deletes a share.
//
// @Summary Revoke a share
// @Tags sharing
// @Param id path string true "document id"
// @Param shareId path string true "share id"
// @Success 204
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/shares/{shareId} [delete]
func RevokeShare(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		sid, err := shareID(c)
		if sid == "" {
			return err
		}
		if err := svc.RevokeShare(c.UserContext(), middleware.ActorFrom(c), id, sid); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CreatePublicLink issues a bearer link.
//
// @Summary Create a public link
// @Tags sharing
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body linkRequest true "link settings"
// @Success 201 {object} linkResponse
// @Failure 400,401,403,404,409 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/links [post]
func CreatePublicLink(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		var req linkRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		link, err := svc.CreatePublicLink(c.UserContext(), middleware.ActorFrom(c), id, service.LinkInput{
			Permission: req.Permission,
			Password:   req.Password,
			MaxUses:    req.MaxUses,
			ExpiresAt:  req.ExpiresAt,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toLinkResponse(link))
	}
}

// ListPublicLinks lists the document's links.
//
// @Summary List public links
// @Tags sharing
// @Produce json
// @Param id path string true "document id"
// @Success 200 {array} linkResponse
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/links [get]
func ListPublicLinks(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		links, err := svc.ListPublicLinks(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		out := make([]linkResponse, len(links))
		for i := range links {
			out[i] = toLinkResponse(&links[i])
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// RevokePublicLink deletes a link.
//
// @Summary Revoke a public link
// @Tags sharing
// @Param id path string true "document id"
// @Param token path string true "link token"
// @Success 204
// @Failure 400,401,403,404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/links/{token} [delete]
func RevokePublicLink(svc service.SharingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if id == "" {
			return err
		}
		if err := svc.RevokePublicLink(c.UserContext(), middleware.ActorFrom(c), id, c.Params("token")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
