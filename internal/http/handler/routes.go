package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/docs"
	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB          Pinger
	Documents   service.DocumentService
	Sharing     service.SharingService
	Gatherer    prometheus.Gatherer
	JWTSecret   []byte
	LinkLimiter *middleware.IPRateLimiter
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	client := middleware.ClientInfo()

	documents := app.Group("/documents", middleware.Auth(d.JWTSecret), client)
	documents.Get("/", ListDocuments(d.Documents))
	documents.Post("/", UploadDocument(d.Documents))
	documents.Get("/:id", GetDocument(d.Documents))
	documents.Put("/:id", UpdateDocument(d.Documents))
	documents.Delete("/:id", DeleteDocument(d.Documents))
	documents.Post("/:id/restore", RestoreDocument(d.Documents))

	documents.Get("/:id/versions", ListVersions(d.Documents))
	documents.Post("/:id/versions", UploadVersion(d.Documents))
	documents.Get("/:id/versions/:version", GetVersion(d.Documents))
	documents.Get("/:id/download/:version?", DownloadDocument(d.Documents))
	documents.Get("/:id/preview", PreviewDocument(d.Documents))

	documents.Get("/:id/access", ResolveAccess(d.Documents))
	documents.Post("/:id/access-logs", RecordAccess(d.Documents))

	documents.Get("/:id/shares", ListShares(d.Sharing))
	documents.Post("/:id/shares", ShareDocument(d.Sharing))
	documents.Delete("/:id/shares/:shareId", RevokeShare(d.Sharing))
	documents.Get("/:id/links", ListPublicLinks(d.Sharing))
	documents.Post("/:id/links", CreatePublicLink(d.Sharing))
	documents.Delete("/:id/links/:token", RevokePublicLink(d.Sharing))

	public := app.Group("/public")
	if d.LinkLimiter != nil {
		public.Use(d.LinkLimiter.Handler())
	}
	public.Use(client)
	public.Get("/links/:token", PublicDocument(d.Documents, d.Sharing))
	public.Get("/links/:token/download", PublicDownload(d.Documents, d.Sharing))
}
