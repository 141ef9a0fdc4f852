package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docrepo/internal/auth"
	"docrepo/internal/http/middleware"
	"docrepo/internal/service"
)

const MetricsPath = "/metrics"

// Deps are the collaborators the routes are wired to.
type Deps struct {
	DB         *sql.DB
	Documents  service.DocumentService
	MasterData service.MasterDataService
	JWT        *auth.JWTer
	Gatherer   prometheus.Gatherer
	Log        *zap.Logger
}

// RegisterRoutes mounts the unauthenticated probes, metrics and docs at the root and the
// authenticated API under /api/v1.
func RegisterRoutes(app *fiber.App, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// host and schemes are fixed at startup on docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api/v1", middleware.Auth(d.JWT))

	api.Get("/documents", ListDocuments(d.Documents, log))
	api.Post("/documents", UploadDocument(d.Documents, log))
	api.Get("/documents/:id", GetDocument(d.Documents, log))
	api.Patch("/documents/:id", UpdateDocument(d.Documents, log))
	api.Delete("/documents/:id", DeleteDocument(d.Documents, log))
	api.Get("/documents/:id/download", DownloadDocument(d.Documents, log))

	api.Get("/departments", ListDepartments(d.MasterData, log))
	api.Get("/categories", ListCategories(d.MasterData, log))
}
