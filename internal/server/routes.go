package server

import (
	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Supplier routes
	apiRoutes.GET("/suppliers", routes.GetSuppliersHandler, middleware.RequirePermission("supplier.view"))
	apiRoutes.POST("/suppliers", routes.CreateSupplierHandler, middleware.RequirePermission("supplier.create"))
	apiRoutes.GET("/suppliers/:id", routes.GetSupplierHandler, middleware.RequirePermission("supplier.view"))
	apiRoutes.POST("/suppliers/:id/resolve", routes.ResolveSupplierHandler, middleware.RequirePermission("supplier.update"))

	// Screening routes
	apiRoutes.POST("/suppliers/compare", routes.CompareSuppliersHandler, middleware.RequirePermission("supplier.assess"))
	apiRoutes.POST("/suppliers/:id/assessments", routes.RunAssessmentHandler, middleware.RequirePermission("supplier.assess"))
	apiRoutes.GET("/suppliers/:id/assessments", routes.GetAssessmentHistoryHandler, middleware.RequirePermission("supplier.view"))
	apiRoutes.GET("/suppliers/:id/assessments/compare", routes.CompareAssessmentsHandler, middleware.RequirePermission("supplier.view"))
	apiRoutes.POST("/suppliers/:id/sanctions-check", routes.CheckSanctionsHandler, middleware.RequirePermission("supplier.assess"))

	// Graph routes
	apiRoutes.GET("/suppliers/:id/supply-chain", routes.GetSupplyChainHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/graph/:entity", routes.GetEntityGraphHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.POST("/entities/trust-score", routes.TrustScoreHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.POST("/graph/relations", routes.UpsertRelationHandler, middleware.RequirePermission("graph.update"))

	// Sanctions list management
	apiRoutes.POST("/sanctions/reload", routes.ReloadSanctionsHandler, middleware.RequirePermission("sanctions.manage"))

	// Document ingestion
	apiRoutes.POST("/documents/ingest", routes.IngestDocumentHandler, middleware.RequirePermission("document.ingest"))

	// Config routes
	apiRoutes.GET("/configs/scoring", routes.GetScoringConfigHandler, middleware.RequirePermission("config.manage"))
	apiRoutes.POST("/configs/scoring", routes.CreateScoringConfigHandler, middleware.RequirePermission("config.manage"))
	apiRoutes.GET("/configs/trust-model", routes.GetTrustModelHandler, middleware.RequirePermission("config.manage"))
	apiRoutes.POST("/configs/trust-model", routes.CreateTrustModelHandler, middleware.RequirePermission("config.manage"))

	// Audit routes
	apiRoutes.GET("/audit", routes.GetAuditLogsHandler, middleware.RequirePermission("audit.view"))
}
