package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/graph"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
)

// GetSupplyChainHandler returns the tiered visualization subgraph rooted at
// a supplier.
func GetSupplyChainHandler(c echo.Context) error {
	type chainResponse struct {
		Message string                   `json:"message,omitempty"`
		Graph   *common.SupplyChainGraph `json:"graph,omitempty"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, chainResponse{Message: "Invalid supplier id"})
	}

	depth := 0
	if raw := c.QueryParam("depth"); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil || depth < 0 || depth > 6 {
			return c.JSON(http.StatusBadRequest, chainResponse{Message: "Invalid depth"})
		}
	}

	app := c.(*middleware.AppContext).App
	graph, err := app.Chains.Build(c.Request().Context(), id, depth)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, chainResponse{Message: "Supplier not found"})
		}
		logger.Error("Failed to build supply chain", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, chainResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, chainResponse{Graph: &graph})
}

// GetEntityGraphHandler returns the close neighborhood of an entity for
// graph exploration: every node and edge within one or two hops.
func GetEntityGraphHandler(c echo.Context) error {
	type neighborhoodResponse struct {
		Message string             `json:"message,omitempty"`
		Nodes   []common.GraphNode `json:"nodes,omitempty"`
		Edges   []common.GraphEdge `json:"edges,omitempty"`
	}

	name := c.Param("entity")
	if name == "" {
		return c.JSON(http.StatusBadRequest, neighborhoodResponse{Message: "Invalid entity name"})
	}

	depth := 2
	if raw := c.QueryParam("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 2 {
			return c.JSON(http.StatusBadRequest, neighborhoodResponse{Message: "Invalid depth"})
		}
		depth = parsed
	}

	app := c.(*middleware.AppContext).App
	g, err := graph.Load(c.Request().Context(), app.Store, name, depth)
	if err != nil {
		logger.Error("Failed to load entity neighborhood", "entity", name, "err", err)
		return c.JSON(http.StatusInternalServerError, neighborhoodResponse{Message: "Internal server error"})
	}
	if _, ok := g.Node(name); !ok {
		return c.JSON(http.StatusNotFound, neighborhoodResponse{Message: "Entity not found"})
	}

	return c.JSON(http.StatusOK, neighborhoodResponse{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	})
}

// TrustScoreHandler scores one entity under a scenario.
func TrustScoreHandler(c echo.Context) error {
	type trustScoreBody struct {
		EntityName string `json:"entity_name" validate:"required"`
		Scenario   string `json:"scenario"`
	}

	type trustScoreResponse struct {
		Message string                  `json:"message,omitempty"`
		Result  *common.TrustScoreResult `json:"result,omitempty"`
	}

	data := new(trustScoreBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, trustScoreResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, trustScoreResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Engine.CalculateTrustScore(c.Request().Context(), data.EntityName, data.Scenario)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, trustScoreResponse{Message: "Entity not found"})
		}
		if errors.Is(err, store.ErrConfigMissing) {
			logger.Error("No active trust model", "entity", data.EntityName, "err", err)
			return c.JSON(http.StatusConflict, trustScoreResponse{Message: "No active trust model configuration"})
		}
		logger.Error("Failed to calculate trust score", "entity", data.EntityName, "err", err)
		return c.JSON(http.StatusInternalServerError, trustScoreResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, trustScoreResponse{Result: &result})
}

// UpsertRelationHandler asserts a typed relation between two entities,
// creating them as needed.
func UpsertRelationHandler(c echo.Context) error {
	type relationBody struct {
		Subject      string  `json:"subject" validate:"required"`
		Object       string  `json:"object" validate:"required"`
		Relationship string  `json:"relationship" validate:"required"`
		Confidence   float64 `json:"confidence" validate:"omitempty,gt=0,lte=1"`
	}

	type relationResponse struct {
		Message string `json:"message"`
	}

	data := new(relationBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, relationResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, relationResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	if err := app.Resolver.UpsertRelation(c.Request().Context(), data.Subject, data.Object, data.Relationship, data.Confidence); err != nil {
		logger.Error("Failed to upsert relation", "subject", data.Subject, "object", data.Object, "err", err)
		return c.JSON(http.StatusInternalServerError, relationResponse{Message: "Internal server error"})
	}

	logAction(c, "graph.relation.upsert", "relation", nil, data)

	return c.JSON(http.StatusOK, relationResponse{Message: "Relation registered"})
}
