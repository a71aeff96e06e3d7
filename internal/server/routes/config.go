package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
	"github.com/traceguard/backend/pkg/trust"
)

// GetScoringConfigHandler returns the active assessment weights.
func GetScoringConfigHandler(c echo.Context) error {
	type scoringResponse struct {
		Message string                `json:"message,omitempty"`
		Config  *common.ScoringConfig `json:"config,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	cfg, err := app.Store.ActiveScoringConfig(c.Request().Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, scoringResponse{Message: "No active scoring config"})
		}
		logger.Error("Failed to load scoring config", "err", err)
		return c.JSON(http.StatusInternalServerError, scoringResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, scoringResponse{Config: &cfg})
}

// CreateScoringConfigHandler activates a new set of assessment weights.
func CreateScoringConfigHandler(c echo.Context) error {
	type scoringBody struct {
		SanctionsWeight         float64 `json:"sanctions_weight" validate:"required,gt=0,lte=100"`
		ExportFailWeight        float64 `json:"export_fail_weight" validate:"required,gt=0,lte=100"`
		ExportConditionalWeight float64 `json:"export_conditional_weight" validate:"required,gt=0,lte=100"`
		Version                 string  `json:"version" validate:"required"`
	}

	type scoringResponse struct {
		Message string                `json:"message"`
		Config  *common.ScoringConfig `json:"config,omitempty"`
	}

	data := new(scoringBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, scoringResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, scoringResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	cfg, err := app.Store.CreateScoringConfig(c.Request().Context(), common.ScoringConfig{
		SanctionsWeight:         data.SanctionsWeight,
		ExportFailWeight:        data.ExportFailWeight,
		ExportConditionalWeight: data.ExportConditionalWeight,
		Version:                 data.Version,
		Active:                  true,
	})
	if err != nil {
		logger.Error("Failed to create scoring config", "err", err)
		return c.JSON(http.StatusInternalServerError, scoringResponse{Message: "Internal server error"})
	}

	logAction(c, "config.scoring.create", "scoring_config", &cfg.ID, map[string]string{"version": cfg.Version})

	return c.JSON(http.StatusCreated, scoringResponse{
		Message: "Scoring config activated",
		Config:  &cfg,
	})
}

// GetTrustModelHandler returns the active trust model for a scenario.
func GetTrustModelHandler(c echo.Context) error {
	type trustModelResponse struct {
		Message string                   `json:"message,omitempty"`
		Config  *common.TrustModelConfig `json:"config,omitempty"`
	}

	modelName := c.QueryParam("model_name")
	if modelName == "" {
		modelName = trust.DefaultScenario
	}

	app := c.(*middleware.AppContext).App
	cfg, err := app.Store.ActiveTrustModel(c.Request().Context(), modelName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, trustModelResponse{Message: "No active trust model"})
		}
		logger.Error("Failed to load trust model", "model", modelName, "err", err)
		return c.JSON(http.StatusInternalServerError, trustModelResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, trustModelResponse{Config: &cfg})
}

// CreateTrustModelHandler activates a new trust model for a scenario.
func CreateTrustModelHandler(c echo.Context) error {
	type trustModelBody struct {
		ModelName       string             `json:"model_name" validate:"required"`
		Version         string             `json:"version" validate:"required"`
		DepthLimit      int                `json:"depth_limit" validate:"required,gte=1,lte=6"`
		DecayFactor     float64            `json:"decay_factor" validate:"required,gt=0"`
		SanctionBoost   float64            `json:"sanction_boost" validate:"gte=0"`
		RelationWeights map[string]float64 `json:"relation_weights"`
	}

	type trustModelResponse struct {
		Message string                   `json:"message"`
		Config  *common.TrustModelConfig `json:"config,omitempty"`
	}

	data := new(trustModelBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, trustModelResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, trustModelResponse{Message: "Invalid request body"})
	}

	weights := common.DefaultRelationWeights()
	for k, v := range data.RelationWeights {
		weights[k] = v
	}

	app := c.(*middleware.AppContext).App
	cfg, err := app.Store.CreateTrustModel(c.Request().Context(), common.TrustModelConfig{
		ModelName:       data.ModelName,
		Version:         data.Version,
		DepthLimit:      data.DepthLimit,
		DecayFactor:     data.DecayFactor,
		SanctionBoost:   data.SanctionBoost,
		RelationWeights: weights,
		Active:          true,
	})
	if err != nil {
		logger.Error("Failed to create trust model", "model", data.ModelName, "err", err)
		return c.JSON(http.StatusInternalServerError, trustModelResponse{Message: "Internal server error"})
	}

	logAction(c, "config.trustmodel.create", "trust_model_config", &cfg.ID, map[string]string{
		"model_name": cfg.ModelName,
		"version":    cfg.Version,
	})

	return c.JSON(http.StatusCreated, trustModelResponse{
		Message: "Trust model activated",
		Config:  &cfg,
	})
}
