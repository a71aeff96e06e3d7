package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
)

// RunAssessmentHandler runs a full compliance assessment for one supplier.
func RunAssessmentHandler(c echo.Context) error {
	type assessmentResponse struct {
		Message    string                   `json:"message,omitempty"`
		Assessment *common.AssessmentResult `json:"assessment,omitempty"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, assessmentResponse{Message: "Invalid supplier id"})
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Assessor.RunAssessment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, assessmentResponse{Message: "Supplier not found"})
		}
		if errors.Is(err, store.ErrConfigMissing) {
			logger.Error("No active scoring config", "supplier_id", id, "err", err)
			return c.JSON(http.StatusConflict, assessmentResponse{Message: "No active scoring configuration"})
		}
		logger.Error("Assessment failed", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, assessmentResponse{Message: "Internal server error"})
	}

	logAction(c, "supplier.assess", "supplier", &id, map[string]any{
		"status": result.OverallStatus,
		"risk":   result.RiskScore,
	})

	return c.JSON(http.StatusOK, assessmentResponse{Assessment: &result})
}

// CompareSuppliersHandler assesses a list of suppliers in one call and
// returns the results side by side, in request order.
func CompareSuppliersHandler(c echo.Context) error {
	type compareSuppliersBody struct {
		SupplierIDs []int64 `json:"supplier_ids" validate:"required,min=1,max=50,dive,gt=0"`
	}

	type compareSuppliersResponse struct {
		Message string                    `json:"message,omitempty"`
		Results []common.AssessmentResult `json:"results,omitempty"`
	}

	data := new(compareSuppliersBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, compareSuppliersResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, compareSuppliersResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	results, err := app.Assessor.CompareSuppliers(c.Request().Context(), data.SupplierIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, compareSuppliersResponse{Message: "Supplier not found"})
		}
		if errors.Is(err, store.ErrConfigMissing) {
			logger.Error("No active scoring config", "err", err)
			return c.JSON(http.StatusConflict, compareSuppliersResponse{Message: "No active scoring configuration"})
		}
		logger.Error("Supplier comparison failed", "err", err)
		return c.JSON(http.StatusInternalServerError, compareSuppliersResponse{Message: "Internal server error"})
	}

	for i, id := range data.SupplierIDs {
		logAction(c, "supplier.assess.compare", "supplier", &id, map[string]any{
			"status": results[i].OverallStatus,
			"risk":   results[i].RiskScore,
		})
	}

	return c.JSON(http.StatusOK, compareSuppliersResponse{Results: results})
}

// GetAssessmentHistoryHandler lists a supplier's assessments, newest first.
func GetAssessmentHistoryHandler(c echo.Context) error {
	type historyResponse struct {
		Message string                     `json:"message,omitempty"`
		History []common.AssessmentHistory `json:"history"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, historyResponse{Message: "Invalid supplier id"})
	}

	app := c.(*middleware.AppContext).App
	history, err := app.Store.ListAssessmentHistory(c.Request().Context(), id)
	if err != nil {
		logger.Error("Failed to load assessment history", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, historyResponse{Message: "Internal server error"})
	}
	if history == nil {
		history = []common.AssessmentHistory{}
	}

	return c.JSON(http.StatusOK, historyResponse{History: history})
}

// CompareAssessmentsHandler reports the delta between the two most recent
// assessments of a supplier.
func CompareAssessmentsHandler(c echo.Context) error {
	type compareResponse struct {
		Message   string                    `json:"message,omitempty"`
		Latest    *common.AssessmentHistory `json:"latest,omitempty"`
		Previous  *common.AssessmentHistory `json:"previous,omitempty"`
		RiskDelta *float64                  `json:"risk_delta,omitempty"`
		Changed   bool                      `json:"status_changed"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, compareResponse{Message: "Invalid supplier id"})
	}

	app := c.(*middleware.AppContext).App
	history, err := app.Store.ListAssessmentHistory(c.Request().Context(), id)
	if err != nil {
		logger.Error("Failed to load assessment history", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, compareResponse{Message: "Internal server error"})
	}

	if len(history) == 0 {
		return c.JSON(http.StatusNotFound, compareResponse{Message: "No assessments recorded"})
	}

	resp := compareResponse{Latest: &history[0]}
	if len(history) > 1 {
		resp.Previous = &history[1]
		delta := history[0].RiskScore - history[1].RiskScore
		resp.RiskDelta = &delta
		resp.Changed = history[0].OverallStatus != history[1].OverallStatus
	}

	return c.JSON(http.StatusOK, resp)
}
