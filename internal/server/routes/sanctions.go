package routes

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/internal/storage"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/leaselock"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
)

// CheckSanctionsHandler screens one supplier against the sanctions list.
func CheckSanctionsHandler(c echo.Context) error {
	type sanctionsResponse struct {
		Message string                  `json:"message,omitempty"`
		Result  *common.SanctionsResult `json:"result,omitempty"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, sanctionsResponse{Message: "Invalid supplier id"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	supplier, err := app.Store.SupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, sanctionsResponse{Message: "Supplier not found"})
		}
		logger.Error("Failed to load supplier", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, sanctionsResponse{Message: "Internal server error"})
	}

	result, err := app.Matcher.Screen(ctx, supplier.Name)
	if err != nil {
		logger.Error("Sanctions screening failed", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, sanctionsResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, sanctionsResponse{Result: &result})
}

// ReloadSanctionsHandler replaces the sanctions list from a CSV document in
// object storage. A lease lock keeps concurrent reloads from interleaving.
func ReloadSanctionsHandler(c echo.Context) error {
	type reloadBody struct {
		DocumentKey string `json:"document_key" validate:"required"`
	}

	type reloadResponse struct {
		Message string `json:"message"`
		Entries int    `json:"entries,omitempty"`
	}

	data := new(reloadBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, reloadResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, reloadResponse{Message: "Invalid request body"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := storage.GetFile(ctx, app.S3, data.DocumentKey)
	if err != nil {
		logger.Error("Failed to fetch sanctions document", "key", data.DocumentKey, "err", err)
		return c.JSON(http.StatusBadGateway, reloadResponse{Message: "Failed to fetch sanctions document"})
	}

	var entries int
	err = app.Locks.WithLease(ctx, "sanctions_reload", 2*time.Minute, func(ctx context.Context) error {
		var reloadErr error
		entries, reloadErr = app.Matcher.ReloadFromCSV(ctx, bytes.NewReader(doc))
		return reloadErr
	})
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			return c.JSON(http.StatusConflict, reloadResponse{Message: "A sanctions reload is already running"})
		}
		logger.Error("Failed to reload sanctions list", "key", data.DocumentKey, "err", err)
		return c.JSON(http.StatusInternalServerError, reloadResponse{Message: "Internal server error"})
	}

	logAction(c, "sanctions.reload", "sanctions_list", nil, map[string]any{
		"document_key": data.DocumentKey,
		"entries":      entries,
	})

	return c.JSON(http.StatusOK, reloadResponse{
		Message: "Sanctions list reloaded",
		Entries: entries,
	})
}
