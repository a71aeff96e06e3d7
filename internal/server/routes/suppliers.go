package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/resolve"
	"github.com/traceguard/backend/pkg/store"
)

func supplierIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// CreateSupplierHandler registers a supplier and immediately resolves it to
// a canonical entity.
func CreateSupplierHandler(c echo.Context) error {
	type createSupplierBody struct {
		Name     string `json:"name" validate:"required"`
		Country  string `json:"country"`
		Industry string `json:"industry"`
	}

	type createSupplierResponse struct {
		Message    string              `json:"message"`
		Supplier   *common.Supplier    `json:"supplier,omitempty"`
		Resolution *resolve.Resolution `json:"resolution,omitempty"`
	}

	data := new(createSupplierBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createSupplierResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createSupplierResponse{Message: "Invalid request body"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	supplier, err := app.Store.CreateSupplier(ctx, common.Supplier{
		Name:     data.Name,
		Country:  data.Country,
		Industry: data.Industry,
	})
	if err != nil {
		logger.Error("Failed to create supplier", "err", err)
		return c.JSON(http.StatusInternalServerError, createSupplierResponse{Message: "Internal server error"})
	}

	resolution, err := app.Resolver.ResolveSupplierEntity(ctx, supplier.ID)
	if err != nil {
		logger.Error("Failed to resolve new supplier", "supplier_id", supplier.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, createSupplierResponse{Message: "Supplier created but resolution failed"})
	}

	logAction(c, "supplier.create", "supplier", &supplier.ID, map[string]string{"name": supplier.Name})

	return c.JSON(http.StatusCreated, createSupplierResponse{
		Message:    "Supplier created",
		Supplier:   &supplier,
		Resolution: &resolution,
	})
}

// GetSuppliersHandler lists all suppliers with their cached risk snapshot.
func GetSuppliersHandler(c echo.Context) error {
	type suppliersResponse struct {
		Message   string            `json:"message,omitempty"`
		Suppliers []common.Supplier `json:"suppliers"`
	}

	app := c.(*middleware.AppContext).App
	suppliers, err := app.Store.ListSuppliers(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list suppliers", "err", err)
		return c.JSON(http.StatusInternalServerError, suppliersResponse{Message: "Internal server error"})
	}
	if suppliers == nil {
		suppliers = []common.Supplier{}
	}

	return c.JSON(http.StatusOK, suppliersResponse{Suppliers: suppliers})
}

// GetSupplierHandler returns one supplier with its entity link.
func GetSupplierHandler(c echo.Context) error {
	type supplierResponse struct {
		Message  string                      `json:"message,omitempty"`
		Supplier *common.Supplier            `json:"supplier,omitempty"`
		Links    []common.SupplierEntityLink `json:"links,omitempty"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, supplierResponse{Message: "Invalid supplier id"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	supplier, err := app.Store.SupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, supplierResponse{Message: "Supplier not found"})
		}
		logger.Error("Failed to load supplier", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, supplierResponse{Message: "Internal server error"})
	}

	links, err := app.Store.LinksBySupplier(ctx, id)
	if err != nil {
		logger.Error("Failed to load supplier links", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, supplierResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, supplierResponse{Supplier: &supplier, Links: links})
}

// ResolveSupplierHandler re-resolves a supplier's entity link.
func ResolveSupplierHandler(c echo.Context) error {
	type resolveResponse struct {
		Message    string              `json:"message"`
		Resolution *resolve.Resolution `json:"resolution,omitempty"`
	}

	id, err := supplierIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resolveResponse{Message: "Invalid supplier id"})
	}

	app := c.(*middleware.AppContext).App
	resolution, err := app.Resolver.ResolveSupplierEntity(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, resolveResponse{Message: "Supplier not found"})
		}
		logger.Error("Failed to resolve supplier", "supplier_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, resolveResponse{Message: "Internal server error"})
	}

	logAction(c, "supplier.resolve", "supplier", &id, map[string]any{
		"entity_id": resolution.Entity.ID,
		"method":    resolution.Method,
	})

	return c.JSON(http.StatusOK, resolveResponse{
		Message:    "Supplier resolved",
		Resolution: &resolution,
	})
}
