package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
)

// logAction appends one audit row for an operator-visible action. Audit
// failures are logged, never propagated; the action itself already happened.
func logAction(c echo.Context, action, resourceType string, resourceID *int64, details any) {
	cc := c.(*middleware.AppContext)

	var actorID *int64
	if cc.User != nil {
		id := cc.User.UserID
		actorID = &id
	}

	var encoded json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err == nil {
			encoded = data
		}
	}

	if err := cc.App.Store.AppendAuditLog(c.Request().Context(), common.AuditLog{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      encoded,
	}); err != nil {
		logger.Error("Failed to append audit log", "action", action, "err", err)
	}
}

func GetAuditLogsHandler(c echo.Context) error {
	type auditResponse struct {
		Message string            `json:"message,omitempty"`
		Logs    []common.AuditLog `json:"logs"`
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			return c.JSON(http.StatusBadRequest, auditResponse{Message: "Invalid limit"})
		}
		limit = parsed
	}

	app := c.(*middleware.AppContext).App
	logs, err := app.Store.ListAuditLogs(c.Request().Context(), limit)
	if err != nil {
		logger.Error("Failed to list audit logs", "err", err)
		return c.JSON(http.StatusInternalServerError, auditResponse{Message: "Internal server error"})
	}
	if logs == nil {
		logs = []common.AuditLog{}
	}

	return c.JSON(http.StatusOK, auditResponse{Logs: logs})
}
