package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/traceguard/backend/internal/queue"
	"github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
)

// IngestDocumentHandler enqueues an extraction payload for asynchronous
// resolution. Candidates come inline or as a JSON document in object
// storage referenced by key.
func IngestDocumentHandler(c echo.Context) error {
	type ingestBody struct {
		Source      string                     `json:"source" validate:"required"`
		DocumentKey string                     `json:"document_key"`
		Entities    []common.EntityCandidate   `json:"entities"`
		Relations   []common.RelationCandidate `json:"relations"`
	}

	type ingestResponse struct {
		Message string `json:"message"`
	}

	data := new(ingestBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{Message: "Invalid request body"})
	}
	if data.DocumentKey == "" && len(data.Entities) == 0 && len(data.Relations) == 0 {
		return c.JSON(http.StatusBadRequest, ingestResponse{Message: "No candidates or document key provided"})
	}

	msg, err := json.Marshal(queue.ExtractMessage{
		Source:      data.Source,
		DocumentKey: data.DocumentKey,
		Entities:    data.Entities,
		Relations:   data.Relations,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ingestResponse{Message: "Internal server error"})
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.ExtractQueue, msg); err != nil {
		logger.Error("Failed to enqueue extraction payload", "source", data.Source, "err", err)
		return c.JSON(http.StatusInternalServerError, ingestResponse{Message: "Failed to enqueue document"})
	}

	logAction(c, "document.ingest", "document", nil, map[string]any{
		"source":    data.Source,
		"entities":  len(data.Entities),
		"relations": len(data.Relations),
	})

	return c.JSON(http.StatusAccepted, ingestResponse{Message: "Document queued for extraction"})
}
