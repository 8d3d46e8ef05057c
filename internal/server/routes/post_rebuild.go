package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/regtrace/lineage/internal/queue"
	"github.com/regtrace/lineage/internal/server/middleware"
	"github.com/regtrace/lineage/pkg/logger"
)

func PostRebuildHandler(c echo.Context) error {
	type sourceRef struct {
		Source string `json:"source" validate:"required"`
		Path   string `json:"path" validate:"required"`
	}
	type request struct {
		GraphID string      `json:"graph_id"`
		Sources []sourceRef `json:"sources" validate:"required,min=1,dive"`
	}
	type response struct {
		GraphID       string `json:"graph_id"`
		CorrelationID string `json:"correlation_id"`
	}

	req := new(request)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if req.GraphID == "" {
		req.GraphID = DefaultGraphID
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	msg := queue.RebuildMsg{
		Message:       "Rebuild requested",
		CorrelationID: correlationID,
		GraphID:       req.GraphID,
	}
	for _, ref := range req.Sources {
		msg.Sources = append(msg.Sources, queue.SourceRef{
			Source: ref.Source,
			Path:   ref.Path,
		})
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.RebuildQueue, msgBytes); err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	logger.Info(
		"[API] Rebuild enqueued",
		"graph_id", req.GraphID,
		"correlation_id", correlationID,
		"sources", len(req.Sources),
	)

	return c.JSON(http.StatusAccepted, response{
		GraphID:       req.GraphID,
		CorrelationID: correlationID,
	})
}
