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

func DeleteGraphHandler(c echo.Context) error {
	type response struct {
		GraphID       string `json:"graph_id"`
		CorrelationID string `json:"correlation_id"`
	}

	id := graphID(c)

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	msgBytes, err := json.Marshal(queue.DeleteMsg{
		Message:       "Delete requested",
		CorrelationID: correlationID,
		GraphID:       id,
	})
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.DeleteQueue, msgBytes); err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	app.Builds.Forget(id)

	logger.Info("[API] Graph delete enqueued", "graph_id", id, "correlation_id", correlationID)

	return c.JSON(http.StatusAccepted, response{
		GraphID:       id,
		CorrelationID: correlationID,
	})
}
