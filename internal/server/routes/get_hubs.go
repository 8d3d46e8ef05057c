package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/pkg/analytics"
)

func GetHubsHandler(c echo.Context) error {
	type response struct {
		GraphID string              `json:"graph_id"`
		BuildID int64               `json:"build_id"`
		Hubs    []analytics.HubRank `json:"hubs"`
	}

	topK := 0
	if raw := c.QueryParam("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "top must be a non-negative integer"})
		}
		topK = parsed
	}

	build, ok, err := currentBuild(c)
	if !ok {
		return err
	}

	hubs := build.Hubs
	if topK > 0 && topK < len(hubs) {
		hubs = hubs[:topK]
	}

	return c.JSON(http.StatusOK, response{
		GraphID: build.GraphID,
		BuildID: build.BuildID,
		Hubs:    hubs,
	})
}
