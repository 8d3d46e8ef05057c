package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/internal/util"
	"github.com/regtrace/lineage/pkg/analytics"
)

func GetCyclesHandler(c echo.Context) error {
	type response struct {
		GraphID string            `json:"graph_id"`
		BuildID int64             `json:"build_id"`
		Cycles  []analytics.Cycle `json:"cycles"`
	}

	build, ok, err := currentBuild(c)
	if !ok {
		return err
	}

	maxDepth := util.GetEnvInt("MAX_CHAIN_DEPTH", analytics.DefaultMaxDepth)

	return c.JSON(http.StatusOK, response{
		GraphID: build.GraphID,
		BuildID: build.BuildID,
		Cycles:  analytics.Cycles(build.Graph, maxDepth),
	})
}
