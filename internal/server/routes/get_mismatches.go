package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/pkg/analytics"
	"github.com/regtrace/lineage/pkg/common"
)

func GetMismatchesHandler(c echo.Context) error {
	type response struct {
		GraphID    string                       `json:"graph_id"`
		BuildID    int64                        `json:"build_id"`
		Mismatches []common.CrossSourceMismatch `json:"mismatches"`
	}

	build, ok, err := currentBuild(c)
	if !ok {
		return err
	}

	return c.JSON(http.StatusOK, response{
		GraphID:    build.GraphID,
		BuildID:    build.BuildID,
		Mismatches: analytics.ValidateSources(build.Graph, build.Mismatches),
	})
}
