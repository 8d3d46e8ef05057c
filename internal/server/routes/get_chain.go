package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/internal/util"
	"github.com/regtrace/lineage/pkg/analytics"
	"github.com/regtrace/lineage/pkg/normalize"
)

func GetChainHandler(c echo.Context) error {
	key, err := normalize.ParseKey(c.Param("key"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	maxDepth := util.GetEnvInt("MAX_CHAIN_DEPTH", analytics.DefaultMaxDepth)
	if raw := c.QueryParam("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "depth must be a positive integer"})
		}
		maxDepth = parsed
	}

	build, ok, err := currentBuild(c)
	if !ok {
		return err
	}

	if _, ok := build.Graph.Entity(key); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown submission " + key.String()})
	}

	return c.JSON(http.StatusOK, analytics.Chain(build.Graph, key, maxDepth))
}
