package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/pkg/common"
)

func GetEntitiesHandler(c echo.Context) error {
	type response struct {
		GraphID   string           `json:"graph_id"`
		BuildID   int64            `json:"build_id"`
		CreatedAt time.Time        `json:"created_at"`
		Entities  []*common.Entity `json:"entities"`
	}

	build, ok, err := currentBuild(c)
	if !ok {
		return err
	}

	g := build.Graph
	entities := make([]*common.Entity, 0, g.NodeCount())
	for _, key := range g.Keys() {
		if entity, ok := g.EntityByString(key); ok {
			entities = append(entities, entity)
		}
	}

	return c.JSON(http.StatusOK, response{
		GraphID:   build.GraphID,
		BuildID:   build.BuildID,
		CreatedAt: build.CreatedAt,
		Entities:  entities,
	})
}
