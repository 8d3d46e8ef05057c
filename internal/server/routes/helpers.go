package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/internal/server/middleware"
	"github.com/regtrace/lineage/pkg/store"
	graphstorage "github.com/regtrace/lineage/pkg/store/pgx"
)

// DefaultGraphID is used when a request does not name a graph. Most
// deployments reconcile a single corpus.
const DefaultGraphID = "default"

func graphID(c echo.Context) string {
	if id := c.QueryParam("graph_id"); id != "" {
		return id
	}
	return DefaultGraphID
}

// currentBuild loads the latest stored build of the requested graph. The
// bool reports whether the caller should continue; when false the error
// response has already been written.
func currentBuild(c echo.Context) (*store.StoredBuild, bool, error) {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	build, err := app.Builds.Get(ctx, app.Storage, graphID(c))
	if err != nil {
		if errors.Is(err, graphstorage.ErrNoBuild) {
			return nil, false, c.JSON(http.StatusNotFound, map[string]string{"error": "no build stored for graph"})
		}
		return nil, false, c.String(http.StatusInternalServerError, err.Error())
	}
	return build, true, nil
}
