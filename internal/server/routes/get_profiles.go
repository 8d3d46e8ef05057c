package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/pkg/normalize"
	"github.com/regtrace/lineage/pkg/profile"
)

func GetProfilesHandler(c echo.Context) error {
	type response struct {
		GraphID  string            `json:"graph_id"`
		BuildID  int64             `json:"build_id"`
		Profiles []profile.Profile `json:"profiles"`
	}

	keyParam := c.QueryParam("key")
	codeParam := c.QueryParam("product_code")
	nameParam := c.QueryParam("name")

	set := 0
	for _, p := range []string{keyParam, codeParam, nameParam} {
		if p != "" {
			set++
		}
	}
	if set != 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "exactly one of key, product_code or name is required",
		})
	}

	build, ok, err := currentBuild(c)
	if !ok {
		return err
	}

	agg := profile.NewAggregatorFromGraph(build.Graph, build.Mismatches)

	var profiles []profile.Profile
	switch {
	case keyParam != "":
		key, err := normalize.ParseKey(keyParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		p, found := agg.ByKey(key)
		if !found {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown submission " + key.String()})
		}
		profiles = []profile.Profile{p}
	case codeParam != "":
		profiles = agg.ByProductCode(codeParam)
	default:
		profiles = agg.ByName(nameParam)
	}

	return c.JSON(http.StatusOK, response{
		GraphID:  build.GraphID,
		BuildID:  build.BuildID,
		Profiles: profiles,
	})
}
