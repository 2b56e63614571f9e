package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openschool/campus/core/country"
)

func registerCountryAPI(g *echo.Group) {
	g.GET("/countries/:code", classifyCountry)
}

// classifyCountry lets forms pick currency, postal code and province rules without duplicating the tables.
func classifyCountry(ctx echo.Context) error {
	c := country.Classify(ctx.Param("code"))
	if !c.Known {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, c)
}
