package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
)

const orderingParam = "ordering"

// Ordering is parsed from `?ordering=name,-created_at`; a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// validatable is implemented by every request payload that cleans and validates itself.
type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request body into data, then validates it.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data validatable, name string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %s", name)
	}
	return data.Validate(validate)
}
