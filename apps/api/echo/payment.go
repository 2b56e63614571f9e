package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/core/user"
)

type paymentApi struct {
	svc      payment.Service
	users    user.Service
	validate *validator.Validate
}

// Payment methods belong to the authenticated student; another user's method is never found.
func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *paymentApi) {
	pg := g.Group("/payment-methods", jwt, studentMiddleware())
	pg.GET("", api.list)
	pg.POST("", api.insert)
	pg.PUT("/:id/primary", api.setPrimary)
	pg.DELETE("/:id", api.disable)
}

func (api *paymentApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	methods, err := api.svc.List(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "listing payment methods")
	}
	if methods == nil {
		methods = []payment.Method{}
	}
	return ctx.JSON(http.StatusOK, methods)
}

func (api *paymentApi) insert(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data payment.NewMethod
	if err := bindAndValidate(ctx, api.validate, &data, "NewMethod"); err != nil {
		return err
	}
	m, err := api.svc.Insert(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "inserting payment method")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *paymentApi) setPrimary(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	m, err := api.svc.SetPrimary(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "setting primary payment method")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *paymentApi) disable(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	m, err := api.svc.Disable(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "disabling payment method")
	}
	return ctx.JSON(http.StatusOK, m)
}
