package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/scorm"
)

type enrollmentApi struct {
	svc      enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *enrollmentApi) {
	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.create, adminMiddleware())
	eg.GET("", api.list)

	dg := eg.Group("/:id", enrollmentMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("/hold", api.setHold, adminMiddleware())
	dg.GET("/progress", api.progress)
	dg.GET("/material-completions", api.listMaterialCompletions)

	// the student's own course work
	og := dg.Group("/materials/:materialID", ownerMiddleware())
	og.PUT("/completion", api.completeMaterial)
	og.DELETE("/completion", api.uncompleteMaterial)
	og.GET("/data", api.getMaterialData)
	og.PUT("/data", api.updateMaterialData)
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := bindAndValidate(ctx, api.validate, &data, "NewEnrollment"); err != nil {
		return err
	}
	enr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// list returns the enrollments of the authenticated student; staff may filter all enrollments.
func (api *enrollmentApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var filter enrollment.QueryFilter
	if claims.IsStaff() {
		if err := ctx.Bind(&filter); err != nil {
			return errors.Wrap(err, "binding to QueryFilter")
		}
	} else {
		filter = enrollment.QueryFilter{StudentID: claims.Subject}
	}

	enrs, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) setHold(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	var data HoldRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HoldRequest")
	}
	enr, err = api.svc.SetHold(ctx.Request().Context(), enr, data.OnHold)
	if err != nil {
		return errors.Wrap(err, "setting hold")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) progress(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Progress(ctx.Request().Context(), enr)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *enrollmentApi) listMaterialCompletions(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	mcs, err := api.svc.ListMaterialCompletions(ctx.Request().Context(), enr)
	if err != nil {
		return errors.Wrap(err, "listing material completions")
	}
	if mcs == nil {
		mcs = []enrollment.MaterialCompletion{}
	}
	return ctx.JSON(http.StatusOK, mcs)
}

func (api *enrollmentApi) completeMaterial(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.CompleteMaterial(ctx.Request().Context(), enr, ctx.Param("materialID")); err != nil {
		return errors.Wrap(err, "completing material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) uncompleteMaterial(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.UncompleteMaterial(ctx.Request().Context(), enr, ctx.Param("materialID")); err != nil {
		return errors.Wrap(err, "uncompleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) getMaterialData(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	md, err := api.svc.GetMaterialData(ctx.Request().Context(), enr, ctx.Param("materialID"))
	if err != nil {
		return errors.Wrap(err, "getting material data")
	}
	return ctx.JSON(http.StatusOK, md)
}

func (api *enrollmentApi) updateMaterialData(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	var data MaterialDataRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MaterialDataRequest")
	}
	md, err := api.svc.UpdateMaterialData(ctx.Request().Context(), enr, ctx.Param("materialID"), data.Data)
	if err != nil {
		return errors.Wrap(err, "updating material data")
	}
	return ctx.JSON(http.StatusOK, md)
}

type (
	HoldRequest struct {
		OnHold bool `json:"on_hold"`
	}

	MaterialDataRequest struct {
		Data scorm.Data `json:"data"`
	}
)
