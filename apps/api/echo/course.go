package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core/course"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *courseApi) {
	cg := g.Group("/courses", jwt)
	cg.GET("", api.listCourses)
	cg.POST("", api.createCourse, adminMiddleware())
	cg.GET("/:id", api.getCourse)
	cg.GET("/:id/unit-templates", api.listUnitTemplates)
	cg.POST("/:id/unit-templates", api.createUnitTemplate, adminMiddleware())
	cg.GET("/:id/materials", api.listMaterials)
	cg.POST("/:id/materials", api.createMaterial, adminMiddleware())

	ug := g.Group("/unit-templates", jwt)
	ug.GET("/:id", api.getUnitTemplate)
	ug.PUT("/:id", api.updateUnitTemplate, adminMiddleware())
	ug.DELETE("/:id", api.deleteUnitTemplate, adminMiddleware())
}

func (api *courseApi) listCourses(ctx echo.Context) error {
	courses, err := api.svc.ListCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := bindAndValidate(ctx, api.validate, &data, "NewCourse"); err != nil {
		return err
	}
	c, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) getCourse(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) listUnitTemplates(ctx echo.Context) error {
	uts, err := api.svc.ListUnitTemplates(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing unit templates")
	}
	if uts == nil {
		uts = []course.UnitTemplate{}
	}
	return ctx.JSON(http.StatusOK, uts)
}

func (api *courseApi) createUnitTemplate(ctx echo.Context) error {
	var data course.UnitTemplateInput
	if err := bindAndValidate(ctx, api.validate, &data, "UnitTemplateInput"); err != nil {
		return err
	}
	ut, err := api.svc.CreateUnitTemplate(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating unit template")
	}
	return ctx.JSON(http.StatusCreated, ut)
}

func (api *courseApi) getUnitTemplate(ctx echo.Context) error {
	ut, err := api.svc.GetUnitTemplate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ut)
}

func (api *courseApi) updateUnitTemplate(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	ut, err := api.svc.GetUnitTemplate(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data course.UnitTemplateInput
	if err := bindAndValidate(ctx, api.validate, &data, "UnitTemplateInput"); err != nil {
		return err
	}
	ut, err = api.svc.UpdateUnitTemplate(rctx, ut, data)
	if err != nil {
		return errors.Wrap(err, "updating unit template")
	}
	return ctx.JSON(http.StatusOK, ut)
}

func (api *courseApi) deleteUnitTemplate(ctx echo.Context) error {
	if err := api.svc.DeleteUnitTemplate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting unit template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) listMaterials(ctx echo.Context) error {
	materials, err := api.svc.ListMaterials(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing materials")
	}
	if materials == nil {
		materials = []course.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *courseApi) createMaterial(ctx echo.Context) error {
	var data course.NewMaterial
	if err := bindAndValidate(ctx, api.validate, &data, "NewMaterial"); err != nil {
		return err
	}
	m, err := api.svc.CreateMaterial(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, m)
}
