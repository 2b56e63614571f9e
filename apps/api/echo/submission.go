package echoapi

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
)

const uploadFormField = "file"

type submissionApi struct {
	svc           submission.Service
	enrollments   enrollment.Service
	users         user.Service
	maxUploadSize int64
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *submissionApi) {
	// units of one enrollment
	eg := g.Group("/enrollments/:id/units", jwt, enrollmentMiddleware(api.enrollments))
	eg.GET("", api.listForEnrollment)
	eg.POST("", api.initialize, ownerMiddleware())

	ug := g.Group("/units", jwt)
	ug.GET("", api.query, claimsMiddleware(Claims.IsStaff))

	// empty-prefix subgroups would shadow the routes of dg, so middleware is set per route
	dg := ug.Group("/:id", unitMiddleware(api.svc, api.enrollments))
	dg.GET("", api.retrieve)
	dg.GET("/upload-slots/:slotID/file", api.downloadFile)

	// student
	owner := ownerMiddleware()
	// leave room for the multipart envelope
	bodyLimit := middleware.BodyLimit(fmt.Sprintf("%dB", api.maxUploadSize+1<<20))
	dg.PUT("/text-boxes/:boxID", api.saveTextBox, owner)
	dg.PUT("/upload-slots/:slotID/file", api.uploadFile, owner, bodyLimit)
	dg.DELETE("/upload-slots/:slotID/file", api.deleteFile, owner)
	dg.POST("/submit", api.submit, owner)
	dg.POST("/skip", api.skip, owner)

	// tutor
	tutor := tutorMiddleware()
	dg.PATCH("/text-boxes/:boxID/mark", api.setTextBoxMark, tutor)
	dg.PATCH("/upload-slots/:slotID/mark", api.setUploadSlotMark, tutor)
	dg.POST("/close", api.close, tutor)
	dg.POST("/return", api.returnUnit, adminMiddleware())
}

func (api *submissionApi) listForEnrollment(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	return api.list(ctx, submission.QueryFilter{EnrollmentID: enr.ID})
}

// query lists the units of every student; tutors use it to find units waiting to be marked.
func (api *submissionApi) query(ctx echo.Context) error {
	var filter submission.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	return api.list(ctx, filter)
}

func (api *submissionApi) list(ctx echo.Context, filter submission.QueryFilter) error {
	subs, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing units")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) initialize(ctx echo.Context) error {
	enr, err := contextEnrollment(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.Initialize(ctx.Request().Context(), enr)
	if err != nil {
		return errors.Wrap(err, "initializing unit")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, err := contextUnit(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) saveTextBox(ctx echo.Context) error {
	var data TextBoxRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TextBoxRequest")
	}
	sub, err := api.svc.SaveTextBox(ctx.Request().Context(), ctx.Param("id"), ctx.Param("boxID"), data.Text)
	if err != nil {
		return errors.Wrap(err, "saving text box")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) uploadFile(ctx echo.Context) error {
	fh, err := ctx.FormFile(uploadFormField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: uploadFormField, Error: core.MsgRequired})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening multipart file")
	}
	defer f.Close()

	sub, err := api.svc.UploadFile(ctx.Request().Context(), ctx.Param("id"), ctx.Param("slotID"), submission.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  f,
	})
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) downloadFile(ctx echo.Context) error {
	sub, err := contextUnit(ctx)
	if err != nil {
		return err
	}
	file, rc, err := api.svc.OpenFile(ctx.Request().Context(), sub, ctx.Param("slotID"))
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	return ctx.Stream(http.StatusOK, file.MimeType, rc)
}

func (api *submissionApi) deleteFile(ctx echo.Context) error {
	sub, err := api.svc.DeleteFile(ctx.Request().Context(), ctx.Param("id"), ctx.Param("slotID"))
	if err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) submit(ctx echo.Context) error {
	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "submitting unit")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) skip(ctx echo.Context) error {
	sub, err := api.svc.Skip(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "skipping unit")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) setTextBoxMark(ctx echo.Context) error {
	var data submission.MarkPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkPatch")
	}
	sub, err := api.svc.SetTextBoxMark(ctx.Request().Context(), ctx.Param("id"), ctx.Param("boxID"), data)
	if err != nil {
		return errors.Wrap(err, "marking text box")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) setUploadSlotMark(ctx echo.Context) error {
	var data submission.MarkPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkPatch")
	}
	sub, err := api.svc.SetUploadSlotMark(ctx.Request().Context(), ctx.Param("id"), ctx.Param("slotID"), data)
	if err != nil {
		return errors.Wrap(err, "marking upload slot")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) close(ctx echo.Context) error {
	tutor, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sub, err := api.svc.Close(ctx.Request().Context(), ctx.Param("id"), tutor)
	if err != nil {
		return errors.Wrap(err, "closing unit")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) returnUnit(ctx echo.Context) error {
	var data ReturnRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReturnRequest")
	}
	sub, err := api.svc.Return(ctx.Request().Context(), ctx.Param("id"), data.AdminComment)
	if err != nil {
		return errors.Wrap(err, "returning unit")
	}
	return ctx.JSON(http.StatusOK, sub)
}

type (
	TextBoxRequest struct {
		Text string `json:"text"`
	}

	ReturnRequest struct {
		AdminComment string `json:"admin_comment"`
	}
)
