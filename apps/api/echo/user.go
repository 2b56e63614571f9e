package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

const msgRoleCeiling = "not enough rights to set these roles"

type userApi struct {
	svc        user.Service
	auth       *authenticator
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *userApi) {
	ug := g.Group("/users")
	ug.POST("/login", api.login)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.GET("/roles", api.queryRoles, adminMiddleware())
	ag.POST("/register", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())

	dg := ag.Group("/:id", userMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.PUT("/profile", api.updateProfile)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// checkRoleCeiling refuses roles above the highest role of the requester.
func checkRoleCeiling(requester user.User, roles []string) error {
	if user.MaxRolePriority(roles) > user.MaxRolePriority(requester.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: msgRoleCeiling})
	}
	return nil
}

// notSelf refuses any of ids being the requester's own.
func notSelf(requester user.User, ids ...string) error {
	for _, id := range ids {
		if id == requester.ID {
			return errHttpForbidden
		}
	}
	return nil
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}
	requester, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := checkRoleCeiling(requester, data.Roles); err != nil {
		return err
	}

	usr, err := api.svc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindAndValidate(ctx, api.validate, &data, "LoginRequest"); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx, data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.auth.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindAndValidate(ctx, api.validate, &data, "PasswordResetRequest"); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := contextDetailUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := contextDetailUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	requester, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// account fields are managed by admins
	adminOnly := data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != ""
	if adminOnly && !requester.IsAdmin() {
		return errHttpForbidden
	}

	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, usr, api.validate, api.svc); err != nil {
		return err
	}
	if err := checkRoleCeiling(requester, data.Roles); err != nil {
		return err
	}

	usr, err = api.svc.Update(rctx, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	usr, err := contextDetailUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateProfile
	if err := bindAndValidate(ctx, api.validate, &data, "UpdateProfile"); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := contextDetailUser(ctx)
	if err != nil {
		return err
	}
	requester, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := notSelf(requester, usr.ID); err != nil {
		return err
	}
	if checkRoleCeiling(requester, usr.Roles) != nil {
		return errHttpForbidden
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	requester, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := notSelf(requester, query.IDs...); err != nil {
		return err
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
