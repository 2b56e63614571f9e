package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
)

const (
	contextDetailUserKey = "detailUser"
	contextEnrollmentKey = "enrollment"
	contextUnitKey       = "unit"
)

// claimsMiddleware lets the request through when allow accepts the token claims.
func claimsMiddleware(allow func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allow(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// adminMiddleware requires an admin holding one of roles, any admin when roles is empty.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return claimsMiddleware(func(c Claims) bool { return c.IsAdmin })(func(ctx echo.Context) error {
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		})
	}
}

func tutorMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsTutor || c.IsAdmin })
}

func studentMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsStudent })
}

// userMiddleware loads the user identified by the `id` path param.
// Users only see themselves; admins see everyone.
func userMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			id := ctx.Param("id")
			if id != claims.Subject && !claims.IsAdmin {
				return errHttpNotFound
			}
			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if core.IsNotFound(err) {
				return errHttpNotFound
			}
			if err != nil {
				return errors.Wrap(err, "getting user")
			}
			ctx.Set(contextDetailUserKey, usr)
			return next(ctx)
		}
	}
}

// enrollmentMiddleware loads the enrollment identified by the `id` path param.
// Students only see their own enrollments; staff see all of them.
func enrollmentMiddleware(svc enrollment.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			enr, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			if enr.StudentID != claims.Subject && !claims.IsStaff() {
				return enrollment.ErrNotFound
			}
			ctx.Set(contextEnrollmentKey, enr)
			return next(ctx)
		}
	}
}

// unitMiddleware loads the submission identified by the `id` path param along with its enrollment.
func unitMiddleware(subs submission.Service, enrs enrollment.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			rctx := ctx.Request().Context()
			sub, err := subs.Get(rctx, ctx.Param("id"))
			if err != nil {
				return err
			}
			enr, err := enrs.Get(rctx, sub.EnrollmentID)
			if err != nil {
				return errors.Wrap(err, "getting enrollment")
			}
			if enr.StudentID != claims.Subject && !claims.IsStaff() {
				return submission.ErrNotFound
			}
			ctx.Set(contextUnitKey, sub)
			ctx.Set(contextEnrollmentKey, enr)
			return next(ctx)
		}
	}
}

// ownerMiddleware restricts an enrollment (or unit) route to the enrolled student.
func ownerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			enr, err := contextEnrollment(ctx)
			if err != nil {
				return err
			}
			if enr.StudentID != claims.Subject {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func contextEnrollment(ctx echo.Context) (enrollment.Enrollment, error) {
	enr, ok := ctx.Get(contextEnrollmentKey).(enrollment.Enrollment)
	if !ok {
		return enrollment.Enrollment{}, errors.New("enrollment not found in echo.Context")
	}
	return enr, nil
}

func contextUnit(ctx echo.Context) (submission.Submission, error) {
	sub, ok := ctx.Get(contextUnitKey).(submission.Submission)
	if !ok {
		return submission.Submission{}, errors.New("unit not found in echo.Context")
	}
	return sub, nil
}

func contextDetailUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextDetailUserKey).(user.User)
	if !ok {
		return user.User{}, errors.New("user not found in echo.Context")
	}
	return usr, nil
}
