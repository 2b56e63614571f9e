package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user not found")
	ErrUserExists     = errors.New("a user with this username or email already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrInvalidToken   = core.NewValidationError(errors.New("invalid password reset link"))

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) (int, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  *tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		case ErrUserExists:
			return core.NewValidationError(err)
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.IsActive != nil {
		usr.SetActive(*uu.IsActive)
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.Name = up.Name
	usr.Profile = Profile{
		Country:    up.Country,
		Province:   up.Province,
		PostalCode: up.PostalCode,
		Telephone:  up.Telephone,
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteUsersByID(ctx, ids)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.Active() {
		return ErrNotFound
	}
	svc.mailSvc.SendMessages(svc.passwordResetMail(usr))
	return nil
}

func (svc *service) passwordResetMail(usr User) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"UID":      EncodeUID(usr),
			"Token":    svc.tokens.makeToken(usr),
			"Username": usr.Username,
		},
	}
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return ErrInvalidToken
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return ErrInvalidToken
	}
	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
