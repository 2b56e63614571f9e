package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/country"
)

// Roles are grouped by prefix; a user holding any role of a group belongs to it.
const (
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleTutor          = "tutor:"
	RoleAuditor        = "auditor:" // read-only access to student work
	RoleStudent        = "student:"
)

// Roles lists every role, lowest priority first.
var Roles = []Role{
	{Name: "Student", Value: RoleStudent, priority: 1},
	{Name: "Auditor", Value: RoleAuditor, priority: 6},
	{Name: "Tutor", Value: RoleTutor, priority: 11},
	{Name: "Admin", Value: RoleAdmin, priority: 21},
	{Name: "Admin Principal", Value: RoleAdminPrincipal, priority: 29},
	{Name: "Admin Owner", Value: RoleAdminOwner, priority: 30},
}

var (
	AdminRoles   = rolesWithPrefix(RoleAdmin)
	TutorRoles   = rolesWithPrefix(RoleTutor)
	AuditorRoles = rolesWithPrefix(RoleAuditor)
	StudentRoles = rolesWithPrefix(RoleStudent)
	AllRoles     = rolesWithPrefix("")
)

func rolesWithPrefix(prefix string) []string {
	var values []string
	for _, r := range Roles {
		if strings.HasPrefix(r.Value, prefix) {
			values = append(values, r.Value)
		}
	}
	return values
}

// RolePriority is 0 for unknown roles.
func RolePriority(role string) int {
	for _, r := range Roles {
		if r.Value == role {
			return r.priority
		}
	}
	return 0
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if p := RolePriority(role); p > max {
			max = p
		}
	}
	return max
}

type Role struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	priority int
}

// Profile holds the contact details used for billing and correspondence.
type Profile struct {
	Country    string `json:"country"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Telephone  string `json:"telephone"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     *bool     `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
	Profile
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

// RoleStartsWith reports whether the user holds a role of the prefix group.
func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsTutor() bool   { return u.RoleStartsWith(RoleTutor) }
func (u *User) IsAuditor() bool { return u.RoleStartsWith(RoleAuditor) }
func (u *User) IsStudent() bool { return u.RoleStartsWith(RoleStudent) }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required,bytemax=191"`
	Username        string   `json:"username" validate:"omitempty,min=6,bytemax=191,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email,bytemax=191"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name" validate:"bytemax=191"`
	Username        string   `json:"username" validate:"omitempty,min=6,bytemax=191,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email,bytemax=191"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate keeps the original name, username and email wherever uu leaves them blank.
func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	uu.Name = orDefault(core.CleanString(uu.Name), origUsr.Name)
	uu.Username = orDefault(core.CleanString(uu.Username, true /* lower */), origUsr.Username)
	uu.Email = orDefault(core.CleanString(uu.Email, true /* lower */), origUsr.Email)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// UpdateProfile holds the contact details a user may change on their own account.
type UpdateProfile struct {
	Name       string `json:"name" validate:"required,bytemax=191"`
	Country    string `json:"country" validate:"required,country"`
	Province   string `json:"province" validate:"bytemax=191"`
	PostalCode string `json:"postal_code" validate:"bytemax=191"`
	Telephone  string `json:"telephone" validate:"bytemax=191"`
}

func (up *UpdateProfile) Clean() {
	up.Name = core.CleanString(up.Name)
	up.Country = strings.ToUpper(core.CleanString(up.Country))
	up.Province = core.CleanString(up.Province)
	up.PostalCode = strings.ToUpper(core.CleanString(up.PostalCode))
	up.Telephone = country.FixTelephoneNumber(up.Country, up.Telephone)
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Clean()
	return validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string // [username, email]; a single value is matched against both
}
