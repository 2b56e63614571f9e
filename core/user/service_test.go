package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
	"github.com/openschool/campus/testutil"
)

func fieldNames(err error) []string {
	var names []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			names = append(names, fe.Field())
		}
	case *core.ValidationError:
		for _, fld := range e.Fields {
			names = append(names, fld.Field)
		}
	}
	return names
}

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	testutil.CreateUser(t, env.UserRepo, "Taken", "taken_user", "taken@example.com", testutil.Password, user.StudentRoles, true)

	tests := []struct {
		name string
		nu   user.NewUser
		want []string
	}{
		{
			name: "valid",
			nu:   user.NewUser{Name: "Ada Lovelace", Username: "AdaLovelace", Email: "ADA@example.com", Password: "Engine#1843", PasswordConfirm: "Engine#1843", Roles: user.StudentRoles},
		},
		{
			name: "no username nor email",
			nu:   user.NewUser{Name: "Ada", Password: "Engine#1843", PasswordConfirm: "Engine#1843"},
			want: []string{"username", "email"},
		},
		{
			name: "weak password",
			nu:   user.NewUser{Name: "Ada", Email: "ada@example.com", Password: "engine1843", PasswordConfirm: "engine1843"},
			want: []string{"password"},
		},
		{
			name: "mismatched confirmation",
			nu:   user.NewUser{Name: "Ada", Email: "ada@example.com", Password: "Engine#1843", PasswordConfirm: "Engine#1844"},
			want: []string{"password_confirm"},
		},
		{
			name: "unknown role",
			nu:   user.NewUser{Name: "Ada", Email: "ada@example.com", Password: "Engine#1843", PasswordConfirm: "Engine#1843", Roles: []string{"janitor:"}},
			want: []string{"roles"},
		},
		{
			name: "taken email",
			nu:   user.NewUser{Name: "Ada", Email: "Taken@Example.com", Password: "Engine#1843", PasswordConfirm: "Engine#1843"},
			want: []string{"email"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, env.Validate, env.Users)
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, "adalovelace", tt.nu.Username)
				assert.Equal(t, "ada@example.com", tt.nu.Email)
				return
			}
			assert.ElementsMatch(t, tt.want, fieldNames(err))
		})
	}
}

func TestUpdateProfile_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name string
		up   user.UpdateProfile
		want []string
	}{
		{name: "canada", up: user.UpdateProfile{Name: "Ada", Country: "ca", Province: "ON", PostalCode: "k1a 0b1", Telephone: "1 (613) 555-0100"}},
		{name: "hong kong needs no postal code", up: user.UpdateProfile{Name: "Ada", Country: "HK"}},
		{name: "unknown country", up: user.UpdateProfile{Name: "Ada", Country: "ZZ"}, want: []string{"country"}},
		{name: "embargoed", up: user.UpdateProfile{Name: "Ada", Country: "KP"}, want: []string{"country"}},
		{name: "missing province and postal code", up: user.UpdateProfile{Name: "Ada", Country: "US"}, want: []string{"province", "postal_code"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.up.Validate(validate)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.want, fieldNames(err))
		})
	}

	up := user.UpdateProfile{Name: "Ada", Country: "ca", Province: "ON", PostalCode: "k1a 0b1", Telephone: "1 (613) 555-0100"}
	require.NoError(t, up.Validate(validate))
	assert.Equal(t, "CA", up.Country)
	assert.Equal(t, "K1A 0B1", up.PostalCode)
	assert.Equal(t, "613-555-0100", up.Telephone)
}

func TestService_CreateAndQuery(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	usr, err := env.Users.Create(ctx, user.NewUser{Name: "Ada", Username: "adalovelace", Email: "ada@example.com", Password: "Engine#1843", Roles: user.TutorRoles})
	require.NoError(t, err)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("Engine#1843"))

	env.Student(t, "student1", "CA")

	tutors, err := env.Users.Query(ctx, &user.QueryFilter{Roles: user.TutorRoles}, nil)
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.Equal(t, usr.ID, tutors[0].ID)

	got, err := env.Users.GetByUsernameOrEmail(ctx, " ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	n, err := env.Users.Delete(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = env.Users.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	usr := env.Student(t, "student1", "CA")

	usr, err := env.Users.UpdateProfile(ctx, usr, user.UpdateProfile{Name: "Ada L.", Country: "GB", PostalCode: "SW1A 1AA"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", usr.Name)
	assert.Equal(t, user.Profile{Country: "GB", PostalCode: "SW1A 1AA"}, usr.Profile)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	usr := env.Student(t, "student1", "CA")

	assert.Equal(t, user.ErrNotFound, errors.Cause(env.Users.RequestPasswordReset(ctx, "nobody@example.com")))

	require.NoError(t, env.Users.RequestPasswordReset(ctx, usr.Email))
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].TemplateName)
	data, ok := sent[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	uid, token := data["UID"].(string), data["Token"].(string)
	assert.Contains(t, sent[0].TextContent, token)

	err := env.Users.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token", Password: "N3w!password"})
	assert.Equal(t, user.ErrInvalidToken, err)

	require.NoError(t, env.Users.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "N3w!password"}))
	usr, err = env.Users.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("N3w!password"))

	// tokens are single use: the password hash changed
	err = env.Users.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "An0ther!pass"})
	assert.Equal(t, user.ErrInvalidToken, err)
}
