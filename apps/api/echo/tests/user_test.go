package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/openschool/campus/apps/api/echo"
	"github.com/openschool/campus/core/user"
	"github.com/openschool/campus/testutil"
)

const (
	msgMissingToken   = "missing or malformed jwt"
	msgPermDenied     = "permission denied"
	msgNotFound       = "not found"
	msgAuthFailed     = "authentication failed"
	msgAccountDisable = "account deactivated"
)

func Test_userApi_login(t *testing.T) {
	env, srv := setup(t)
	student := env.Student(t, "student1", "CA")
	testutil.CreateUser(t, env.UserRepo, "N Dog", "naughty", "ndog@example.com", testutil.Password, user.StudentRoles, false)

	tests := []httpTest{
		{name: "required fields", body: echoapi.LoginRequest{}, wantCode: http.StatusBadRequest, wantField: []string{"username", "password"}},
		{name: "unknown user", body: echoapi.LoginRequest{Username: "nobody", Password: testutil.Password}, wantCode: http.StatusBadRequest, wantError: msgAuthFailed},
		{name: "wrong password", body: echoapi.LoginRequest{Username: "student1", Password: "nope"}, wantCode: http.StatusBadRequest, wantError: msgAuthFailed},
		{name: "deactivated", body: echoapi.LoginRequest{Username: "naughty", Password: testutil.Password}, wantCode: http.StatusForbidden, wantError: msgAccountDisable},
		{name: "by username", body: echoapi.LoginRequest{Username: " Student1 ", Password: testutil.Password}, wantCode: http.StatusOK},
		{name: "by email", body: echoapi.LoginRequest{Username: student.Email, Password: testutil.Password}, wantCode: http.StatusOK},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	check(t, srv, tests)

	rec := serve(t, srv, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "student1", Password: testutil.Password})
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)

	// the token authenticates the user
	rec = serve(t, srv, http.MethodGet, "/v1/users/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	decode(t, rec, &me)
	assert.Equal(t, student.ID, me.ID)
	assert.False(t, me.LastLogin.IsZero())
}

func Test_userApi_auth(t *testing.T) {
	env, srv := setup(t)
	student := env.Student(t, "student1", "CA")
	token := getToken(t, env, student)

	check(t, srv, []httpTest{
		{name: "missing token", method: http.MethodGet, path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantError: msgMissingToken},
		{name: "invalid token", method: http.MethodGet, path: "/v1/users/me", token: token + "x", wantCode: http.StatusUnauthorized},
		{name: "valid token", method: http.MethodGet, path: "/v1/users/me", token: token, wantCode: http.StatusOK},
		{name: "refresh", method: http.MethodPost, path: "/v1/users/token-refresh", token: token, wantCode: http.StatusOK},
	})

	// deleted users lose access even with a valid token
	_, err := env.Users.Delete(context.Background(), student.ID)
	require.NoError(t, err)
	rec := serve(t, srv, http.MethodGet, "/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_userApi_query(t *testing.T) {
	env, srv := setup(t)
	student := env.Student(t, "student1", "CA")
	tutor := env.Tutor(t, "tutor01")
	admin := env.Admin(t, "admin01")

	check(t, srv, []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/users", wantCode: http.StatusUnauthorized},
		{name: "admin required", method: http.MethodGet, path: "/v1/users", token: getToken(t, env, student), wantCode: http.StatusForbidden, wantError: msgPermDenied},
		{name: "roles", method: http.MethodGet, path: "/v1/users/roles", token: getToken(t, env, admin), wantCode: http.StatusOK},
	})

	rec := serve(t, srv, http.MethodGet, "/v1/users?role="+user.RoleTutor, getToken(t, env, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, tutor.ID, users[0].ID)

	rec = serve(t, srv, http.MethodGet, "/v1/users?search=nobody", getToken(t, env, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func Test_userApi_create(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin01", "admin@example.com", testutil.Password, []string{user.RoleAdmin}, true)
	token := getToken(t, env, admin)
	path := "/v1/users/register"

	nu := func(uname string, roles ...string) user.NewUser {
		return user.NewUser{
			Name:            "New " + uname,
			Username:        uname,
			Email:           uname + "@example.com",
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
			Roles:           roles,
		}
	}

	check(t, srv, []httpTest{
		{name: "required fields", method: http.MethodPost, path: path, token: token, body: user.NewUser{}, wantCode: http.StatusBadRequest, wantField: []string{"name", "password"}},
		{name: "role above own", method: http.MethodPost, path: path, token: token, body: nu("owner01", user.RoleAdminOwner), wantCode: http.StatusBadRequest, wantField: []string{"roles"}},
		{name: "created", method: http.MethodPost, path: path, token: token, body: nu("tutor02", user.RoleTutor), wantCode: http.StatusCreated},
		{name: "duplicate", method: http.MethodPost, path: path, token: token, body: nu("tutor02", user.RoleTutor), wantCode: http.StatusBadRequest, wantField: []string{"username"}},
	})

	usr, err := env.Users.GetByUsername(context.Background(), "tutor02")
	require.NoError(t, err)
	assert.True(t, usr.IsTutor())
}

func Test_userApi_detail(t *testing.T) {
	env, srv := setup(t)
	student := env.Student(t, "student1", "CA")
	other := env.Student(t, "student2", "CA")
	admin := env.Admin(t, "admin01")
	stdToken := getToken(t, env, student)
	admToken := getToken(t, env, admin)

	check(t, srv, []httpTest{
		{name: "own", method: http.MethodGet, path: "/v1/users/" + student.ID, token: stdToken, wantCode: http.StatusOK},
		{name: "other user", method: http.MethodGet, path: "/v1/users/" + other.ID, token: stdToken, wantCode: http.StatusNotFound, wantError: msgNotFound},
		{name: "admin", method: http.MethodGet, path: "/v1/users/" + other.ID, token: admToken, wantCode: http.StatusOK},
		{name: "unknown", method: http.MethodGet, path: "/v1/users/nope", token: admToken, wantCode: http.StatusNotFound},
		{
			name: "student cannot change roles", method: http.MethodPut, path: "/v1/users/" + student.ID, token: stdToken,
			body: user.UpdateUser{Roles: user.AdminRoles}, wantCode: http.StatusForbidden,
		},
		{name: "student cannot delete", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: stdToken, wantCode: http.StatusNotFound},
		{name: "no suicide", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: admToken, wantCode: http.StatusForbidden},
		{name: "admin deletes", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: admToken, wantCode: http.StatusNoContent},
	})

	rec := serve(t, srv, http.MethodPut, "/v1/users/"+student.ID, stdToken, user.UpdateUser{Name: "Ada Lovelace"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, "Ada Lovelace", usr.Name)
	assert.Equal(t, student.Username, usr.Username)
}

func Test_userApi_updateProfile(t *testing.T) {
	env, srv := setup(t)
	student := env.Student(t, "student1", "CA")
	token := getToken(t, env, student)
	path := "/v1/users/" + student.ID + "/profile"

	check(t, srv, []httpTest{
		{name: "required", method: http.MethodPut, path: path, token: token, body: user.UpdateProfile{}, wantCode: http.StatusBadRequest, wantField: []string{"name", "country"}},
		{
			name: "postal code and province", method: http.MethodPut, path: path, token: token,
			body: user.UpdateProfile{Name: "Ada", Country: "ca"}, wantCode: http.StatusBadRequest, wantField: []string{"postal_code", "province"},
		},
		{name: "embargoed", method: http.MethodPut, path: path, token: token, body: user.UpdateProfile{Name: "Ada", Country: "KP"}, wantCode: http.StatusBadRequest, wantField: []string{"country"}},
	})

	rec := serve(t, srv, http.MethodPut, path, token, user.UpdateProfile{
		Name:       "Ada",
		Country:    "ca",
		Province:   "ON",
		PostalCode: "k1a 0b1",
		Telephone:  "(613) 555 0100",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, user.Profile{Country: "CA", Province: "ON", PostalCode: "K1A 0B1", Telephone: "613-555-0100"}, usr.Profile)
}

func Test_userApi_passwordReset(t *testing.T) {
	env, srv := setup(t)
	student := env.Student(t, "student1", "CA")

	// unknown emails get the same answer
	for _, email := range []string{"nobody@example.com", student.Email} {
		rec := serve(t, srv, http.MethodPost, "/v1/users/password-reset", "", echoapi.PasswordResetRequest{Email: email})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	data := sent[0].TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)

	newPwd := "N3w!passw0rd"
	check(t, srv, []httpTest{
		{
			name: "required", method: http.MethodPost, path: "/v1/users/password-reset-confirm", body: user.ResetUserPassword{},
			wantCode: http.StatusBadRequest, wantField: []string{"token", "uid", "password", "password_confirm"},
		},
		{
			name: "invalid token", method: http.MethodPost, path: "/v1/users/password-reset-confirm",
			body:     user.ResetUserPassword{UID: uid, Token: "bad", Password: newPwd, PasswordConfirm: newPwd},
			wantCode: http.StatusBadRequest, wantError: "invalid password reset link",
		},
		{
			name: "valid token", method: http.MethodPost, path: "/v1/users/password-reset-confirm",
			body:     user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd},
			wantCode: http.StatusOK,
		},
	})

	rec := serve(t, srv, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "student1", Password: newPwd})
	assert.Equal(t, http.StatusOK, rec.Code)
}
