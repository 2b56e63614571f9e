package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/testutil"
)

func Test_courseApi_courses(t *testing.T) {
	env, srv := setup(t)
	fix := env.NewFixture(t)
	admin := env.Admin(t, "admin01")
	admToken := getToken(t, env, admin)
	stdToken := getToken(t, env, fix.Student)

	check(t, srv, []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/courses", wantCode: http.StatusUnauthorized},
		{name: "list", method: http.MethodGet, path: "/v1/courses", token: stdToken, wantCode: http.StatusOK},
		{name: "get", method: http.MethodGet, path: "/v1/courses/" + fix.Course.ID, token: stdToken, wantCode: http.StatusOK},
		{name: "unknown", method: http.MethodGet, path: "/v1/courses/nope", token: stdToken, wantCode: http.StatusNotFound, wantError: "course not found"},
		{name: "admin required", method: http.MethodPost, path: "/v1/courses", token: stdToken, body: course.NewCourse{Code: "ART100", Name: "Art"}, wantCode: http.StatusForbidden},
		{name: "required", method: http.MethodPost, path: "/v1/courses", token: admToken, body: course.NewCourse{}, wantCode: http.StatusBadRequest, wantField: []string{"code", "name"}},
		{name: "duplicate code", method: http.MethodPost, path: "/v1/courses", token: admToken, body: course.NewCourse{Code: "dsn101", Name: "Again"}, wantCode: http.StatusBadRequest, wantField: []string{"code"}},
		{name: "created", method: http.MethodPost, path: "/v1/courses", token: admToken, body: course.NewCourse{Code: "art100", Name: "Art"}, wantCode: http.StatusCreated},
	})

	rec := serve(t, srv, http.MethodGet, "/v1/courses", stdToken, nil)
	var courses []course.Course
	decode(t, rec, &courses)
	assert.Len(t, courses, 2)
}

func Test_courseApi_unitTemplates(t *testing.T) {
	env, srv := setup(t)
	fix := env.NewFixture(t)
	admToken := getToken(t, env, env.Admin(t, "admin01"))
	stdToken := getToken(t, env, fix.Student)
	path := "/v1/courses/" + fix.Course.ID + "/unit-templates"

	unitC := testutil.UnitBInput()
	unitC.Letter = "c"
	unitC.Order = 3

	badLetter := testutil.UnitBInput()
	badLetter.Letter = "12"
	badLetter.Order = 200

	dupLetter := testutil.UnitBInput()
	dupLetter.Letter = "a"

	check(t, srv, []httpTest{
		{name: "list", method: http.MethodGet, path: path, token: stdToken, wantCode: http.StatusOK},
		{name: "admin required", method: http.MethodPost, path: path, token: stdToken, body: unitC, wantCode: http.StatusForbidden},
		{name: "invalid letter and order", method: http.MethodPost, path: path, token: admToken, body: badLetter, wantCode: http.StatusBadRequest, wantField: []string{"letter", "order"}},
		{name: "letter taken", method: http.MethodPost, path: path, token: admToken, body: dupLetter, wantCode: http.StatusBadRequest, wantField: []string{"letter"}},
		{name: "unknown course", method: http.MethodPost, path: "/v1/courses/nope/unit-templates", token: admToken, body: unitC, wantCode: http.StatusNotFound},
	})

	rec := serve(t, srv, http.MethodPost, path, admToken, unitC)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ut course.UnitTemplate
	decode(t, rec, &ut)
	assert.Equal(t, "C", ut.Letter)
	require.NotEmpty(t, ut.Assignments)
	assert.NotEmpty(t, ut.Assignments[0].ID)

	var flds map[string]string
	badLetter.Order = 1
	rec = serve(t, srv, http.MethodPut, "/v1/unit-templates/"+ut.ID, admToken, badLetter)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &flds)
	assert.Equal(t, map[string]string{"letter": core.MsgUnitLetterTooLong}, flds)

	unitC.Title = "Renamed"
	unitC.Assignments = ut.Assignments
	rec = serve(t, srv, http.MethodPut, "/v1/unit-templates/"+ut.ID, admToken, unitC)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated course.UnitTemplate
	decode(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, ut.Assignments[0].ID, updated.Assignments[0].ID)

	check(t, srv, []httpTest{
		{name: "get", method: http.MethodGet, path: "/v1/unit-templates/" + ut.ID, token: stdToken, wantCode: http.StatusOK},
		{name: "delete", method: http.MethodDelete, path: "/v1/unit-templates/" + ut.ID, token: admToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/v1/unit-templates/" + ut.ID, token: stdToken, wantCode: http.StatusNotFound},
	})
}

func Test_courseApi_materials(t *testing.T) {
	env, srv := setup(t)
	fix := env.NewFixture(t)
	admToken := getToken(t, env, env.Admin(t, "admin01"))
	path := "/v1/courses/" + fix.Course.ID + "/materials"

	check(t, srv, []httpTest{
		{name: "invalid type", method: http.MethodPost, path: path, token: admToken, body: course.NewMaterial{Type: "book", Title: "X"}, wantCode: http.StatusBadRequest, wantField: []string{"type"}},
		{name: "created", method: http.MethodPost, path: path, token: admToken, body: course.NewMaterial{UnitLetter: "b", Type: course.MaterialVideo, Title: "Tour", Order: 1}, wantCode: http.StatusCreated},
	})

	rec := serve(t, srv, http.MethodGet, path, getToken(t, env, fix.Student), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var materials []course.Material
	decode(t, rec, &materials)
	assert.Len(t, materials, 3)
}
