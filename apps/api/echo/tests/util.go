package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/openschool/campus/apps/api/echo"
	"github.com/openschool/campus/core/user"
	"github.com/openschool/campus/testutil"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name      string
	method    string
	path      string
	body      interface{}
	token     string
	wantCode  int
	wantError string   // message of an `{"error": ...}` response
	wantField []string // keys of a field validation response
}

// setup returns a server backed by a fresh in-memory environment.
func setup(t *testing.T) (*testutil.Env, *echoapi.Server) {
	env := testutil.NewEnv(t)
	srv := echoapi.NewServer(echoapi.Options{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		DisableReqLogs: true,
		Users:          env.Users,
		Courses:        env.Courses,
		Enrollments:    env.Enrollments,
		Submissions:    env.Submissions,
		Payments:       env.Payments,
	})
	return env, srv
}

func getToken(t *testing.T, env *testutil.Env, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.Conf, echoapi.GetUserClaims(env.Conf, usr))
	require.NoError(t, err)
	return token
}

func newAuthRequest(t *testing.T, method, path, token string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func serve(t *testing.T, srv http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(t, method, path, token, body)
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// check runs the table against srv, comparing status codes and error payloads.
func check(t *testing.T, srv http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, srv, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantError != "" {
				var herr httpErr
				decode(t, rec, &herr)
				require.Equal(t, tt.wantError, herr.Error)
			}
			if len(tt.wantField) > 0 {
				var flds map[string]string
				decode(t, rec, &flds)
				for _, f := range tt.wantField {
					require.Contains(t, flds, f)
				}
			}
		})
	}
}
