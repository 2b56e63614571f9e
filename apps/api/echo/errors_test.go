package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/openschool/campus/core"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
		wantOk   bool
	}{
		{name: "http error", err: errHttpForbidden, wantCode: http.StatusForbidden, wantBody: "permission denied", wantOk: true},
		{name: "wrapped http error", err: &echo.HTTPError{Code: http.StatusBadRequest, Message: "outer", Internal: errHttpNotFound}, wantCode: http.StatusNotFound, wantBody: "not found", wantOk: true},
		{name: "domain error", err: errors.Wrap(core.NewConflictError("unit is closed"), "saving mark"), wantCode: http.StatusConflict, wantBody: "unit is closed", wantOk: true},
		{name: "field errors", err: core.NewValidationError(nil, core.FieldError{Field: "mark", Error: "too high"}), wantCode: http.StatusBadRequest, wantBody: map[string]string{"mark": "too high"}, wantOk: true},
		{name: "validation message", err: core.NewValidationError(errors.New("invalid file")), wantCode: http.StatusBadRequest, wantBody: "invalid file", wantOk: true},
		{name: "server error", err: errors.New("connection refused"), wantCode: http.StatusInternalServerError, wantBody: "Internal Server Error", wantOk: false},
		{name: "shutdown", err: core.NewShutdownError("integrity issue"), wantCode: http.StatusInternalServerError, wantBody: "Internal Server Error", wantOk: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body, ok := errorResponse(tc.err, nil)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantBody, body)
			assert.Equal(t, tc.wantOk, ok)
		})
	}
}
