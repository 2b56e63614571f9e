package view

import (
	"context"

	"github.com/pkg/errors"

	"github.com/openschool/campus/client"
	"github.com/openschool/campus/core"
)

// Navigator moves the user between screens.
type Navigator interface {
	RedirectToLogin()
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func()

func (f NavigatorFunc) RedirectToLogin() { f() }

// Failure is a service error as a view shows it.
type Failure struct {
	Status  int
	Message string
	Fields  map[string]string
}

const (
	msgUnexpected    = "An unexpected error occurred. Please try again."
	msgCorrectErrors = "Please correct the errors below."
)

// NewFailure extracts what a view shows of err.
func NewFailure(err error) Failure {
	f := Failure{Status: client.StatusCode(err), Fields: client.FieldErrors(err)}
	var cerr *client.Error
	switch {
	case len(f.Fields) > 0:
		f.Message = msgCorrectErrors
	case errors.As(err, &cerr) && cerr.Message != "":
		f.Message = cerr.Message
	default:
		f.Message = msgUnexpected
	}
	return f
}

// HandleError routes a failed service call. An expired session redirects to login without an
// inline error; any other error is reported through failed. Errors caused by the view closing
// are dropped.
func HandleError(ctx context.Context, err error, nav Navigator, failed func(Failure)) {
	if err == nil {
		return
	}
	if ctx.Err() != nil || errors.Cause(err) == context.Canceled {
		return
	}
	if client.IsRefreshError(err) {
		if nav != nil {
			nav.RedirectToLogin()
		}
		return
	}
	failed(NewFailure(err))
}

// Validate runs every field rule and returns the messages of the failing fields.
func Validate(rules map[string]func() string) map[string]string {
	msgs := make(map[string]string)
	for field, rule := range rules {
		if msg := rule(); msg != "" {
			msgs[field] = msg
		}
	}
	return msgs
}

// TextRule checks a text field against the shared byte-length rules.
func TextRule(s string, max int, required bool) func() string {
	return func() string { return core.TextMessage(s, max, required) }
}
