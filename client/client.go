// Package client is the Go SDK of the campus REST API. Views call the typed services it exposes.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
)

const apiPrefix = "/v1"

// Client holds the HTTP client and the session token shared by every service.
type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	token string

	Users          *UserService
	Courses        *CourseService
	Enrollments    *EnrollmentService
	Units          *UnitService
	PaymentMethods *PaymentMethodService
	Countries      *CountryService
}

func New(conf *core.Config) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(conf.Client.BaseURL+apiPrefix).
			SetTimeout(conf.Client.Timeout).
			SetHeader("Accept", "application/json"),
	}
	c.Users = &UserService{c}
	c.Courses = &CourseService{c}
	c.Enrollments = &EnrollmentService{c}
	c.Units = &UnitService{c}
	c.PaymentMethods = &PaymentMethodService{c}
	c.Countries = &CountryService{c}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken sets the JWT sent with every request. An empty token logs out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// request is a single API call. Authenticated requests carry the session token.
type request struct {
	*resty.Request
	authenticated bool
}

func (c *Client) newRequest(ctx context.Context) request {
	req := request{Request: c.http.R().SetContext(ctx)}
	if tok := c.Token(); tok != "" {
		req.SetAuthToken(tok)
		req.authenticated = true
	}
	return req
}

func (c *Client) send(req request, method, path string) (*resty.Response, error) {
	res, err := req.Execute(method, path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if res.IsError() {
		return res, newError(res, req.authenticated)
	}
	return res, nil
}

// call sends body (when not nil) and decodes the response into result (when not nil).
func (c *Client) call(ctx context.Context, method, path string, body, result interface{}) error {
	req := c.newRequest(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	_, err := c.send(req, method, path)
	return err
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, result)
}

// Error is a failed API call. Fields holds per-field validation messages.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string

	authenticated bool
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func newError(res *resty.Response, authenticated bool) *Error {
	e := &Error{
		Status:        res.StatusCode(),
		Message:       http.StatusText(res.StatusCode()),
		authenticated: authenticated,
	}

	var body map[string]interface{}
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return e
	}
	if msg, ok := body["error"].(string); ok && len(body) == 1 {
		e.Message = msg
		return e
	}
	e.Fields = make(map[string]string, len(body))
	for k, v := range body {
		e.Fields[k] = fmt.Sprint(v)
	}
	return e
}

// IsRefreshError reports whether err means the session expired: the API refused the token of an
// authenticated request. Views redirect to the login page instead of showing the error.
func IsRefreshError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.authenticated && e.Status == http.StatusUnauthorized
}

// SessionExpired is the error of an authenticated request whose token was refused.
func SessionExpired() *Error {
	return &Error{Status: http.StatusUnauthorized, Message: "token expired", authenticated: true}
}

// StatusCode returns the HTTP status of an API error, 0 for transport errors.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// FieldErrors returns the validation messages of an API error, if any.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
