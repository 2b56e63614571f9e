package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openschool/campus/core/user"
)

type UserService struct{ c *Client }

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	tokenResponse struct {
		Token string `json:"token"`
	}

	emailRequest struct {
		Email string `json:"email"`
	}
)

// Login authenticates the client. Later requests carry the returned token.
func (s *UserService) Login(ctx context.Context, uname, pwd string) error {
	var res tokenResponse
	if err := s.c.call(ctx, http.MethodPost, "/users/login", loginRequest{Username: uname, Password: pwd}, &res); err != nil {
		return err
	}
	s.c.SetToken(res.Token)
	return nil
}

func (s *UserService) Logout() {
	s.c.SetToken("")
}

// RefreshToken extends the session. It fails with a refresh error once the token can no longer be refreshed.
func (s *UserService) RefreshToken(ctx context.Context) error {
	var res tokenResponse
	if err := s.c.call(ctx, http.MethodPost, "/users/token-refresh", nil, &res); err != nil {
		return err
	}
	s.c.SetToken(res.Token)
	return nil
}

func (s *UserService) Me(ctx context.Context) (user.User, error) {
	var usr user.User
	err := s.c.get(ctx, "/users/me", &usr)
	return usr, err
}

func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.c.call(ctx, http.MethodPost, "/users/password-reset", emailRequest{Email: email}, nil)
}

func (s *UserService) ResetPassword(ctx context.Context, data user.ResetUserPassword) error {
	return s.c.call(ctx, http.MethodPost, "/users/password-reset-confirm", data, nil)
}

func (s *UserService) Register(ctx context.Context, nu user.NewUser) (user.User, error) {
	var usr user.User
	err := s.c.call(ctx, http.MethodPost, "/users/register", nu, &usr)
	return usr, err
}

// Query lists users; ordering fields may be prefixed by "-" for descending order.
func (s *UserService) Query(ctx context.Context, filter user.QueryFilter, ordering ...string) ([]user.User, error) {
	q := make(url.Values)
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	for _, role := range filter.Roles {
		q.Add("role", role)
	}
	if filter.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		q.Set("created_from", filter.CreatedFrom.Format(time.RFC3339))
	}
	if !filter.CreatedTo.IsZero() {
		q.Set("created_to", filter.CreatedTo.Format(time.RFC3339))
	}
	if len(ordering) > 0 {
		q.Set("ordering", strings.Join(ordering, ","))
	}

	var users []user.User
	req := s.c.newRequest(ctx)
	req.SetQueryParamsFromValues(q).SetResult(&users)
	_, err := s.c.send(req, http.MethodGet, "/users")
	return users, err
}

func (s *UserService) Roles(ctx context.Context) ([]user.Role, error) {
	var roles []user.Role
	err := s.c.get(ctx, "/users/roles", &roles)
	return roles, err
}

func (s *UserService) Get(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := s.c.get(ctx, "/users/"+url.PathEscape(id), &usr)
	return usr, err
}

func (s *UserService) Update(ctx context.Context, id string, uu user.UpdateUser) (user.User, error) {
	var usr user.User
	err := s.c.call(ctx, http.MethodPut, "/users/"+url.PathEscape(id), uu, &usr)
	return usr, err
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, up user.UpdateProfile) (user.User, error) {
	var usr user.User
	err := s.c.call(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/profile", up, &usr)
	return usr, err
}

func (s *UserService) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 1 {
		return s.c.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(ids[0]), nil, nil)
	}
	req := s.c.newRequest(ctx)
	req.SetQueryParamsFromValues(url.Values{"id": ids})
	_, err := s.c.send(req, http.MethodDelete, "/users")
	return err
}
