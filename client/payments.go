package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/openschool/campus/core/country"
	"github.com/openschool/campus/core/payment"
)

type PaymentMethodService struct{ c *Client }

func (s *PaymentMethodService) List(ctx context.Context) ([]payment.Method, error) {
	var methods []payment.Method
	err := s.c.get(ctx, "/payment-methods", &methods)
	return methods, err
}

// Insert stores the card behind a single-use token produced by the hosted payment fields.
func (s *PaymentMethodService) Insert(ctx context.Context, nm payment.NewMethod) (payment.Method, error) {
	var m payment.Method
	err := s.c.call(ctx, http.MethodPost, "/payment-methods", nm, &m)
	return m, err
}

func (s *PaymentMethodService) SetPrimary(ctx context.Context, id string) (payment.Method, error) {
	var m payment.Method
	err := s.c.call(ctx, http.MethodPut, "/payment-methods/"+url.PathEscape(id)+"/primary", nil, &m)
	return m, err
}

func (s *PaymentMethodService) Disable(ctx context.Context, id string) (payment.Method, error) {
	var m payment.Method
	err := s.c.call(ctx, http.MethodDelete, "/payment-methods/"+url.PathEscape(id), nil, &m)
	return m, err
}

type CountryService struct{ c *Client }

func (s *CountryService) Classify(ctx context.Context, code string) (country.Classification, error) {
	var cl country.Classification
	err := s.c.get(ctx, "/countries/"+url.PathEscape(code), &cl)
	return cl, err
}
