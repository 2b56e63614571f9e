package paysafe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/payment"
)

const (
	profilesPath = "/customervault/v1/profiles"
	cardsPath    = "/customervault/v1/profiles/{profileID}/cards"
	locale       = "en_US"
)

// Error is the error envelope returned by the Paysafe REST APIs.
type Error struct {
	StatusCode int      `json:"-"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("paysafe: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
}

type (
	errorEnvelope struct {
		Error *Error `json:"error"`
	}

	billingAddress struct {
		Country string `json:"country"`
		Zip     string `json:"zip,omitempty"`
	}

	cardRequest struct {
		SingleUseToken string         `json:"singleUseToken"`
		BillingAddress billingAddress `json:"billingAddress"`
	}

	profileRequest struct {
		MerchantCustomerID string      `json:"merchantCustomerId"`
		Locale             string      `json:"locale"`
		FirstName          string      `json:"firstName,omitempty"`
		LastName           string      `json:"lastName,omitempty"`
		Email              string      `json:"email,omitempty"`
		Card               cardRequest `json:"card"`
	}

	cardResponse struct {
		ID           string `json:"id"`
		PaymentToken string `json:"paymentToken"`
		CardType     string `json:"cardType"`
		LastDigits   string `json:"lastDigits"`
		CardExpiry   struct {
			Month int `json:"month"`
			Year  int `json:"year"`
		} `json:"cardExpiry"`
	}

	profileResponse struct {
		ID    string         `json:"id"`
		Cards []cardResponse `json:"cards"`
	}
)

// Client talks to the Paysafe Customer Vault.
type Client struct {
	http   *resty.Client
	logger core.Logger
}

var _ payment.Provider = (*Client)(nil)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	c := resty.New().
		SetBaseURL(conf.Paysafe.BaseURL).
		SetBasicAuth(conf.Paysafe.ApiKey, conf.Paysafe.ApiSecret).
		SetHeader("Accept", "application/json").
		SetTimeout(conf.Paysafe.Timeout).
		SetError(&errorEnvelope{})
	if conf.Paysafe.AccountID != "" {
		c.SetHeader("X-Account-ID", conf.Paysafe.AccountID)
	}
	return &Client{http: c, logger: logger}
}

// AddCard stores the card behind singleUseToken, creating the customer profile when it has no ProfileID yet.
func (c *Client) AddCard(ctx context.Context, customer payment.Customer, singleUseToken string) (payment.Card, error) {
	card := cardRequest{
		SingleUseToken: singleUseToken,
		BillingAddress: billingAddress{Country: customer.Country, Zip: customer.PostalCode},
	}

	if customer.ProfileID == "" {
		var res profileResponse
		err := c.do(ctx, c.http.R().
			SetBody(profileRequest{
				MerchantCustomerID: customer.MerchantRefNum,
				Locale:             locale,
				FirstName:          customer.FirstName,
				LastName:           customer.LastName,
				Email:              customer.Email,
				Card:               card,
			}).
			SetResult(&res), profilesPath)
		if err != nil {
			return payment.Card{}, err
		}
		if len(res.Cards) == 0 {
			return payment.Card{}, errors.New("paysafe: profile created without a card")
		}
		return toCard(res.ID, res.Cards[0]), nil
	}

	var res cardResponse
	err := c.do(ctx, c.http.R().
		SetPathParam("profileID", customer.ProfileID).
		SetBody(card).
		SetResult(&res), cardsPath)
	if err != nil {
		return payment.Card{}, err
	}
	return toCard(customer.ProfileID, res), nil
}

func (c *Client) do(ctx context.Context, req *resty.Request, path string) error {
	res, err := req.SetContext(ctx).Post(path)
	if err != nil {
		return errors.Wrap(err, "paysafe")
	}
	if !res.IsError() {
		return nil
	}

	apiErr := &Error{StatusCode: res.StatusCode()}
	if env, ok := res.Error().(*errorEnvelope); ok && env.Error != nil {
		*apiErr = *env.Error
		apiErr.StatusCode = res.StatusCode()
	} else {
		apiErr.Message = http.StatusText(res.StatusCode())
	}

	if res.StatusCode() >= http.StatusInternalServerError || res.StatusCode() == http.StatusUnauthorized {
		c.logger.Error(fmt.Sprintf("paysafe %s: %v", path, apiErr), errors.WithStack(apiErr))
		return apiErr
	}
	// declined or invalid tokens are the customer's to fix
	return core.NewValidationError(apiErr, core.FieldError{Field: "single_use_token", Error: apiErr.Message})
}

func toCard(profileID string, cr cardResponse) payment.Card {
	return payment.Card{
		ProfileID:    profileID,
		CardID:       cr.ID,
		PaymentToken: cr.PaymentToken,
		CardType:     cr.CardType,
		LastDigits:   cr.LastDigits,
		ExpiryMonth:  cr.CardExpiry.Month,
		ExpiryYear:   cr.CardExpiry.Year,
	}
}
