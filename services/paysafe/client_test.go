package paysafe

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/payment"
	logsvc "github.com/openschool/campus/services/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig()
	conf.Paysafe = core.PaysafeConfig{
		BaseURL:   srv.URL,
		ApiKey:    "key",
		ApiSecret: "secret",
		AccountID: "1001",
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return NewClient(conf, logger)
}

const cardJSON = `{"id":"card-1","paymentToken":"PT1","cardType":"VI","lastDigits":"1111","cardExpiry":{"month":12,"year":2030}}`

func TestClient_AddCard_NewProfile(t *testing.T) {
	var body profileRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, profilesPath, r.URL.Path)
		assert.Equal(t, "1001", r.Header.Get("X-Account-ID"))
		key, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", key)
		assert.Equal(t, "secret", secret)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"profile-1","cards":[`+cardJSON+`]}`)
	})

	card, err := c.AddCard(context.Background(), payment.Customer{
		MerchantRefNum: "user-1",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Country:        "CA",
		PostalCode:     "K1A 0B1",
	}, "SUT1")
	require.NoError(t, err)

	assert.Equal(t, payment.Card{
		ProfileID:    "profile-1",
		CardID:       "card-1",
		PaymentToken: "PT1",
		CardType:     "VI",
		LastDigits:   "1111",
		ExpiryMonth:  12,
		ExpiryYear:   2030,
	}, card)
	assert.Equal(t, "user-1", body.MerchantCustomerID)
	assert.Equal(t, "SUT1", body.Card.SingleUseToken)
	assert.Equal(t, billingAddress{Country: "CA", Zip: "K1A 0B1"}, body.Card.BillingAddress)
}

func TestClient_AddCard_ExistingProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customervault/v1/profiles/profile-9/cards", r.URL.Path)
		var body cardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SUT2", body.SingleUseToken)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, cardJSON)
	})

	card, err := c.AddCard(context.Background(), payment.Customer{ProfileID: "profile-9", Country: "FR"}, "SUT2")
	require.NoError(t, err)
	assert.Equal(t, "profile-9", card.ProfileID)
	assert.Equal(t, "card-1", card.CardID)
}

func TestClient_AddCard_Errors(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantValidation bool
		wantMessage    string
	}{
		{
			name:           "declined token",
			status:         http.StatusBadRequest,
			body:           `{"error":{"code":"5068","message":"Either you submitted a request that is missing a mandatory field or the value of a field does not match the format expected."}}`,
			wantValidation: true,
			wantMessage:    "Either you submitted a request that is missing a mandatory field or the value of a field does not match the format expected.",
		},
		{
			name:        "bad credentials",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"code":"5279","message":"Invalid credentials"}}`,
			wantMessage: "Invalid credentials",
		},
		{
			name:        "outage without envelope",
			status:      http.StatusBadGateway,
			body:        `oops`,
			wantMessage: http.StatusText(http.StatusBadGateway),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.body[0] == '{' {
					w.Header().Set("Content-Type", "application/json")
				} else {
					w.Header().Set("Content-Type", "text/plain")
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.AddCard(context.Background(), payment.Customer{Country: "CA"}, "SUT")
			require.Error(t, err)

			var apiErr *Error
			if tt.wantValidation {
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok, "want *core.ValidationError, got %T", err)
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, "single_use_token", verr.Fields[0].Field)
				apiErr, ok = verr.Err.(*Error)
				require.True(t, ok)
			} else {
				var ok bool
				apiErr, ok = err.(*Error)
				require.True(t, ok, "want *Error, got %T", err)
			}
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}
