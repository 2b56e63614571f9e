package payment

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/country"
)

// Method is a card stored in the payment provider's vault. Only provider references are kept.
type Method struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EnrollmentID string    `json:"enrollment_id"`
	ProfileID    string    `json:"profile_id"`
	CardID       string    `json:"card_id"`
	PaymentToken string    `json:"-"`
	CardType     string    `json:"card_type"`
	LastDigits   string    `json:"last_digits"`
	ExpiryMonth  int       `json:"expiry_month"`
	ExpiryYear   int       `json:"expiry_year"`
	Primary      bool      `json:"primary"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// Customer identifies the vault profile a card is added to. An empty ProfileID creates the profile.
type Customer struct {
	ProfileID      string
	MerchantRefNum string
	FirstName      string
	LastName       string
	Email          string
	Country        string
	PostalCode     string
}

// Card is what the provider returns for a stored card.
type Card struct {
	ProfileID    string
	CardID       string
	PaymentToken string
	CardType     string
	LastDigits   string
	ExpiryMonth  int
	ExpiryYear   int
}

// NewMethod contains the single-use token produced by the hosted payment fields.
type NewMethod struct {
	EnrollmentID   string `json:"enrollment_id" validate:"required"`
	SingleUseToken string `json:"single_use_token" validate:"required,bytemax=191"`
	Country        string `json:"country" validate:"required,country"`
	PostalCode     string `json:"postal_code" validate:"bytemax=191"`
}

func (nm *NewMethod) Validate(validate *validator.Validate) error {
	nm.EnrollmentID = core.CleanString(nm.EnrollmentID)
	nm.SingleUseToken = core.CleanString(nm.SingleUseToken)
	nm.Country = strings.ToUpper(core.CleanString(nm.Country))
	nm.PostalCode = strings.ToUpper(core.CleanString(nm.PostalCode))
	if err := validate.Struct(nm); err != nil {
		return err
	}

	if country.EmbargoedCountry(nm.Country) {
		return core.NewValidationError(ErrEmbargoed, core.FieldError{Field: "country", Error: ErrEmbargoed.Error()})
	}
	if country.NeedsPostalCode(nm.Country) && nm.PostalCode == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "postal_code", Error: core.MsgRequired})
	}
	return nil
}

// splitName splits a full name into first and last names.
func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
}
