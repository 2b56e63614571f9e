// Package paymentmethod is the student's list of payment cards and the form adding one.
//
// Card numbers are typed into the payment provider's hosted fields, never into this form: the
// Tokenizer returns a single-use token which is the only card data sent to the API.
package paymentmethod

import (
	"strings"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/country"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/view"
)

type FormData struct {
	EnrollmentID string
	Country      string
	PostalCode   string
}

func (d FormData) NewMethod(singleUseToken string) payment.NewMethod {
	return payment.NewMethod{
		EnrollmentID:   d.EnrollmentID,
		SingleUseToken: singleUseToken,
		Country:        strings.ToUpper(core.CleanString(d.Country)),
		PostalCode:     strings.ToUpper(core.CleanString(d.PostalCode)),
	}
}

const (
	fieldEnrollment = "enrollment_id"
	fieldCountry    = "country"
	fieldPostalCode = "postal_code"
)

func countryMessage(code string) string {
	if msg := core.CountryMessage(code); msg != "" {
		return msg
	}
	if country.EmbargoedCountry(strings.ToUpper(core.CleanString(code))) {
		return payment.ErrEmbargoed.Error()
	}
	return ""
}

// postalCodeMessage depends on the country: some countries require a postal code.
func postalCodeMessage(d FormData) string {
	code := strings.ToUpper(core.CleanString(d.Country))
	if country.NeedsPostalCode(code) {
		return core.TextMessage(core.CleanString(d.PostalCode), core.ShortTextMaxBytes, true)
	}
	return core.MaxBytesMessage(d.PostalCode, core.ShortTextMaxBytes)
}

type State = view.State[[]payment.Method, FormData]

func NewState(enrollmentID string) State {
	return State{Form: view.NewForm(FormData{EnrollmentID: enrollmentID})}
}

// Primary returns the primary method, if any.
func Primary(s State) (payment.Method, bool) {
	if s.Entity != nil {
		for _, m := range *s.Entity {
			if m.Primary {
				return m, true
			}
		}
	}
	return payment.Method{}, false
}

// merge replaces or appends m. A primary m demotes every other method.
func merge(methods []payment.Method, m payment.Method) []payment.Method {
	out := make([]payment.Method, 0, len(methods)+1)
	found := false
	for _, old := range methods {
		if old.ID == m.ID {
			old, found = m, true
		} else if m.Primary {
			old.Primary = false
		}
		out = append(out, old)
	}
	if !found {
		out = append(out, m)
	}
	return out
}

type Action interface{ paymentMethodAction() }

type (
	LoadSucceeded struct{ Methods []payment.Method }
	LoadFailed    struct{ Code int }

	CountryChanged    struct{ Country string }
	PostalCodeChanged struct{ PostalCode string }
	Validated         struct{}

	Started   struct{ Verb view.Verb }
	Succeeded struct {
		Verb   view.Verb
		Method payment.Method
	}
	Failed struct {
		Verb    view.Verb
		Failure view.Failure
	}
)

func (LoadSucceeded) paymentMethodAction()     {}
func (LoadFailed) paymentMethodAction()        {}
func (CountryChanged) paymentMethodAction()    {}
func (PostalCodeChanged) paymentMethodAction() {}
func (Validated) paymentMethodAction()         {}
func (Started) paymentMethodAction()           {}
func (Succeeded) paymentMethodAction()         {}
func (Failed) paymentMethodAction()            {}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadSucceeded:
		s = s.Loaded(a.Methods)

	case LoadFailed:
		s = s.LoadFailed(a.Code)

	case CountryChanged:
		s.Form.Data.Country = a.Country
		s.Form = s.Form.WithMessage(fieldCountry, countryMessage(a.Country))
		// the postal code rule follows the country
		s.Form = s.Form.WithMessage(fieldPostalCode, postalCodeMessage(s.Form.Data))

	case PostalCodeChanged:
		s.Form.Data.PostalCode = a.PostalCode
		s.Form = s.Form.WithMessage(fieldPostalCode, postalCodeMessage(s.Form.Data))

	case Validated:
		s.Form = s.Form.WithMessage(fieldEnrollment, core.RequiredMessage(s.Form.Data.EnrollmentID))
		s.Form = s.Form.WithMessage(fieldCountry, countryMessage(s.Form.Data.Country))
		s.Form = s.Form.WithMessage(fieldPostalCode, postalCodeMessage(s.Form.Data))

	case Started:
		s.Form = s.Form.Started(a.Verb)

	case Succeeded:
		var methods []payment.Method
		if s.Entity != nil {
			methods = *s.Entity
		}
		methods = merge(methods, a.Method)
		s.Entity = &methods
		s.Form = s.Form.Succeeded()
		if a.Verb == view.Insert {
			s.Form.Data.PostalCode = ""
		}

	case Failed:
		s.Form = s.Form.Failed(a.Verb, a.Failure.Message, a.Failure.Fields)
	}
	return s
}
