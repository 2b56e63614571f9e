// Package account is the form where users maintain their name and contact details.
package account

import (
	"strings"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/country"
	"github.com/openschool/campus/core/user"
	"github.com/openschool/campus/view"
)

type Field string

const (
	FieldName       Field = "name"
	FieldCountry    Field = "country"
	FieldProvince   Field = "province"
	FieldPostalCode Field = "postal_code"
	FieldTelephone  Field = "telephone"
)

var fields = []Field{FieldName, FieldCountry, FieldProvince, FieldPostalCode, FieldTelephone}

type FormData map[Field]string

func formData(u user.User) FormData {
	return FormData{
		FieldName:       u.Name,
		FieldCountry:    u.Country,
		FieldProvince:   u.Province,
		FieldPostalCode: u.PostalCode,
		FieldTelephone:  u.Telephone,
	}
}

// UpdateProfile converts the form for the API, cleaning it the way the API does.
func (d FormData) UpdateProfile() user.UpdateProfile {
	up := user.UpdateProfile{
		Name:       d[FieldName],
		Country:    d[FieldCountry],
		Province:   d[FieldProvince],
		PostalCode: d[FieldPostalCode],
		Telephone:  d[FieldTelephone],
	}
	up.Clean()
	return up
}

// message validates one field. The address rules depend on the country.
func message(d FormData, f Field) string {
	code := strings.ToUpper(core.CleanString(d[FieldCountry]))
	value := core.CleanString(d[f])
	switch f {
	case FieldName:
		return core.TextMessage(value, core.ShortTextMaxBytes, true)
	case FieldCountry:
		if msg := core.CountryMessage(code); msg != "" {
			return msg
		}
		if country.EmbargoedCountry(code) {
			return user.MsgEmbargoed
		}
	case FieldProvince:
		return core.TextMessage(value, core.ShortTextMaxBytes, country.NeedsProvince(code))
	case FieldPostalCode:
		return core.TextMessage(value, core.ShortTextMaxBytes, country.NeedsPostalCode(code))
	case FieldTelephone:
		return core.MaxBytesMessage(value, core.ShortTextMaxBytes)
	}
	return ""
}

type State = view.State[user.User, FormData]

func NewState() State {
	return State{Form: view.NewForm(FormData{})}
}

type Action interface{ accountAction() }

type (
	LoadSucceeded struct{ User user.User }
	LoadFailed    struct{ Code int }
	FieldChanged  struct {
		Field Field
		Value string
	}
	// TelephoneFormatted rewrites the telephone number in the national format of the country.
	TelephoneFormatted struct{}
	Validated          struct{}

	Started   struct{}
	Succeeded struct{ User user.User }
	Failed    struct{ Failure view.Failure }
)

func (LoadSucceeded) accountAction()      {}
func (LoadFailed) accountAction()         {}
func (FieldChanged) accountAction()       {}
func (TelephoneFormatted) accountAction() {}
func (Validated) accountAction()          {}
func (Started) accountAction()            {}
func (Succeeded) accountAction()          {}
func (Failed) accountAction()             {}

func (d FormData) with(f Field, value string) FormData {
	c := make(FormData, len(d)+1)
	for k, v := range d {
		c[k] = v
	}
	c[f] = value
	return c
}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadSucceeded:
		s = s.Loaded(a.User)
		s.Form = view.NewForm(formData(a.User))

	case LoadFailed:
		s = s.LoadFailed(a.Code)

	case FieldChanged:
		s.Form.Data = s.Form.Data.with(a.Field, a.Value)
		s.Form = s.Form.WithMessage(string(a.Field), message(s.Form.Data, a.Field))
		if a.Field == FieldCountry {
			for _, f := range []Field{FieldProvince, FieldPostalCode} {
				s.Form = s.Form.WithMessage(string(f), message(s.Form.Data, f))
			}
		}

	case TelephoneFormatted:
		s.Form.Data = s.Form.Data.with(FieldTelephone, country.FixTelephoneNumber(
			strings.ToUpper(core.CleanString(s.Form.Data[FieldCountry])), s.Form.Data[FieldTelephone]))

	case Validated:
		for _, f := range fields {
			s.Form = s.Form.WithMessage(string(f), message(s.Form.Data, f))
		}

	case Started:
		s.Form = s.Form.Started(view.Save)

	case Succeeded:
		s.Entity = &a.User
		s.Form = s.Form.Succeeded()
		s.Form.Data = formData(a.User)

	case Failed:
		s.Form = s.Form.Failed(view.Save, a.Failure.Message, a.Failure.Fields)
	}
	return s
}
