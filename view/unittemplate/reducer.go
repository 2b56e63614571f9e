// Package unittemplate is the admin form creating and editing the unit templates of a course.
package unittemplate

import (
	"strconv"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/view"
)

type Field string

const (
	FieldLetter      Field = "letter"
	FieldOrder       Field = "order"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// FormData holds the form fields as typed by the admin.
type FormData struct {
	Letter      string
	Order       string
	Title       string
	Description string
	Optional    bool
	Assignments []course.AssignmentTemplate
}

func formData(ut course.UnitTemplate) FormData {
	return FormData{
		Letter:      ut.Letter,
		Order:       strconv.Itoa(ut.Order),
		Title:       ut.Title,
		Description: ut.Description,
		Optional:    ut.Optional,
		Assignments: ut.Assignments,
	}
}

// Input converts the form data for the API. Call it on valid data only.
func (d FormData) Input() course.UnitTemplateInput {
	order, _ := core.ParseOrder(d.Order)
	return course.UnitTemplateInput{
		Letter:      core.CleanUnitLetter(core.CleanString(d.Letter)),
		Order:       order,
		Title:       core.CleanString(d.Title),
		Description: core.CleanString(d.Description),
		Optional:    d.Optional,
		Assignments: d.Assignments,
	}
}

func (d FormData) value(f Field) string {
	switch f {
	case FieldLetter:
		return d.Letter
	case FieldOrder:
		return d.Order
	case FieldTitle:
		return d.Title
	case FieldDescription:
		return d.Description
	}
	return ""
}

func (d FormData) set(f Field, value string) FormData {
	switch f {
	case FieldLetter:
		d.Letter = value
	case FieldOrder:
		d.Order = value
	case FieldTitle:
		d.Title = value
	case FieldDescription:
		d.Description = value
	}
	return d
}

// message validates one field.
func message(f Field, value string) string {
	switch f {
	case FieldLetter:
		return core.UnitLetterMessage(core.CleanString(value))
	case FieldOrder:
		_, msg := core.ParseOrder(value)
		return msg
	case FieldTitle:
		return core.TextMessage(core.CleanString(value), core.ShortTextMaxBytes, true)
	case FieldDescription:
		return core.MaxBytesMessage(value, core.LongTextMaxBytes)
	}
	return ""
}

var fields = []Field{FieldLetter, FieldOrder, FieldTitle, FieldDescription}

type State = view.State[course.UnitTemplate, FormData]

func NewState() State {
	return State{Form: view.NewForm(FormData{Order: "0"})}
}

// Action is one of the actions below.
type Action interface{ unitTemplateAction() }

type (
	LoadSucceeded struct{ Template course.UnitTemplate }
	LoadFailed    struct{ Code int }

	FieldChanged struct {
		Field Field
		Value string
	}
	OptionalChanged struct{ Optional bool }
	// Validated checks every field at once, before a submit.
	Validated struct{}

	Started   struct{ Verb view.Verb }
	Succeeded struct {
		Verb     view.Verb
		Template course.UnitTemplate
	}
	Failed struct {
		Verb    view.Verb
		Failure view.Failure
	}
)

func (LoadSucceeded) unitTemplateAction()   {}
func (LoadFailed) unitTemplateAction()      {}
func (FieldChanged) unitTemplateAction()    {}
func (OptionalChanged) unitTemplateAction() {}
func (Validated) unitTemplateAction()       {}
func (Started) unitTemplateAction()         {}
func (Succeeded) unitTemplateAction()       {}
func (Failed) unitTemplateAction()          {}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadSucceeded:
		s = s.Loaded(a.Template)
		s.Form = view.NewForm(formData(a.Template))

	case LoadFailed:
		s = s.LoadFailed(a.Code)

	case FieldChanged:
		s.Form.Data = s.Form.Data.set(a.Field, a.Value)
		s.Form = s.Form.WithMessage(string(a.Field), message(a.Field, a.Value))

	case OptionalChanged:
		s.Form.Data.Optional = a.Optional

	case Validated:
		for _, f := range fields {
			s.Form = s.Form.WithMessage(string(f), message(f, s.Form.Data.value(f)))
		}

	case Started:
		s.Form = s.Form.Started(a.Verb)

	case Succeeded:
		s.Form = s.Form.Succeeded()
		if a.Verb == view.Delete {
			s.Entity = nil
			s.Form = view.NewForm(FormData{Order: "0"})
			break
		}
		s.Entity = &a.Template
		s.Form.Data = formData(a.Template)

	case Failed:
		s.Form = s.Form.Failed(a.Verb, a.Failure.Message, a.Failure.Fields)
	}
	return s
}
