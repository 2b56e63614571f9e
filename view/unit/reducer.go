// Package unit is the student's view of one unit: answering text boxes, uploading files,
// then submitting or skipping the unit.
package unit

import (
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/view"
)

// FormData holds the answers being edited. Texts is keyed by text box id.
type FormData struct {
	Texts          map[string]string
	UploadSlotID   string
	UploadProgress int // percent
}

func textBoxField(id string) string    { return "text_boxes." + id }
func uploadSlotField(id string) string { return "upload_slots." + id }

func texts(sub submission.Submission) map[string]string {
	m := make(map[string]string)
	for _, a := range sub.Assignments {
		for _, p := range a.Parts {
			for _, tb := range p.TextBoxes {
				m[tb.ID] = tb.Text
			}
		}
	}
	return m
}

type State = view.State[submission.Submission, FormData]

func NewState() State {
	return State{Form: view.NewForm(FormData{Texts: map[string]string{}})}
}

// Editable reports whether the student may change the answers now: the unit is not submitted
// and no upload, deletion, submit or skip is in flight.
func Editable(s State) bool {
	return s.Entity != nil && !s.Entity.IsSubmitted() && !s.Form.ProcessingState.BusyWithOther(view.Save)
}

// unanswered lists the required inputs left empty, using the texts being edited.
func unanswered(s State) map[string]string {
	sub := s.Entity.Clone()
	for i := range sub.Assignments {
		for j := range sub.Assignments[i].Parts {
			p := &sub.Assignments[i].Parts[j]
			for k := range p.TextBoxes {
				if text, ok := s.Form.Data.Texts[p.TextBoxes[k].ID]; ok {
					p.TextBoxes[k].Text = text
				}
			}
		}
	}
	msgs := make(map[string]string)
	for _, fe := range sub.Unanswered() {
		msgs[fe.Field] = fe.Error
	}
	return msgs
}

type Action interface{ unitAction() }

type (
	LoadSucceeded struct{ Unit submission.Submission }
	LoadFailed    struct{ Code int }

	TextChanged struct {
		TextBoxID string
		Text      string
	}
	// Validated checks the required answers before a submit.
	Validated struct{}

	Started struct {
		Verb   view.Verb
		SlotID string
	}
	UploadProgressed struct{ Sent, Total int64 }
	Succeeded        struct {
		Verb view.Verb
		Unit submission.Submission
	}
	Failed struct {
		Verb    view.Verb
		Failure view.Failure
	}
)

func (LoadSucceeded) unitAction()    {}
func (LoadFailed) unitAction()       {}
func (TextChanged) unitAction()      {}
func (Validated) unitAction()        {}
func (Started) unitAction()          {}
func (UploadProgressed) unitAction() {}
func (Succeeded) unitAction()        {}
func (Failed) unitAction()           {}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadSucceeded:
		s = s.Loaded(a.Unit)
		s.Form = view.NewForm(FormData{Texts: texts(a.Unit)})

	case LoadFailed:
		s = s.LoadFailed(a.Code)

	case TextChanged:
		if !Editable(s) {
			break
		}
		t := make(map[string]string, len(s.Form.Data.Texts))
		for k, v := range s.Form.Data.Texts {
			t[k] = v
		}
		t[a.TextBoxID] = a.Text
		s.Form.Data.Texts = t
		s.Form = s.Form.WithMessage(textBoxField(a.TextBoxID), core.MaxBytesMessage(a.Text, core.LongTextMaxBytes))

	case Validated:
		if s.Entity == nil {
			break
		}
		s.Form = s.Form.WithMessages(unanswered(s))

	case Started:
		s.Form = s.Form.Started(a.Verb)
		if a.Verb == view.Upload {
			s.Form.Data.UploadSlotID = a.SlotID
			s.Form.Data.UploadProgress = 0
		}

	case UploadProgressed:
		if a.Total > 0 {
			s.Form.Data.UploadProgress = int(100 * a.Sent / a.Total)
		}

	case Succeeded:
		s.Entity = &a.Unit
		s.Form = s.Form.Succeeded()
		if a.Verb == view.Upload {
			s.Form = s.Form.WithMessage(uploadSlotField(s.Form.Data.UploadSlotID), "").WithMessage("file", "")
		}
		s.Form.Data.UploadSlotID = ""
		s.Form.Data.UploadProgress = 0

	case Failed:
		s.Form = s.Form.Failed(a.Verb, a.Failure.Message, a.Failure.Fields)
		s.Form.Data.UploadProgress = 0
	}
	return s
}
