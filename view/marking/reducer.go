// Package marking is the tutor's view of a submitted unit: marking its text boxes and upload
// slots, then closing it or returning it to the student.
//
// A mark change is applied to the local copy of the unit first, so the aggregate marks of its
// parts, assignments and of the unit itself are re-derived before the server answers.
package marking

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/grading"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/view"
)

// Leaf is the kind of input being marked.
type Leaf string

const (
	TextBox    Leaf = "text_boxes"
	UploadSlot Leaf = "upload_slots"
)

// MarkEdit changes the marking of one leaf.
type MarkEdit struct {
	Leaf  Leaf
	ID    string
	Patch submission.MarkPatch
}

func (e MarkEdit) fieldPrefix() string { return string(e.Leaf) + "." + e.ID + "." }

const fieldAdminComment = "admin_comment"

type FormData struct {
	AdminComment string
	pending      []MarkEdit // sent but not answered yet, oldest first
}

type State = view.State[submission.Submission, FormData]

func NewState() State {
	return State{Form: view.NewForm(FormData{})}
}

// Markable reports whether the tutor may change the marks of the unit now: it is submitted,
// still open, and no close or return is in flight.
func Markable(s State) bool {
	return s.Entity != nil && s.Entity.IsSubmitted() && !s.Entity.Skipped && !s.Entity.IsClosed() &&
		!s.Form.ProcessingState.BusyWithOther(view.Save)
}

// Percentage is the unit mark as a rounded percentage, nil until the unit is fully marked.
func Percentage(s State) *float64 {
	if s.Entity == nil {
		return nil
	}
	return grading.Percentage(s.Entity.Marks)
}

// apply marks one leaf of sub, re-deriving every aggregate.
func apply(sub *submission.Submission, e MarkEdit) error {
	if e.Leaf == UploadSlot {
		return sub.MarkUploadSlot(e.ID, e.Patch)
	}
	return sub.MarkTextBox(e.ID, e.Patch)
}

type Action interface{ markingAction() }

type (
	LoadSucceeded struct{ Unit submission.Submission }
	LoadFailed    struct{ Code int }

	MarkChanged         struct{ Edit MarkEdit }
	MarkQueued          struct{ Edit MarkEdit } // sent to the server
	AdminCommentChanged struct{ Comment string }

	Started   struct{ Verb view.Verb }
	Succeeded struct {
		Verb view.Verb
		Unit submission.Submission
	}
	// Failed carries the prefix of the fields the failure refers to, if any.
	Failed struct {
		Verb        view.Verb
		Failure     view.Failure
		FieldPrefix string
	}
)

func (LoadSucceeded) markingAction()       {}
func (LoadFailed) markingAction()          {}
func (MarkChanged) markingAction()         {}
func (MarkQueued) markingAction()          {}
func (AdminCommentChanged) markingAction() {}
func (Started) markingAction()             {}
func (Succeeded) markingAction()           {}
func (Failed) markingAction()              {}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadSucceeded:
		s = s.Loaded(a.Unit)
		s.Form = view.NewForm(FormData{AdminComment: a.Unit.AdminComment})

	case LoadFailed:
		s = s.LoadFailed(a.Code)

	case MarkChanged:
		if !Markable(s) {
			break
		}
		prefix := a.Edit.fieldPrefix()
		for field := range s.Form.ValidationMessages {
			if strings.HasPrefix(field, prefix) {
				s.Form = s.Form.WithMessage(field, "")
			}
		}
		sub := s.Entity.Clone()
		if err := apply(&sub, a.Edit); err != nil {
			s.Form = s.Form.WithMessages(fieldMessages(prefix, err))
			break
		}
		s.Entity = &sub

	case MarkQueued:
		s.Form.Data.pending = append(append([]MarkEdit(nil), s.Form.Data.pending...), a.Edit)

	case AdminCommentChanged:
		s.Form.Data.AdminComment = a.Comment
		s.Form = s.Form.WithMessage(fieldAdminComment, core.TextMessage(core.CleanString(a.Comment), core.LongTextMaxBytes, true))

	case Started:
		s.Form = s.Form.Started(a.Verb)

	case Succeeded:
		s.Entity = &a.Unit
		s.Form = s.Form.Succeeded()
		if a.Verb == view.Save {
			s = answered(s, true)
		}

	case Failed:
		if a.Verb == view.Save {
			s = answered(s, false)
		}
		fields := make(map[string]string, len(a.Failure.Fields))
		for field, msg := range a.Failure.Fields {
			fields[a.FieldPrefix+field] = msg
		}
		s.Form = s.Form.Failed(a.Verb, a.Failure.Message, fields)
	}
	return s
}

// answered drops the oldest pending edit. With reapply, the others are applied again on top of
// the entity, so the server copy returned by an earlier save does not undo edits still on their way.
func answered(s State, reapply bool) State {
	if len(s.Form.Data.pending) == 0 {
		return s
	}
	s.Form.Data.pending = append([]MarkEdit(nil), s.Form.Data.pending[1:]...)
	if !reapply || len(s.Form.Data.pending) == 0 || s.Entity == nil {
		return s
	}
	sub := s.Entity.Clone()
	for _, e := range s.Form.Data.pending {
		_ = apply(&sub, e)
	}
	s.Entity = &sub
	return s
}

// fieldMessages turns the validation error of a mark patch into form messages.
func fieldMessages(prefix string, err error) map[string]string {
	msgs := make(map[string]string)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		msgs[strings.TrimSuffix(prefix, ".")] = err.Error()
		return msgs
	}
	for _, fe := range verr.Fields {
		msgs[prefix+fe.Field] = fe.Error
	}
	return msgs
}
