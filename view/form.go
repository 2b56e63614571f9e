package view

import "strings"

// ProcessingState tells what a form is doing: idle, an operation in flight ("saving"),
// or the failure of the last operation ("save error").
type ProcessingState string

const Idle ProcessingState = "idle"

const errorSuffix = " error"

// Verb names a mutating operation of a view.
type Verb string

const (
	Insert  Verb = "insert"
	Save    Verb = "save"
	Upload  Verb = "upload"
	Submit  Verb = "submit"
	Skip    Verb = "skip"
	Delete  Verb = "delete"
	Close   Verb = "close"
	Return  Verb = "return"
	Update  Verb = "update"
	Disable Verb = "disable"
)

var activeStates = map[Verb]ProcessingState{
	Insert:  "inserting",
	Save:    "saving",
	Upload:  "uploading",
	Submit:  "submitting",
	Skip:    "skipping",
	Delete:  "deleting",
	Close:   "closing",
	Return:  "returning",
	Update:  "updating",
	Disable: "disabling",
}

// Active is the processing state while the operation is in flight.
func (v Verb) Active() ProcessingState {
	if ps, ok := activeStates[v]; ok {
		return ps
	}
	return ProcessingState(string(v) + "ing")
}

// Failed is the processing state after the operation failed.
func (v Verb) Failed() ProcessingState {
	return ProcessingState(string(v) + errorSuffix)
}

func (ps ProcessingState) IsIdle() bool { return ps == Idle || ps == "" }

func (ps ProcessingState) IsError() bool { return strings.HasSuffix(string(ps), errorSuffix) }

// Busy reports whether an operation is in flight.
func (ps ProcessingState) Busy() bool { return !ps.IsIdle() && !ps.IsError() }

// BusyWithOther reports whether an operation other than v is in flight.
func (ps ProcessingState) BusyWithOther(v Verb) bool { return ps.Busy() && ps != v.Active() }

// Form is the editable part of a view.
type Form[D any] struct {
	Data               D
	ValidationMessages map[string]string
	ProcessingState    ProcessingState
	ErrorMessage       string
}

func NewForm[D any](data D) Form[D] {
	return Form[D]{Data: data, ValidationMessages: map[string]string{}, ProcessingState: Idle}
}

// Valid reports whether no field carries a validation message.
func (f Form[D]) Valid() bool {
	for _, msg := range f.ValidationMessages {
		if msg != "" {
			return false
		}
	}
	return true
}

// WithMessage returns a copy of f where field carries msg. An empty msg clears the field.
func (f Form[D]) WithMessage(field, msg string) Form[D] {
	msgs := make(map[string]string, len(f.ValidationMessages)+1)
	for k, v := range f.ValidationMessages {
		msgs[k] = v
	}
	if msg == "" {
		delete(msgs, field)
	} else {
		msgs[field] = msg
	}
	f.ValidationMessages = msgs
	return f
}

// WithMessages merges msgs into the validation messages of f.
func (f Form[D]) WithMessages(msgs map[string]string) Form[D] {
	for field, msg := range msgs {
		f = f.WithMessage(field, msg)
	}
	return f
}

// Started marks v in flight and clears the previous error.
func (f Form[D]) Started(v Verb) Form[D] {
	f.ProcessingState = v.Active()
	f.ErrorMessage = ""
	return f
}

// Succeeded returns the form to idle.
func (f Form[D]) Succeeded() Form[D] {
	f.ProcessingState = Idle
	f.ErrorMessage = ""
	return f
}

// Failed records the failure of v. Field errors returned by the server are shown on their fields.
func (f Form[D]) Failed(v Verb, msg string, fields map[string]string) Form[D] {
	f.ProcessingState = v.Failed()
	f.ErrorMessage = msg
	return f.WithMessages(fields)
}

// State is the state shape shared by every view.
type State[T, D any] struct {
	Entity    *T
	Form      Form[D]
	Error     bool
	ErrorCode int
}

// Loaded stores a freshly loaded entity and clears a previous load error.
func (s State[T, D]) Loaded(entity T) State[T, D] {
	s.Entity = &entity
	s.Error = false
	s.ErrorCode = 0
	return s
}

// LoadFailed records a load failure with the HTTP status of the response, zero when none.
func (s State[T, D]) LoadFailed(code int) State[T, D] {
	s.Error = true
	s.ErrorCode = code
	return s
}
