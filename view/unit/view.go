package unit

import (
	"context"
	"io"

	"github.com/openschool/campus/client"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/view"
	"github.com/openschool/campus/view/pipeline"
)

// Service is the part of the unit API the student uses. *client.UnitService implements it.
type Service interface {
	Get(ctx context.Context, id string) (submission.Submission, error)
	SaveTextBox(ctx context.Context, id, textBoxID, text string) (submission.Submission, error)
	Upload(ctx context.Context, id, slotID, filename string, content io.Reader, size int64, progress client.ProgressFunc) (submission.Submission, error)
	DeleteFile(ctx context.Context, id, slotID string) (submission.Submission, error)
	Submit(ctx context.Context, id string) (submission.Submission, error)
	Skip(ctx context.Context, id string) (submission.Submission, error)
}

type textEdit struct {
	textBoxID string
	text      string
}

// File is an upload chosen by the student.
type File struct {
	Name    string
	Content io.Reader
	Size    int64
}

type mutation struct {
	verb   view.Verb
	slotID string
	file   File
}

type View struct {
	*view.Store[State, Action]

	svc       Service
	nav       view.Navigator
	loads     *pipeline.Subject[string]
	autosave  *pipeline.Subject[textEdit]
	mutations *pipeline.Subject[mutation]
}

func New(ctx context.Context, svc Service, nav view.Navigator) *View {
	v := &View{Store: view.NewStore(NewState(), Reduce), svc: svc, nav: nav}
	v.loads = pipeline.New(ctx, pipeline.Switch, v.load)
	v.autosave = pipeline.New(ctx, pipeline.Concat, v.save, pipeline.WithFilter(v.editable))
	v.mutations = pipeline.New(ctx, pipeline.Exhaust, v.mutate, pipeline.WithFilter(v.idle))
	return v
}

// idle refuses a mutation while another one runs or answers are still being saved.
func (v *View) idle(mutation) bool {
	return !v.State().Form.ProcessingState.Busy() && !v.autosave.Busy()
}

func (v *View) editable(textEdit) bool { return Editable(v.State()) }

func (v *View) Load(id string) { v.loads.Next(id) }

// SetText edits a text box. Valid texts are saved in the order they were typed. Edits are
// refused while another operation is in flight.
func (v *View) SetText(textBoxID, text string) {
	if !Editable(v.State()) {
		return
	}
	v.Dispatch(TextChanged{TextBoxID: textBoxID, Text: text})
	if v.State().Form.ValidationMessages[textBoxField(textBoxID)] != "" {
		return
	}
	v.autosave.Next(textEdit{textBoxID: textBoxID, text: text})
}

// Upload sends a file for a slot; the form reports the upload progress.
func (v *View) Upload(slotID string, f File) {
	v.mutations.Next(mutation{verb: view.Upload, slotID: slotID, file: f})
}

func (v *View) DeleteFile(slotID string) {
	v.mutations.Next(mutation{verb: view.Delete, slotID: slotID})
}

// Submit hands the unit in. It is refused while a required answer is missing.
func (v *View) Submit() {
	v.Dispatch(Validated{})
	if !v.State().Form.Valid() {
		return
	}
	v.mutations.Next(mutation{verb: view.Submit})
}

func (v *View) Skip() { v.mutations.Next(mutation{verb: view.Skip}) }

func (v *View) load(ctx context.Context, id string) {
	sub, err := v.svc.Get(ctx, id)
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(LoadFailed{Code: f.Status}) })
		return
	}
	if ctx.Err() == nil {
		v.Dispatch(LoadSucceeded{Unit: sub})
	}
}

func (v *View) save(ctx context.Context, e textEdit) {
	s := v.State()
	if !Editable(s) {
		return
	}
	v.Dispatch(Started{Verb: view.Save})
	sub, err := v.svc.SaveTextBox(ctx, s.Entity.ID, e.textBoxID, e.text)
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(Failed{Verb: view.Save, Failure: f}) })
		return
	}
	v.Dispatch(Succeeded{Verb: view.Save, Unit: sub})
}

func (v *View) mutate(ctx context.Context, m mutation) {
	s := v.State()
	if s.Entity == nil {
		return
	}
	id := s.Entity.ID
	v.Dispatch(Started{Verb: m.verb, SlotID: m.slotID})

	var (
		sub submission.Submission
		err error
	)
	switch m.verb {
	case view.Upload:
		progress := func(sent, total int64) { v.Dispatch(UploadProgressed{Sent: sent, Total: total}) }
		sub, err = v.svc.Upload(ctx, id, m.slotID, m.file.Name, m.file.Content, m.file.Size, progress)
	case view.Delete:
		sub, err = v.svc.DeleteFile(ctx, id, m.slotID)
	case view.Submit:
		sub, err = v.svc.Submit(ctx, id)
	case view.Skip:
		sub, err = v.svc.Skip(ctx, id)
	}
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(Failed{Verb: m.verb, Failure: f}) })
		return
	}
	v.Dispatch(Succeeded{Verb: m.verb, Unit: sub})
}

func (v *View) Close() {
	v.Store.Close()
	pipeline.Group{v.loads, v.autosave, v.mutations}.Close()
}

func (v *View) Wait() {
	pipeline.Group{v.loads, v.autosave, v.mutations}.Wait()
}
