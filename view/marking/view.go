package marking

import (
	"context"
	"strings"

	"github.com/openschool/campus/core/grading"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/view"
	"github.com/openschool/campus/view/pipeline"
)

// Service is the part of the unit API tutors use. *client.UnitService implements it.
type Service interface {
	Get(ctx context.Context, id string) (submission.Submission, error)
	SetTextBoxMark(ctx context.Context, id, textBoxID string, mp submission.MarkPatch) (submission.Submission, error)
	SetUploadSlotMark(ctx context.Context, id, slotID string, mp submission.MarkPatch) (submission.Submission, error)
	Close(ctx context.Context, id string) (submission.Submission, error)
	Return(ctx context.Context, id, adminComment string) (submission.Submission, error)
}

type View struct {
	*view.Store[State, Action]

	svc       Service
	nav       view.Navigator
	loads     *pipeline.Subject[string]
	marks     *pipeline.Subject[MarkEdit]
	mutations *pipeline.Subject[view.Verb]
}

func New(ctx context.Context, svc Service, nav view.Navigator) *View {
	v := &View{Store: view.NewStore(NewState(), Reduce), svc: svc, nav: nav}
	v.loads = pipeline.New(ctx, pipeline.Switch, v.load)
	v.marks = pipeline.New(ctx, pipeline.Concat, v.saveMark, pipeline.WithFilter(v.markable))
	v.mutations = pipeline.New(ctx, pipeline.Exhaust, v.mutate, pipeline.WithFilter(v.idle))
	return v
}

func (v *View) idle(view.Verb) bool {
	return !v.State().Form.ProcessingState.Busy() && !v.marks.Busy()
}

func (v *View) markable(MarkEdit) bool { return Markable(v.State()) }

func (v *View) Load(id string) { v.loads.Next(id) }

// SetMark applies a mark change locally and saves it. Mark changes are saved in order; they are
// refused while the unit is being closed or returned.
func (v *View) SetMark(e MarkEdit) {
	if !Markable(v.State()) {
		return
	}
	v.Dispatch(MarkChanged{Edit: e})
	prefix := e.fieldPrefix()
	for field, msg := range v.State().Form.ValidationMessages {
		if msg != "" && strings.HasPrefix(field, prefix) {
			return
		}
	}
	if v.markable(e) {
		v.Dispatch(MarkQueued{Edit: e})
		v.marks.Next(e)
	}
}

func (v *View) SetAdminComment(comment string) { v.Dispatch(AdminCommentChanged{Comment: comment}) }

// CloseUnit finishes the marking. It is refused until every required item is marked.
func (v *View) CloseUnit() {
	s := v.State()
	if s.Entity == nil {
		return
	}
	if !grading.Complete(s.Entity) {
		v.Dispatch(Failed{Verb: view.Close, Failure: view.Failure{Message: grading.ErrIncompleteMarking.Error()}})
		return
	}
	v.mutations.Next(view.Close)
}

// ReturnUnit sends the unit back to the student with the admin comment.
func (v *View) ReturnUnit() {
	v.Dispatch(AdminCommentChanged{Comment: v.State().Form.Data.AdminComment})
	if !v.State().Form.Valid() {
		return
	}
	v.mutations.Next(view.Return)
}

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

func (v *View) saveMark(ctx context.Context, e MarkEdit) {
	s := v.State()
	if s.Entity == nil {
		return
	}
	v.Dispatch(Started{Verb: view.Save})

	var (
		sub submission.Submission
		err error
	)
	if e.Leaf == UploadSlot {
		sub, err = v.svc.SetUploadSlotMark(ctx, s.Entity.ID, e.ID, e.Patch)
	} else {
		sub, err = v.svc.SetTextBoxMark(ctx, s.Entity.ID, e.ID, e.Patch)
	}
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) {
			v.Dispatch(Failed{Verb: view.Save, Failure: f, FieldPrefix: e.fieldPrefix()})
		})
		return
	}
	v.Dispatch(Succeeded{Verb: view.Save, Unit: sub})
}

func (v *View) mutate(ctx context.Context, verb view.Verb) {
	s := v.State()
	if s.Entity == nil {
		return
	}
	v.Dispatch(Started{Verb: verb})

	var (
		sub submission.Submission
		err error
	)
	switch verb {
	case view.Close:
		sub, err = v.svc.Close(ctx, s.Entity.ID)
	case view.Return:
		sub, err = v.svc.Return(ctx, s.Entity.ID, s.Form.Data.AdminComment)
	}
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(Failed{Verb: verb, Failure: f}) })
		return
	}
	v.Dispatch(Succeeded{Verb: verb, Unit: sub})
}

// Close tears the view down.
func (v *View) Close() {
	v.Store.Close()
	pipeline.Group{v.loads, v.marks, v.mutations}.Close()
}

func (v *View) Wait() {
	pipeline.Group{v.loads, v.marks, v.mutations}.Wait()
}
