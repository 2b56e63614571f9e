package unittemplate

import (
	"context"

	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/view"
	"github.com/openschool/campus/view/pipeline"
)

// Service is the part of the course API the form uses. *client.CourseService implements it.
type Service interface {
	GetUnitTemplate(ctx context.Context, id string) (course.UnitTemplate, error)
	CreateUnitTemplate(ctx context.Context, courseID string, in course.UnitTemplateInput) (course.UnitTemplate, error)
	UpdateUnitTemplate(ctx context.Context, id string, in course.UnitTemplateInput) (course.UnitTemplate, error)
	DeleteUnitTemplate(ctx context.Context, id string) error
}

type mutation struct {
	verb     view.Verb
	courseID string
}

// View is the unit template form of one admin screen.
type View struct {
	*view.Store[State, Action]

	svc       Service
	nav       view.Navigator
	loads     *pipeline.Subject[string]
	mutations *pipeline.Subject[mutation]
}

func New(ctx context.Context, svc Service, nav view.Navigator) *View {
	v := &View{Store: view.NewStore(NewState(), Reduce), svc: svc, nav: nav}
	v.loads = pipeline.New(ctx, pipeline.Switch, v.load)
	v.mutations = pipeline.New(ctx, pipeline.Exhaust, v.mutate, pipeline.WithFilter(v.idle))
	return v
}

func (v *View) idle(mutation) bool {
	return !v.State().Form.ProcessingState.Busy()
}

// Load fetches a template. A later Load supersedes one still in flight.
func (v *View) Load(id string) { v.loads.Next(id) }

func (v *View) SetField(f Field, value string) { v.Dispatch(FieldChanged{Field: f, Value: value}) }

func (v *View) SetOptional(optional bool) { v.Dispatch(OptionalChanged{Optional: optional}) }

// Insert creates a new template in the course from the form.
func (v *View) Insert(courseID string) { v.submit(mutation{verb: view.Insert, courseID: courseID}) }

// Save updates the loaded template from the form.
func (v *View) Save() { v.submit(mutation{verb: view.Save}) }

func (v *View) Delete() { v.mutations.Next(mutation{verb: view.Delete}) }

// submit is refused while a field is invalid.
func (v *View) submit(m mutation) {
	v.Dispatch(Validated{})
	if !v.State().Form.Valid() {
		return
	}
	v.mutations.Next(m)
}

func (v *View) load(ctx context.Context, id string) {
	ut, err := v.svc.GetUnitTemplate(ctx, id)
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(LoadFailed{Code: f.Status}) })
		return
	}
	if ctx.Err() == nil {
		v.Dispatch(LoadSucceeded{Template: ut})
	}
}

func (v *View) mutate(ctx context.Context, m mutation) {
	s := v.State()
	if m.verb != view.Insert && s.Entity == nil {
		return
	}
	v.Dispatch(Started{Verb: m.verb})

	var (
		ut  course.UnitTemplate
		err error
	)
	switch m.verb {
	case view.Insert:
		ut, err = v.svc.CreateUnitTemplate(ctx, m.courseID, s.Form.Data.Input())
	case view.Save:
		ut, err = v.svc.UpdateUnitTemplate(ctx, s.Entity.ID, s.Form.Data.Input())
	case view.Delete:
		err = v.svc.DeleteUnitTemplate(ctx, s.Entity.ID)
	}
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(Failed{Verb: m.verb, Failure: f}) })
		return
	}
	v.Dispatch(Succeeded{Verb: m.verb, Template: ut})
}

// Close cancels the requests in flight. The state no longer changes afterwards.
func (v *View) Close() {
	v.Store.Close()
	v.loads.Close()
	v.mutations.Close()
}

// Wait blocks until the requests started so far have returned.
func (v *View) Wait() {
	v.loads.Wait()
	v.mutations.Wait()
}
