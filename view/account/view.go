package account

import (
	"context"

	"github.com/openschool/campus/core/user"
	"github.com/openschool/campus/view"
	"github.com/openschool/campus/view/pipeline"
)

// Service is the part of the user API the form uses. *client.UserService implements it.
type Service interface {
	Me(ctx context.Context) (user.User, error)
	UpdateProfile(ctx context.Context, id string, up user.UpdateProfile) (user.User, error)
}

type View struct {
	*view.Store[State, Action]

	svc   Service
	nav   view.Navigator
	loads *pipeline.Subject[struct{}]
	saves *pipeline.Subject[struct{}]
}

func New(ctx context.Context, svc Service, nav view.Navigator) *View {
	v := &View{Store: view.NewStore(NewState(), Reduce), svc: svc, nav: nav}
	v.loads = pipeline.New(ctx, pipeline.Switch, v.load)
	v.saves = pipeline.New(ctx, pipeline.Exhaust, v.save)
	return v
}

// Load fetches the signed-in user.
func (v *View) Load() { v.loads.Next(struct{}{}) }

func (v *View) SetField(f Field, value string) { v.Dispatch(FieldChanged{Field: f, Value: value}) }

// FormatTelephone is called when the telephone field loses focus.
func (v *View) FormatTelephone() { v.Dispatch(TelephoneFormatted{}) }

func (v *View) Save() {
	v.Dispatch(Validated{})
	if !v.State().Form.Valid() {
		return
	}
	v.saves.Next(struct{}{})
}

func (v *View) load(ctx context.Context, _ struct{}) {
	u, err := v.svc.Me(ctx)
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(LoadFailed{Code: f.Status}) })
		return
	}
	if ctx.Err() == nil {
		v.Dispatch(LoadSucceeded{User: u})
	}
}

func (v *View) save(ctx context.Context, _ struct{}) {
	s := v.State()
	if s.Entity == nil {
		return
	}
	v.Dispatch(Started{})
	u, err := v.svc.UpdateProfile(ctx, s.Entity.ID, s.Form.Data.UpdateProfile())
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(Failed{Failure: f}) })
		return
	}
	v.Dispatch(Succeeded{User: u})
}

func (v *View) Close() {
	v.Store.Close()
	pipeline.Group{v.loads, v.saves}.Close()
}

func (v *View) Wait() {
	pipeline.Group{v.loads, v.saves}.Wait()
}
