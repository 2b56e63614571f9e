package paymentmethod

import (
	"context"

	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/view"
	"github.com/openschool/campus/view/pipeline"
)

// Service is the payment method API. *client.PaymentMethodService implements it.
type Service interface {
	List(ctx context.Context) ([]payment.Method, error)
	Insert(ctx context.Context, nm payment.NewMethod) (payment.Method, error)
	SetPrimary(ctx context.Context, id string) (payment.Method, error)
	Disable(ctx context.Context, id string) (payment.Method, error)
}

// Tokenizer is the provider's hosted card fields. Tokenize returns a single-use token for the
// card typed in them; its errors are shown to the student as they are.
type Tokenizer interface {
	Tokenize(ctx context.Context) (string, error)
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(ctx context.Context) (string, error)

func (f TokenizerFunc) Tokenize(ctx context.Context) (string, error) { return f(ctx) }

type mutation struct {
	verb     view.Verb
	methodID string
}

type View struct {
	*view.Store[State, Action]

	svc       Service
	tokenizer Tokenizer
	nav       view.Navigator
	loads     *pipeline.Subject[struct{}]
	mutations *pipeline.Subject[mutation]
}

func New(ctx context.Context, enrollmentID string, svc Service, tokenizer Tokenizer, nav view.Navigator) *View {
	v := &View{Store: view.NewStore(NewState(enrollmentID), Reduce), svc: svc, tokenizer: tokenizer, nav: nav}
	v.loads = pipeline.New(ctx, pipeline.Switch, v.load)
	v.mutations = pipeline.New(ctx, pipeline.Exhaust, v.mutate, pipeline.WithFilter(v.idle))
	return v
}

func (v *View) idle(mutation) bool {
	return !v.State().Form.ProcessingState.Busy()
}

func (v *View) Load() { v.loads.Next(struct{}{}) }

func (v *View) SetCountry(code string) { v.Dispatch(CountryChanged{Country: code}) }

func (v *View) SetPostalCode(code string) { v.Dispatch(PostalCodeChanged{PostalCode: code}) }

// Insert tokenizes the card of the hosted fields and saves it with the billing address.
func (v *View) Insert() {
	v.Dispatch(Validated{})
	if !v.State().Form.Valid() {
		return
	}
	v.mutations.Next(mutation{verb: view.Insert})
}

func (v *View) SetPrimary(id string) { v.mutations.Next(mutation{verb: view.Update, methodID: id}) }

func (v *View) Disable(id string) { v.mutations.Next(mutation{verb: view.Disable, methodID: id}) }

func (v *View) load(ctx context.Context, _ struct{}) {
	methods, err := v.svc.List(ctx)
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(LoadFailed{Code: f.Status}) })
		return
	}
	if ctx.Err() == nil {
		v.Dispatch(LoadSucceeded{Methods: methods})
	}
}

func (v *View) mutate(ctx context.Context, m mutation) {
	v.Dispatch(Started{Verb: m.verb})
	fail := func(f view.Failure) { v.Dispatch(Failed{Verb: m.verb, Failure: f}) }

	var (
		method payment.Method
		err    error
	)
	switch m.verb {
	case view.Insert:
		var token string
		token, err = v.tokenizer.Tokenize(ctx)
		if err != nil {
			if ctx.Err() == nil {
				fail(view.Failure{Message: err.Error()})
			}
			return
		}
		method, err = v.svc.Insert(ctx, v.State().Form.Data.NewMethod(token))
	case view.Update:
		method, err = v.svc.SetPrimary(ctx, m.methodID)
	case view.Disable:
		method, err = v.svc.Disable(ctx, m.methodID)
	}
	if err != nil {
		view.HandleError(ctx, err, v.nav, fail)
		return
	}
	v.Dispatch(Succeeded{Verb: m.verb, Method: method})
}

func (v *View) Close() {
	v.Store.Close()
	pipeline.Group{v.loads, v.mutations}.Close()
}

func (v *View) Wait() {
	pipeline.Group{v.loads, v.mutations}.Wait()
}
