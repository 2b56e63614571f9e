package paymentmethod

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/client"
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/view"
)

type fakeService struct {
	mu       sync.Mutex
	methods  []payment.Method
	inserted []payment.NewMethod
	err      error
}

func (f *fakeService) List(ctx context.Context) ([]payment.Method, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payment.Method(nil), f.methods...), nil
}

func (f *fakeService) Insert(ctx context.Context, nm payment.NewMethod) (payment.Method, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return payment.Method{}, f.err
	}
	f.inserted = append(f.inserted, nm)
	m := payment.Method{ID: "pm" + string(rune('0'+len(f.inserted))), LastDigits: "1111", Primary: len(f.methods) == 0}
	f.methods = append(f.methods, m)
	return m, nil
}

func (f *fakeService) SetPrimary(ctx context.Context, id string) (payment.Method, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.methods {
		f.methods[i].Primary = f.methods[i].ID == id
	}
	return payment.Method{ID: id, LastDigits: "1111", Primary: true}, nil
}

func (f *fakeService) Disable(ctx context.Context, id string) (payment.Method, error) {
	return payment.Method{}, &client.Error{Status: http.StatusConflict, Message: "payment method is disabled"}
}

func tokens(toks ...string) Tokenizer {
	var mu sync.Mutex
	return TokenizerFunc(func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(toks) == 0 {
			return "", errors.New("card number is invalid")
		}
		tok := toks[0]
		toks = toks[1:]
		return tok, nil
	})
}

func TestReduce_billingAddress(t *testing.T) {
	s := NewState("e1")

	s = Reduce(s, CountryChanged{Country: "zz"})
	assert.Equal(t, core.MsgInvalidCountry, s.Form.ValidationMessages["country"])

	s = Reduce(s, CountryChanged{Country: "kp"})
	assert.Equal(t, payment.ErrEmbargoed.Error(), s.Form.ValidationMessages["country"])

	s = Reduce(s, CountryChanged{Country: "ca"})
	s = Reduce(s, Validated{})
	assert.Equal(t, map[string]string{"postal_code": core.MsgRequired}, s.Form.ValidationMessages)

	// the postal code rule follows the country
	s = Reduce(s, CountryChanged{Country: "ae"})
	assert.True(t, s.Form.Valid(), "no postal codes in the UAE")

	s = Reduce(s, CountryChanged{Country: "fr"})
	assert.Equal(t, core.MsgRequired, s.Form.ValidationMessages["postal_code"])
	s = Reduce(s, PostalCodeChanged{PostalCode: " 75001 "})
	assert.True(t, s.Form.Valid())
	assert.Equal(t, payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "tok", Country: "FR", PostalCode: "75001"}, s.Form.Data.NewMethod("tok"))
}

func TestView_insert(t *testing.T) {
	svc := &fakeService{}
	v := New(context.Background(), "e1", svc, tokens("tok1", "tok2"), nil)
	defer v.Close()
	v.Load()
	v.Wait()
	require.NotNil(t, v.State().Entity)
	assert.Empty(t, *v.State().Entity)

	v.Insert()
	v.Wait()
	assert.Empty(t, svc.inserted, "country is required")

	v.SetCountry("ca")
	v.SetPostalCode("k1a 0b1")
	v.Insert()
	v.Wait()
	require.Len(t, svc.inserted, 1)
	assert.Equal(t, payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "tok1", Country: "CA", PostalCode: "K1A 0B1"}, svc.inserted[0])
	primary, ok := Primary(v.State())
	require.True(t, ok)
	assert.Equal(t, "pm1", primary.ID)
	assert.Empty(t, v.State().Form.Data.PostalCode)

	v.SetPostalCode("k1a 0b1")
	v.Insert()
	v.Wait()
	require.Len(t, *v.State().Entity, 2)

	v.SetPrimary("pm2")
	v.Wait()
	primary, _ = Primary(v.State())
	assert.Equal(t, "pm2", primary.ID)
	assert.False(t, (*v.State().Entity)[0].Primary, "the previous primary is demoted")
}

func TestView_failures(t *testing.T) {
	svc := &fakeService{}
	v := New(context.Background(), "e1", svc, tokens(), nil)
	defer v.Close()
	v.SetCountry("AE")

	v.Insert()
	v.Wait()
	s := v.State()
	assert.Equal(t, view.Insert.Failed(), s.Form.ProcessingState)
	assert.Equal(t, "card number is invalid", s.Form.ErrorMessage)
	assert.Empty(t, svc.inserted, "nothing is sent without a token")

	v.Disable("pm1")
	v.Wait()
	assert.Equal(t, view.Disable.Failed(), v.State().Form.ProcessingState)
	assert.Equal(t, "payment method is disabled", v.State().Form.ErrorMessage)
}

func TestView_sessionExpired(t *testing.T) {
	var redirected bool
	svc := &fakeService{err: client.SessionExpired()}
	v := New(context.Background(), "e1", svc, tokens("tok1"), view.NavigatorFunc(func() { redirected = true }))
	defer v.Close()
	v.SetCountry("AE")

	v.Insert()
	v.Wait()
	assert.True(t, redirected)
	assert.Empty(t, v.State().Form.ErrorMessage)
}
