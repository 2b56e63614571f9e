package payment_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/testutil"
)

func fieldNames(err error) []string {
	var names []string
	switch e := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			names = append(names, fe.Field())
		}
	case *core.ValidationError:
		for _, fld := range e.Fields {
			names = append(names, fld.Field)
		}
	}
	return names
}

func byID(methods []payment.Method) map[string]payment.Method {
	m := make(map[string]payment.Method, len(methods))
	for _, pm := range methods {
		m[pm.ID] = pm
	}
	return m
}

func TestService_Insert(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	fix := env.NewFixture(t)
	student := fix.Student

	nm := payment.NewMethod{EnrollmentID: fix.Enrollment.ID, SingleUseToken: "SUT1", Country: "CA", PostalCode: "K1A 0B1"}
	first, err := env.Payments.Insert(ctx, student, nm)
	require.NoError(t, err)
	assert.True(t, first.Primary)
	assert.Equal(t, "profile-"+student.ID, first.ProfileID)
	assert.Equal(t, "card-SUT1", first.CardID)
	assert.Equal(t, "pt-SUT1", first.PaymentToken)
	assert.Equal(t, fix.Enrollment.ID, first.EnrollmentID)

	nm.SingleUseToken = "SUT2"
	second, err := env.Payments.Insert(ctx, student, nm)
	require.NoError(t, err)
	assert.False(t, second.Primary)
	assert.Equal(t, first.ProfileID, second.ProfileID, "the vault profile is reused")

	require.Len(t, env.Provider.Customers, 2)
	assert.Equal(t, "", env.Provider.Customers[0].ProfileID)
	assert.Equal(t, first.ProfileID, env.Provider.Customers[1].ProfileID)
	assert.Equal(t, "Student", env.Provider.Customers[0].FirstName)
	assert.Equal(t, "student1", env.Provider.Customers[0].LastName)

	// only the enrolled student may add a method
	other := env.Student(t, "student2", "US")
	_, err = env.Payments.Insert(ctx, other, nm)
	assert.Equal(t, enrollment.ErrNotFound, err)

	env.Provider.Err = core.NewValidationError(errors.New("declined"), core.FieldError{Field: "single_use_token", Error: "declined"})
	_, err = env.Payments.Insert(ctx, student, nm)
	_, ok := errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)
}

func TestService_PrimaryAndDisable(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	fix := env.NewFixture(t)
	student := fix.Student

	nm := payment.NewMethod{EnrollmentID: fix.Enrollment.ID, SingleUseToken: "SUT1", Country: "CA", PostalCode: "K1A 0B1"}
	first, err := env.Payments.Insert(ctx, student, nm)
	require.NoError(t, err)
	nm.SingleUseToken = "SUT2"
	second, err := env.Payments.Insert(ctx, student, nm)
	require.NoError(t, err)

	m, err := env.Payments.SetPrimary(ctx, student, second.ID)
	require.NoError(t, err)
	assert.True(t, m.Primary)

	methods, err := env.Payments.List(ctx, student)
	require.NoError(t, err)
	got := byID(methods)
	assert.False(t, got[first.ID].Primary)
	assert.True(t, got[second.ID].Primary)

	m, err = env.Payments.Disable(ctx, student, second.ID)
	require.NoError(t, err)
	assert.True(t, m.Disabled)
	assert.False(t, m.Primary)

	_, err = env.Payments.SetPrimary(ctx, student, second.ID)
	assert.Equal(t, payment.ErrDisabled, err)

	// methods of other users are invisible
	other := env.Student(t, "student2", "US")
	_, err = env.Payments.Disable(ctx, other, first.ID)
	assert.Equal(t, payment.ErrNotFound, err)
	_, err = env.Payments.SetPrimary(ctx, other, first.ID)
	assert.Equal(t, payment.ErrNotFound, err)

	// with every method disabled, the next one is primary again
	_, err = env.Payments.Disable(ctx, student, first.ID)
	require.NoError(t, err)
	nm.SingleUseToken = "SUT3"
	third, err := env.Payments.Insert(ctx, student, nm)
	require.NoError(t, err)
	assert.True(t, third.Primary)
}

func TestNewMethod_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name      string
		nm        payment.NewMethod
		wantField string
	}{
		{name: "valid", nm: payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "SUT", Country: "ca", PostalCode: "k1a 0b1"}},
		{name: "no postal code needed", nm: payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "SUT", Country: "HK"}},
		{name: "missing token", nm: payment.NewMethod{EnrollmentID: "e1", Country: "CA", PostalCode: "K1A 0B1"}, wantField: "single_use_token"},
		{name: "unknown country", nm: payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "SUT", Country: "ZZ"}, wantField: "country"},
		{name: "embargoed", nm: payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "SUT", Country: "IR"}, wantField: "country"},
		{name: "missing postal code", nm: payment.NewMethod{EnrollmentID: "e1", SingleUseToken: "SUT", Country: "US"}, wantField: "postal_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nm.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, fieldNames(err), tt.wantField)
		})
	}
}
