package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core/country"
)

func Test_classifyCountry(t *testing.T) {
	_, srv := setup(t)

	rec := serve(t, srv, http.MethodGet, "/v1/countries/ca", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c country.Classification
	decode(t, rec, &c)
	assert.Equal(t, "CA", c.Code)
	assert.Equal(t, country.CurrencyCAD, c.Currency)
	assert.True(t, c.NeedsProvince)
	assert.True(t, c.NeedsPostalCode)
	assert.True(t, c.CallingCode1)
	assert.False(t, c.Embargoed)

	rec = serve(t, srv, http.MethodGet, "/v1/countries/KP", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assert.True(t, c.Embargoed)

	check(t, srv, []httpTest{
		{name: "unknown", method: http.MethodGet, path: "/v1/countries/ZZ", wantCode: http.StatusNotFound, wantError: msgNotFound},
	})
}
