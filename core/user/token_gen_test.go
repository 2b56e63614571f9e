package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator(t *testing.T) {
	tg := newTokenGenerator("secret", 3*day)

	now := time.Now()
	usr := User{ID: "7b0f2a0e-2d4c-4c55-9d3c-0d1b8f6c2f11", Username: "tutor", Email: "tutor@example.com", LastLogin: now}
	usr.SetActive(true)
	require.NoError(t, usr.SetPassword("Tr0ub4dor&3x"))

	valid := tg.makeToken(usr)

	tg.nowFunc = func() time.Time { return now.Add(-4 * day) }
	expired := tg.makeToken(usr)
	tg.nowFunc = time.Now

	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	changedPwd := usr
	require.NoError(t, changedPwd.SetPassword("N3w!password"))

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "empty", usr: usr, wantErr: errInvalidToken},
		{name: "no signature", usr: usr, token: "GEYDA", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sig", wantErr: errInvalidToken},
		{name: "day not a number", usr: usr, token: "NRXWY-sig", wantErr: errInvalidToken},
		{name: "forged signature", usr: usr, token: "HE4TS-sig", wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: expired, wantErr: errTokenExpired},
		{name: "logged in since", usr: loggedIn, token: valid, wantErr: errInvalidToken},
		{name: "password changed", usr: changedPwd, token: valid, wantErr: errInvalidToken},
		{name: "valid", usr: usr, token: valid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantErr, tg.verifyToken(tc.usr, tc.token))
		})
	}
}

func TestDaysSinceEpoch(t *testing.T) {
	assert.Equal(t, 0, daysSinceEpoch(tokenEpoch))
	assert.Equal(t, 1, daysSinceEpoch(tokenEpoch.Add(time.Second)))
	assert.Equal(t, 1, daysSinceEpoch(tokenEpoch.Add(day)))
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "a1b2"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)
}
