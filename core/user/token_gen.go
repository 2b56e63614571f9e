package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

var (
	tokenSalt   = []byte("campus.core.user.token_gen")
	tokenEpoch  = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	dayEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

const day = 24 * time.Hour

// tokenGenerator makes and verifies password reset tokens of the form `<day>-<signature>`.
// day is the base32 issue day, counted from tokenEpoch. The signature covers the user's password
// hash and last login, so a token stops working once the password is changed or the user logs in again.
type tokenGenerator struct {
	key     [sha256.Size]byte
	maxAge  int              // days
	nowFunc func() time.Time // mockable
}

func newTokenGenerator(secretKey string, timeout time.Duration) *tokenGenerator {
	return &tokenGenerator{
		key:     sha256.Sum256(append(append([]byte{}, tokenSalt...), secretKey...)),
		maxAge:  int(timeout / day),
		nowFunc: time.Now,
	}
}

// EncodeUID encodes the user ID for a password reset link.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	return string(id), err
}

// daysSinceEpoch rounds up, so a token issued at the epoch is on day 0 and a second later on day 1.
func daysSinceEpoch(t time.Time) int {
	elapsed := t.Sub(tokenEpoch)
	days := int(elapsed / day)
	if elapsed%day > 0 {
		days++
	}
	return days
}

func (tg *tokenGenerator) makeToken(usr User) string {
	return tg.tokenFor(usr, daysSinceEpoch(tg.nowFunc()))
}

func (tg *tokenGenerator) tokenFor(usr User, issued int) string {
	return dayEncoding.EncodeToString([]byte(strconv.Itoa(issued))) + "-" + tg.signature(usr, issued)
}

func (tg *tokenGenerator) signature(usr User, issued int) string {
	var msg bytes.Buffer
	msg.WriteString(usr.ID)
	msg.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		msg.WriteString(usr.LastLogin.UTC().Format(time.RFC3339Nano))
	}
	msg.WriteString(strconv.Itoa(issued))

	mac := hmac.New(sha256.New, tg.key[:])
	mac.Write(msg.Bytes())
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// issueDay reads the issue day of token, without checking its signature.
func issueDay(token string) (int, error) {
	encoded, _, ok := strings.Cut(token, "-")
	if !ok {
		return 0, errInvalidToken
	}
	raw, err := dayEncoding.DecodeString(encoded)
	if err != nil {
		return 0, errInvalidToken
	}
	issued, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, errInvalidToken
	}
	return issued, nil
}

func (tg *tokenGenerator) verifyToken(usr User, token string) error {
	issued, err := issueDay(token)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(tg.tokenFor(usr, issued)), []byte(token)) == 0 {
		return errInvalidToken
	}
	if daysSinceEpoch(tg.nowFunc())-issued > tg.maxAge {
		return errTokenExpired
	}
	return nil
}
