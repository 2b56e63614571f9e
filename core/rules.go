package core

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/openschool/campus/core/country"
)

// Field limits.
const (
	ShortTextMaxBytes = 191
	LongTextMaxBytes  = 65535
	OrderMin          = 0
	OrderMax          = 127
)

// Messages shared by the API validators and the view forms.
const (
	MsgRequired            = "Required"
	MsgMaxBytes            = "Exceeds maximum length"
	MsgUnitLetterTooLong   = "Maximum of one character allowed"
	MsgUnitLetterNotLetter = "Only letters A to Z are allowed"
	MsgInvalidNumber       = "Invalid number"
	MsgOrderTooSmall       = "Cannot be less than zero"
	MsgOrderTooLarge       = "Cannot be greater than 127"
	MsgInvalidCountry      = "invalid country"
)

// RequiredMessage returns MsgRequired when s is blank.
func RequiredMessage(s string) string {
	if strings.TrimSpace(s) == "" {
		return MsgRequired
	}
	return ""
}

// MaxBytesMessage checks the UTF-8 encoded length of s, not its character count.
func MaxBytesMessage(s string, max int) string {
	if len(s) > max {
		return MsgMaxBytes
	}
	return ""
}

// TextMessage combines the required and byte-length checks.
func TextMessage(s string, max int, required bool) string {
	if required {
		if msg := RequiredMessage(s); msg != "" {
			return msg
		}
	}
	return MaxBytesMessage(s, max)
}

// UnitLetterMessage validates a single-letter unit designator.
func UnitLetterMessage(s string) string {
	switch n := utf8.RuneCountInString(s); {
	case n == 0:
		return MsgRequired
	case n > 1:
		return MsgUnitLetterTooLong
	}
	if c := s[0]; !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return MsgUnitLetterNotLetter
	}
	return ""
}

// CleanUnitLetter returns the stored (upper-cased) form of a unit letter.
func CleanUnitLetter(s string) string {
	return strings.ToUpper(s)
}

// OrderMessage validates an already parsed order value.
func OrderMessage(n int) string {
	switch {
	case n < OrderMin:
		return MsgOrderTooSmall
	case n > OrderMax:
		return MsgOrderTooLarge
	}
	return ""
}

// ParseOrder parses user input for an order field. The returned message is empty when valid.
func ParseOrder(s string) (int, string) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, MsgInvalidNumber
	}
	return n, OrderMessage(n)
}

// CountryMessage validates an ISO-3166 alpha-2 country code typed by a user.
func CountryMessage(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case code == "":
		return MsgRequired
	case !country.Known(code):
		return MsgInvalidCountry
	}
	return ""
}
