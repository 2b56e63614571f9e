// Package country classifies ISO-3166 alpha-2 country codes.
package country

import (
	"regexp"
	"strings"
)

// Currencies
const (
	CurrencyUSD = "USD"
	CurrencyCAD = "CAD"
	CurrencyGBP = "GBP"
	CurrencyAUD = "AUD"
	CurrencyNZD = "NZD"
)

type set map[string]struct{}

func newSet(codes ...string) set {
	s := make(set, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s set) has(code string) bool {
	_, ok := s[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

var (
	euCountries = newSet(
		"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE",
		"IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE",
	)

	eurozoneCountries = newSet(
		"AT", "BE", "HR", "CY", "EE", "FI", "FR", "DE", "GR", "IE", "IT", "LV", "LT", "LU",
		"MT", "NL", "PT", "SK", "SI", "ES",
	)

	gbpCountries = newSet("GB", "GG", "IM", "JE")
	audCountries = newSet("AU", "CX", "CC", "HM", "KI", "NR", "NF", "TV")
	nzdCountries = newSet("NZ", "CK", "NU", "PN", "TK")

	embargoedCountries = newSet("CU", "IR", "KP", "SY")

	// North American Numbering Plan members
	callingCode1Countries = newSet(
		"US", "CA", "AG", "AI", "AS", "BB", "BM", "BS", "DM", "DO", "GD", "GU", "JM", "KN",
		"KY", "LC", "MP", "MS", "PR", "SX", "TC", "TT", "VC", "VG", "VI", "UM",
	)

	noPostalCodeCountries = newSet(
		"AO", "AG", "AW", "BS", "BZ", "BJ", "BW", "BF", "BI", "CM", "CF", "KM", "CG", "CD",
		"CK", "CI", "DJ", "DM", "GQ", "ER", "FJ", "TF", "GM", "GH", "GD", "GN", "GY", "HK",
		"KI", "KP", "LY", "MO", "MW", "ML", "MR", "NR", "NU", "QA", "RW", "KN", "LC", "ST",
		"SC", "SL", "SB", "SR", "SY", "TL", "TG", "TK", "TO", "TT", "TV", "UG", "AE", "VU",
		"YE", "ZW",
	)

	provinceCountries = newSet("CA", "US", "AU")

	nonDigits = regexp.MustCompile(`\D`)
)

// Known reports whether code is an assigned ISO-3166 alpha-2 code.
func Known(code string) bool {
	_, ok := names[normalize(code)]
	return ok
}

// Name returns the English short name of the country, or "" when unknown.
func Name(code string) string { return names[normalize(code)] }

func EUCountry(code string) bool        { return euCountries.has(code) }
func EurozoneCountry(code string) bool  { return eurozoneCountries.has(code) }
func GBPCountry(code string) bool       { return gbpCountries.has(code) }
func AUDCountry(code string) bool       { return audCountries.has(code) }
func NZDCountry(code string) bool       { return nzdCountries.has(code) }
func EmbargoedCountry(code string) bool { return embargoedCountries.has(code) }
func IsCallingCode1(code string) bool   { return callingCode1Countries.has(code) }
func NeedsProvince(code string) bool    { return provinceCountries.has(code) }

// NeedsPostalCode reports whether addresses in the country carry a postal code.
// Unknown codes need none.
func NeedsPostalCode(code string) bool {
	return Known(code) && !noPostalCodeCountries.has(code)
}

// CurrencyFor returns the currency students from the country are billed in.
func CurrencyFor(code string) string {
	switch {
	case GBPCountry(code):
		return CurrencyGBP
	case AUDCountry(code):
		return CurrencyAUD
	case NZDCountry(code):
		return CurrencyNZD
	case normalize(code) == "CA":
		return CurrencyCAD
	default:
		return CurrencyUSD
	}
}

// FixTelephoneNumber formats North American numbers as NNN-NNN-NNNN.
// Other numbers are only trimmed.
func FixTelephoneNumber(code, number string) string {
	number = strings.TrimSpace(number)
	if !IsCallingCode1(code) {
		return number
	}
	digits := nonDigits.ReplaceAllString(number, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return number
	}
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
}

// Classification groups every flag known about one country.
type Classification struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Known           bool   `json:"known"`
	EU              bool   `json:"eu"`
	Eurozone        bool   `json:"eurozone"`
	Embargoed       bool   `json:"embargoed"`
	CallingCode1    bool   `json:"calling_code_1"`
	NeedsPostalCode bool   `json:"needs_postal_code"`
	NeedsProvince   bool   `json:"needs_province"`
	Currency        string `json:"currency"`
}

func Classify(code string) Classification {
	code = normalize(code)
	return Classification{
		Code:            code,
		Name:            Name(code),
		Known:           Known(code),
		EU:              EUCountry(code),
		Eurozone:        EurozoneCountry(code),
		Embargoed:       EmbargoedCountry(code),
		CallingCode1:    IsCallingCode1(code),
		NeedsPostalCode: NeedsPostalCode(code),
		NeedsProvince:   NeedsProvince(code),
		Currency:        CurrencyFor(code),
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
