package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/openschool/campus/assets"
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/country"
)

// MsgEmbargoed is shown when a student lives in an embargoed country.
const MsgEmbargoed = "we are unable to accept students from this country"

const (
	allRolesTag         = "allroles"
	usernameOrEmailTag  = "username_or_email"
	embargoedTag        = "embargoed"
	postalCodeTag       = "postal_code"
	provinceTag         = "province"
	pwdMinLen           = 8
	pwdMaxSimilarity    = .7
	usernameOrEmailText = "one of username or email is required"
)

// passwordRule is one check of the password policy. attrs are the user's name, username and email.
type passwordRule struct {
	tag  string
	text string
	ok   func(pwd string, attrs []string) bool
}

// passwordPolicy is checked in order; only the first broken rule is reported.
var passwordPolicy = []passwordRule{
	{"pwdminlen", fmt.Sprintf("password must contain at least %d characters", pwdMinLen), func(pwd string, _ []string) bool {
		return len(pwd) >= pwdMinLen
	}},
	{"pwdnospace", "password must not contain whitespace", func(pwd string, _ []string) bool {
		return strings.IndexFunc(pwd, unicode.IsSpace) < 0
	}},
	{"pwdnotallnum", "password cannot be entirely numeric", func(pwd string, _ []string) bool {
		return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
	}},
	{"pwdcplx", "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character", func(pwd string, _ []string) bool {
		return strings.IndexFunc(pwd, unicode.IsUpper) >= 0 &&
			strings.IndexFunc(pwd, unicode.IsLower) >= 0 &&
			strings.IndexFunc(pwd, unicode.IsDigit) >= 0 &&
			specialRegex.MatchString(pwd)
	}},
	{"pwdtoosim", "password cannot be similar to user attributes", func(pwd string, attrs []string) bool {
		for _, attr := range attrs {
			if attr != "" && similarity(pwd, attr) >= pwdMaxSimilarity {
				return false
			}
		}
		return true
	}},
	{"pwdnocommon", "password is too common", func(pwd string, _ []string) bool {
		lpwd := strings.ToLower(pwd)
		i := sort.SearchStrings(commonPasswords, lpwd)
		return i == len(commonPasswords) || commonPasswords[i] != lpwd
	}},
}

var (
	specialRegex    = regexp.MustCompile("[^A-Za-z0-9]")
	commonPasswords = make([]string, 0, 128)
)

func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
}

// InitValidators registers the user validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, UpdateProfile{})

	texts := map[string]string{
		allRolesTag:        "invalid roles",
		usernameOrEmailTag: usernameOrEmailText,
		embargoedTag:       MsgEmbargoed,
		postalCodeTag:      core.MsgRequired,
		provinceTag:        core.MsgRequired,
	}
	for _, rule := range passwordPolicy {
		texts[rule.tag] = rule.text
	}
	for tag, text := range texts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// LoadCommonPasswords loads the embedded list of passwords refused by the password policy.
func LoadCommonPasswords(logger core.Logger) {
	file, err := assets.FS.Open(assets.CommonPasswordsFile)
	if err != nil {
		logger.Error(fmt.Sprintf("opening common passwords: %v", err), err)
		return
	}
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		logger.Error(fmt.Sprintf("reading common passwords: %v", err), err)
		return
	}
	pwds := make([]string, 0, cap(commonPasswords))
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	sort.Strings(pwds)
	commonPasswords = pwds
}

// Custom Validators

// allRolesValidation checks that provided user roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if RolePriority(role) == 0 {
			return false
		}
	}
	return true
}

// userStructValidation does struct level validation on NewUser, UpdateUser and UpdateProfile structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validateUsernameAndEmail(usr, sl)
		validatePassword(usr.Password, usr.Name, usr.Username, usr.Email, sl)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.Name, usr.Username, usr.Email, sl)
		}
	case UpdateProfile:
		validateAddress(usr, sl)
	}
}

// validateUsernameAndEmail checks that one of Username or Email is provided
func validateUsernameAndEmail(nu NewUser, sl validator.StructLevel) {
	if len(nu.Username) == 0 && len(nu.Email) == 0 {
		sl.ReportError(nu.Username, "username", "Username", usernameOrEmailTag, "")
		sl.ReportError(nu.Email, "email", "Email", usernameOrEmailTag, "")
	}
}

// validateAddress applies the country rules: no embargoed country, postal code and province where required.
func validateAddress(up UpdateProfile, sl validator.StructLevel) {
	if up.Country == "" || !country.Known(up.Country) {
		return // reported by the field validators
	}
	if country.EmbargoedCountry(up.Country) {
		sl.ReportError(up.Country, "country", "Country", embargoedTag, "")
	}
	if country.NeedsPostalCode(up.Country) && up.PostalCode == "" {
		sl.ReportError(up.PostalCode, "postal_code", "PostalCode", postalCodeTag, "")
	}
	if country.NeedsProvince(up.Country) && up.Province == "" {
		sl.ReportError(up.Province, "province", "Province", provinceTag, "")
	}
}

// passwordViolation returns the tag of the first rule of the password policy pwd breaks, if any.
func passwordViolation(pwd string, attrs ...string) string {
	for _, rule := range passwordPolicy {
		if !rule.ok(pwd, attrs) {
			return rule.tag
		}
	}
	return ""
}

func validatePassword(pwd, name, uname, email string, sl validator.StructLevel) {
	if tag := passwordViolation(pwd, name, uname, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}
