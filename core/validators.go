package core

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/openschool/campus/core/country"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	byteMaxTag = "bytemax"

	unitLetterTag = "unitletter"
	orderTag      = "order"

	countryTag  = "country"
	countryText = MsgInvalidCountry

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = MsgRequired
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(byteMaxTag, byteMaxValidation)
	RegisterCustomTranslation(validate, translator, byteMaxTag, MsgMaxBytes)

	_ = validate.RegisterValidation(unitLetterTag, unitLetterValidation)
	RegisterMessageTranslation(validate, translator, unitLetterTag, func(fe validator.FieldError) string {
		s, _ := fe.Value().(string)
		return UnitLetterMessage(s)
	})

	_ = validate.RegisterValidation(orderTag, orderValidation)
	RegisterMessageTranslation(validate, translator, orderTag, func(fe validator.FieldError) string {
		if v := reflect.ValueOf(fe.Value()); isIntKind(v.Kind()) {
			return OrderMessage(int(v.Int()))
		}
		return MsgInvalidNumber
	})

	_ = validate.RegisterValidation(countryTag, countryValidation)
	RegisterCustomTranslation(validate, translator, countryTag, countryText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterMessageTranslation registers a translation whose text depends on the offending value.
func RegisterMessageTranslation(validate *validator.Validate, translator ut.Translator, tag string, msgFunc func(validator.FieldError) string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return nil },
		func(t ut.Translator, fe validator.FieldError) string { return msgFunc(fe) },
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// byteMaxValidation checks the UTF-8 byte length of a string field against the tag param.
func byteMaxValidation(fl validator.FieldLevel) bool {
	max, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return MaxBytesMessage(fl.Field().String(), max) == ""
}

func unitLetterValidation(fl validator.FieldLevel) bool {
	return UnitLetterMessage(fl.Field().String()) == ""
}

func orderValidation(fl validator.FieldLevel) bool {
	if !isIntKind(fl.Field().Kind()) {
		return false
	}
	return OrderMessage(int(fl.Field().Int())) == ""
}

// countryValidation only allows assigned ISO-3166 alpha-2 codes.
func countryValidation(fl validator.FieldLevel) bool {
	return country.Known(fl.Field().String())
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
