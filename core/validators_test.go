package core

import (
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unitForm struct {
	Letter string `json:"letter" validate:"unitletter"`
	Order  int    `json:"order" validate:"order"`
	Title  string `json:"title" validate:"required,bytemax=191"`
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

func TestInitValidators(t *testing.T) {
	validate, translator := newValidator()

	tests := []struct {
		name string
		form unitForm
		want map[string]string
	}{
		{name: "valid", form: unitForm{Letter: "B", Order: 3, Title: "Intro"}, want: map[string]string{}},
		{
			name: "all invalid",
			form: unitForm{Letter: "bc", Order: 128, Title: ""},
			want: map[string]string{
				"letter": MsgUnitLetterTooLong,
				"order":  MsgOrderTooLarge,
				"title":  MsgRequired,
			},
		},
		{
			name: "negative order and non-letter",
			form: unitForm{Letter: "3", Order: -1, Title: "x"},
			want: map[string]string{"letter": MsgUnitLetterNotLetter, "order": MsgOrderTooSmall},
		},
		{
			name: "title over byte limit",
			form: unitForm{Letter: "A", Title: strings.Repeat("ü", 96)},
			want: map[string]string{"title": MsgMaxBytes},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[string]string{}
			if err := validate.Struct(tt.form); err != nil {
				vErrs, ok := err.(validator.ValidationErrors)
				require.True(t, ok)
				for _, fe := range vErrs {
					got[fe.Field()] = fe.Translate(translator)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
