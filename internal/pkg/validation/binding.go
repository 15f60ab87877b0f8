package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"github.com/universys/universyslite/internal/app/models"
)

// custom validation tags and their messages
var customTags = map[string]struct {
	fn   validator.Func
	text string
}{
	"grade":   {gradeValidation, "{0} must be a letter grade"},
	"hhmm":    {clockValidation, "{0} must be a 24-hour time formatted as HH:MM"},
	"decimal": {decimalValidation, "{0} must be a positive amount with at most 2 decimals"},
}

var translator ut.Translator

// Translator returns the English translator registered by RegisterValidators.
func Translator() ut.Translator {
	return translator
}

// RegisterValidators installs JSON field names, custom tags and English
// messages on gin's validator engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return Configure(v)
}

// Configure registers custom tags and translations on v.
func Configure(v *validator.Validate) error {
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return err
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	for tag, rule := range customTags {
		if err := v.RegisterValidation(tag, rule.fn); err != nil {
			return err
		}
		if err := registerTranslation(v, trans, tag, rule.text); err != nil {
			return err
		}
	}

	translator = trans
	return nil
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) error {
	return v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func gradeValidation(fl validator.FieldLevel) bool {
	_, err := models.ParseGrade(fl.Field().String())
	return err == nil
}

func clockValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 {
		return false
	}
	_, err := models.ParseClock(s)
	return err == nil
}

func decimalValidation(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive() && d.Exponent() >= -2
}
