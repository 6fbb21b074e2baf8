// Package validators registers the custom validation tags used across the
// credit service.
package validators

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CNPJLength is the number of digits of a normalised CNPJ.
const CNPJLength = 14

var cnpjSeparators = strings.NewReplacer(".", "", "/", "", "-", "")

// New returns a validator with every custom tag registered.
func New() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("cnpj", CNPJ)
	return validate
}

// NormalizeCNPJ strips the '.', '/' and '-' separators.
func NormalizeCNPJ(raw string) string {
	return cnpjSeparators.Replace(strings.TrimSpace(raw))
}

// FormatCNPJ renders a 14-digit CNPJ as XX.XXX.XXX/XXXX-XX. Other inputs are
// returned unchanged.
func FormatCNPJ(digits string) string {
	if !isCNPJ(digits) {
		return digits
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
}

// CNPJ accepts a normalised tax id: exactly 14 ASCII digits.
func CNPJ(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return isCNPJ(field.String())
}

func isCNPJ(s string) bool {
	if len(s) != CNPJLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
