package validation

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

// New возвращает валидатор с зарегистрированным правилом "password".
func New() *validator.Validate {
	validate := validator.New()

	if err := validate.RegisterValidation("password", passwordRule); err != nil {
		panic("failed to register password validation: " + err.Error())
	}

	return validate
}

// Пароль: минимум 9 символов, хотя бы одна строчная и заглавная буква и цифра.
func passwordRule(fl validator.FieldLevel) bool {
	pass := fl.Field().String()

	if len(pass) < 9 {
		return false
	}

	var hasLower, hasUpper, hasDigit bool

	for _, r := range pass {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	return hasLower && hasUpper && hasDigit
}
