// Package validation проверяет свободный текст, который пользователи передают в API.
package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// Ограничения текстовых полей
const (
	MaxCoverLetterLength     = 5000
	MaxMessageLength         = 5000
	MaxHoldDescriptionLength = 500
	MaxDisputeReasonLength   = 2000
)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("%s должен быть не менее %d символов", fieldName, min))
	}
	if max > 0 && length > max {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("%s должен быть не более %d символов", fieldName, max))
	}
	return nil
}

// Sanitize убирает управляющие символы, кроме переводов строк и табуляции, и обрезает пробелы по краям.
func Sanitize(value string) string {
	value = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(value)
}

// Text очищает обязательное поле и проверяет его длину.
func Text(fieldName, value string, max int) (string, error) {
	value = Sanitize(value)
	if value == "" {
		return "", apperror.New(apperror.ErrCodeValidation, fieldName+" обязательно")
	}
	if err := ValidateLength(fieldName, value, 0, max); err != nil {
		return "", err
	}
	return value, nil
}

// OptionalText как Text, но пустое значение превращается в nil.
func OptionalText(fieldName string, value *string, max int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	v := Sanitize(*value)
	if v == "" {
		return nil, nil
	}
	if err := ValidateLength(fieldName, v, 0, max); err != nil {
		return nil, err
	}
	return &v, nil
}
