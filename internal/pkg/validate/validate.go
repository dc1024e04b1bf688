package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Custom rules are registered
// during init, before the first call to Struct.
var v = validator.New()

func init() {
	// The regexp package has no lookaheads, so the password rule is a
	// character walk instead of the one-line regex it mirrors.
	_ = v.RegisterValidation("password", validPassword)
	_ = v.RegisterValidation("username", validUsername)
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// validPassword enforces the account password policy: at least 10
// characters with an uppercase letter, a lowercase letter, a digit and a
// special character, and no whitespace.
func validPassword(fl validator.FieldLevel) bool {
	pw := fl.Field().String()
	if len(pw) < 10 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsSpace(r):
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// validUsername allows 2-30 characters: letters, digits, dots, underscores
// and hyphens.
func validUsername(fl validator.FieldLevel) bool {
	u := fl.Field().String()
	if len(u) < 2 || len(u) > 30 {
		return false
	}
	for _, r := range u {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
