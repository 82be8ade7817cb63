package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the same validator gin uses behind binding tags.
var validate = validator.New()

// IsValidEmail accepts a bare address such as "a@b.com". Display-name forms
// ("Ada <a@b.com>") are rejected.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) > 254 {
		return false
	}
	return validate.Var(email, "required,email") == nil
}
