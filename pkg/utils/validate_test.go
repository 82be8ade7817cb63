package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "  first.last@agency.gov ", "medic+1@hospital.org"}
	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}

	invalid := []string{"", "   ", "plainaddress", "a@b", "Ada <a@b.com>", "a@@b.com"}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}
