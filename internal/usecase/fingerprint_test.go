package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessage(t *testing.T) {
	assert.Equal(t, "my ac stopped working", NormalizeMessage("  My   AC stopped\n working "))
	assert.Equal(t, "", NormalizeMessage("   \t\n"))
}

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("My AC stopped working", "gemini-2.5-flash")
	b := Fingerprint("my  ac   stopped working", "gemini-2.5-flash")
	assert.Equal(t, a, b, "whitespace and casing must not change the fingerprint")

	c := Fingerprint("My AC stopped working", "llama3.1")
	assert.NotEqual(t, a, c, "the model id is part of the key")

	d := Fingerprint("My heater stopped working", "gemini-2.5-flash")
	assert.NotEqual(t, a, d)
}
