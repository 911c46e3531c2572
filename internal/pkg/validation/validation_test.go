package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPAN(t *testing.T) {
	assert.True(t, IsValidPAN("ABCDE1234F"))
	assert.False(t, IsValidPAN("abcde1234f"))
	assert.False(t, IsValidPAN("NEW1234567"))
	assert.True(t, IsValidPAN(Upper(" abcde1234f ")))
}

func TestIsValidISIN(t *testing.T) {
	assert.True(t, IsValidISIN("INF109K01Z48"))
	assert.True(t, IsValidISIN("INF200K01RJ1"))
	assert.False(t, IsValidISIN("INF109K01Z4"))
	assert.False(t, IsValidISIN("1NF109K01Z48"))
}

func TestIsValidMobile(t *testing.T) {
	assert.True(t, IsValidMobile("9876543210"))
	assert.True(t, IsValidMobile("+91-9876543210"))
	assert.True(t, IsValidMobile("+91 9123456789"))
	assert.False(t, IsValidMobile("12345"))
	assert.False(t, IsValidMobile("5876543210"))
}

func TestIsValidAadhaar(t *testing.T) {
	assert.True(t, IsValidAadhaar("1234 5678 9012"))
	assert.Equal(t, "123456789012", NormalizeAadhaar(" 1234 5678 9012"))
	assert.False(t, IsValidAadhaar("1234"))
}

func TestIsValidIFSC(t *testing.T) {
	assert.True(t, IsValidIFSC("HDFC0001234"))
	assert.False(t, IsValidIFSC("HDFC1001234"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("rahul.sharma@email.com"))
	assert.False(t, IsValidEmail("rahul.sharma"))
}

func TestIsValidFullname(t *testing.T) {
	assert.True(t, IsValidFullname("Rahul Sharma"))
	assert.True(t, IsValidFullname("D'Souza-Nair"))
	assert.False(t, IsValidFullname("R2D2"))
	assert.False(t, IsValidFullname(""))
}
