package validation

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PAN: five letters, four digits, one letter (e.g. ABCDE1234F).
var panRe = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// ISIN: country code, nine alphanumerics, check digit.
var isinRe = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IFSC: four letters, a zero, six alphanumerics.
var ifscRe = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

var mobileRe = regexp.MustCompile(`^(\+91[\-\s]?)?[6-9][0-9]{9}$`)

var aadhaarRe = regexp.MustCompile(`^[0-9]{12}$`)

var fullnameRe = regexp.MustCompile(`^[A-Za-z\s\-'.]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidPAN(pan string) bool {
	return panRe.MatchString(pan)
}

func IsValidISIN(isin string) bool {
	return isinRe.MatchString(isin)
}

func IsValidIFSC(ifsc string) bool {
	return ifscRe.MatchString(ifsc)
}

func IsValidMobile(phone string) bool {
	return mobileRe.MatchString(phone)
}

// IsValidAadhaar accepts 12 digits, spaces allowed between groups.
func IsValidAadhaar(aadhaar string) bool {
	return aadhaarRe.MatchString(NormalizeAadhaar(aadhaar))
}

func NormalizeAadhaar(aadhaar string) string {
	return strings.ReplaceAll(strings.TrimSpace(aadhaar), " ", "")
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

// Upper trims and upper-cases identifiers (PAN, ISIN, IFSC).
func Upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
