// Package normalizers provides field normalization functions for builder matching
package normalizers

import (
	"strings"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// Registered normalizer names
const (
	NameLowercase  = "lowercase"
	NameTrim       = "trim"
	NameEmail      = "nemail"
	NamePhone      = "nphone"
	NameCompany    = "ncompany"
	NameDigitsOnly = "digits_only"
)

var registry = make(map[string]Normalizer)

func init() {
	Register(NameLowercase, Lowercase)
	Register(NameTrim, Trim)
	Register(NameEmail, Email)
	Register(NamePhone, Phone)
	Register(NameCompany, CompanyName)
	Register(NameDigitsOnly, DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Apply applies a named normalizer to a value. Unknown names return the value unchanged.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// IsBlank reports whether s is empty or only whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Email lowercases and trims an email address
func Email(s string) string {
	return ApplyChain(s, NameTrim, NameLowercase)
}

// Phone keeps only the ASCII digits of a phone number, so "+1 (555) 123-4567" becomes "15551234567"
func Phone(s string) string {
	return DigitsOnly(s)
}

// CompanyName lowercases and trims a company name
func CompanyName(s string) string {
	return ApplyChain(s, NameTrim, NameLowercase)
}

// LocationKey builds the case-insensitive "city_country" key
func LocationKey(city, country string) string {
	return Apply(city+"_"+country, NameLowercase)
}

// DigitsOnly keeps only the characters 0-9
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
