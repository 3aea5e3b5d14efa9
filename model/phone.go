package model

import (
	"fmt"
	"strings"

	"github.com/biter777/countries"
	"github.com/ttacon/libphonenumber"
)

// NormalizePhone parses a telephone number and returns it in E.164. region
// is the ISO alpha-2 country used for numbers without a country prefix.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = "US"
	}
	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", raw, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// NormalizeCountry accepts a country name or code and returns the alpha-2
// code, or "" if the country is unknown.
func NormalizeCountry(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	c := countries.ByName(s)
	if c == countries.Unknown {
		return ""
	}
	return c.Alpha2()
}
