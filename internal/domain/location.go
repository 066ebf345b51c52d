package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// LocationCode identifies one rack slot, e.g. "I009"
type LocationCode string

var locationCodePattern = regexp.MustCompile(`^[A-Z]+[0-9]{1,3}$`)

var locationSeparators = strings.NewReplacer("-", "", "_", "", ".", "", "/", "", " ", "", "\t", "")

// NormalizeLocationCode strips separators and upper-cases raw without validating
func NormalizeLocationCode(raw string) string {
	return strings.ToUpper(locationSeparators.Replace(strings.TrimSpace(raw)))
}

// ParseLocationCode normalizes raw and checks it against the slot pattern
func ParseLocationCode(raw string) (LocationCode, error) {
	code := NormalizeLocationCode(raw)
	if !locationCodePattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrMalformedLocationCode, raw)
	}
	return LocationCode(code), nil
}

// Section is the leading letters of the code
func (c LocationCode) Section() string {
	return strings.TrimRight(string(c), "0123456789")
}

func (c LocationCode) String() string {
	return string(c)
}
