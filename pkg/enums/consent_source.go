package enums

import "fmt"

// ConsentSource records which surface a privacy consent change came from.
type ConsentSource string

const (
	ConsentSourceWeb    ConsentSource = "web"
	ConsentSourceMobile ConsentSource = "mobile"
	ConsentSourceAPI    ConsentSource = "api"
	ConsentSourceAdmin  ConsentSource = "admin"
)

var validConsentSources = []ConsentSource{
	ConsentSourceWeb,
	ConsentSourceMobile,
	ConsentSourceAPI,
	ConsentSourceAdmin,
}

// String implements fmt.Stringer.
func (c ConsentSource) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConsentSource.
func (c ConsentSource) IsValid() bool {
	for _, candidate := range validConsentSources {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConsentSource converts raw input into a ConsentSource.
func ParseConsentSource(value string) (ConsentSource, error) {
	for _, candidate := range validConsentSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid consent source %q", value)
}
