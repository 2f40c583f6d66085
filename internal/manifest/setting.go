package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// Setting parse failures.
var (
	// ErrMissingEquals indicates a setting without "=".
	ErrMissingEquals = errors.New(`expected setting to contain "="`)

	// ErrMissingName indicates a setting with nothing ahead of "=".
	ErrMissingName = errors.New(`expected a service name ahead of "="`)
)

// ParseError reports a malformed --set argument.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v, got %q", e.Err, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseSetting parses "name=version". An empty version means removal.
// Only the first two "="-separated fields are significant.
func ParseSetting(s string) (ServiceSetting, error) {
	fields := strings.Split(s, "=")
	if len(fields) < 2 {
		return ServiceSetting{}, &ParseError{Input: s, Err: ErrMissingEquals}
	}
	if fields[0] == "" {
		return ServiceSetting{}, &ParseError{Input: s, Err: ErrMissingName}
	}

	setting := ServiceSetting{Name: fields[0]}
	if fields[1] != "" {
		version := fields[1]
		setting.Version = &version
	}
	return setting, nil
}

// ParseSettings parses every argument and fails on the first malformed one,
// so a bad setting is caught before anything touches the store.
func ParseSettings(args []string) ([]ServiceSetting, error) {
	settings := make([]ServiceSetting, 0, len(args))
	for _, arg := range args {
		s, err := ParseSetting(arg)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, nil
}
