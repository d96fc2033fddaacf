package reckon

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Scope is the significance of a change: PATCH < MINOR < MAJOR. The zero
// value means no scope.
type Scope int

const (
	Patch Scope = iota + 1
	Minor
	Major
)

var scopeNames = map[Scope]string{
	Patch: "patch",
	Minor: "minor",
	Major: "major",
}

func (s Scope) String() string {
	return scopeNames[s]
}

// ParseScope parses a scope name, ignoring case and surrounding space.
func ParseScope(value string) (Scope, error) {
	normalized := normalizeInput(value)
	for scope, name := range scopeNames {
		if name == normalized {
			return scope, nil
		}
	}
	return 0, inputError(
		map[string]any{"scope": value, "valid": []string{"major", "minor", "patch"}},
		"scope %q is not one of: major, minor, patch", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// InferScope deduces the scope of the jump between the normal parts of before
// and after. ok is false when the normals are equal. Any jump that is not a
// single increment of one component, with the lower components of after at
// zero, is a state error.
func InferScope(before, after Version) (scope Scope, ok bool, err error) {
	b, a := before.Normal(), after.Normal()
	switch {
	case a.Equal(b):
		return 0, false, nil
	case a.Major() == b.Major()+1 && a.Minor() == 0 && a.Patch() == 0:
		return Major, true, nil
	case a.Major() == b.Major() && a.Minor() == b.Minor()+1 && a.Patch() == 0:
		return Minor, true, nil
	case a.Major() == b.Major() && a.Minor() == b.Minor() && a.Patch() == b.Patch()+1:
		return Patch, true, nil
	}
	return 0, false, stateError(
		map[string]any{"before": before.String(), "after": after.String()},
		"cannot infer scope between %s and %s", before, after)
}

func normalizeInput(value string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(value))
}
