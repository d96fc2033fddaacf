package reckon

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/blang/semver"
)

var stageRegex = regexp.MustCompile(`^(\w+)(?:\.(\d+))?`)

// Version is an immutable SemVer 2.0.0 version. The zero value is 0.0.0, which
// doubles as the base when no tagged version is reachable.
type Version struct {
	v semver.Version
}

// Identity is the 0.0.0 version used when there is nothing to build on.
var Identity = Version{}

// Stage is the named, numbered pre-release phase of a version, e.g. rc.2.
type Stage struct {
	Name string
	Num  uint64
}

// ParseVersion parses a SemVer 2.0.0 string. A leading "v" is not accepted;
// use a TagParser for tag names.
func ParseVersion(s string) (Version, error) {
	v, err := semver.Parse(s)
	if err != nil {
		return Version{}, &Error{
			Kind:    KindInput,
			Message: fmt.Sprintf("invalid version %q", s),
			Cause:   err,
			Context: map[string]any{"version": s},
		}
	}
	return Version{v: v}, nil
}

// MustParse is like ParseVersion but panics on invalid input.
func MustParse(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Major() uint64 { return v.v.Major }
func (v Version) Minor() uint64 { return v.v.Minor }
func (v Version) Patch() uint64 { return v.v.Patch }

// PreRelease returns the dot-joined pre-release identifiers, or "" for a final version.
func (v Version) PreRelease() string {
	parts := make([]string, len(v.v.Pre))
	for i, pre := range v.v.Pre {
		parts[i] = pre.String()
	}
	return strings.Join(parts, ".")
}

// Build returns the dot-joined build metadata, or "".
func (v Version) Build() string {
	return strings.Join(v.v.Build, ".")
}

func (v Version) String() string {
	return v.v.String()
}

// Normal returns the MAJOR.MINOR.PATCH part of the version.
func (v Version) Normal() Version {
	return Version{v: semver.Version{Major: v.v.Major, Minor: v.v.Minor, Patch: v.v.Patch}}
}

// IsFinal reports whether the version has no pre-release part.
func (v Version) IsFinal() bool {
	return len(v.v.Pre) == 0
}

// Stage returns the stage encoded in the pre-release part. A pre-release
// without a numeric second identifier has stage number 0.
func (v Version) Stage() (Stage, bool) {
	m := stageRegex.FindStringSubmatch(v.PreRelease())
	if m == nil {
		return Stage{}, false
	}
	stage := Stage{Name: m[1]}
	if m[2] != "" {
		num, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return Stage{}, false
		}
		stage.Num = num
	}
	return stage, true
}

// IsSignificant reports whether the version is final or a stage release
// without build metadata that is not a SNAPSHOT.
func (v Version) IsSignificant() bool {
	if v.IsFinal() {
		return true
	}
	stage, ok := v.Stage()
	return ok && stage.Name != "SNAPSHOT" && len(v.v.Build) == 0
}

// IncrementNormal bumps the component named by scope, zeroing the lower
// components. Pre-release and build metadata are dropped.
func (v Version) IncrementNormal(scope Scope) Version {
	n := v.Normal()
	switch scope {
	case Major:
		n.v.Major++
		n.v.Minor = 0
		n.v.Patch = 0
	case Minor:
		n.v.Minor++
		n.v.Patch = 0
	case Patch:
		n.v.Patch++
	default:
		panic(fmt.Sprintf("invalid scope: %d", scope))
	}
	return n
}

// Compare returns -1, 0 or 1 following SemVer precedence. Build metadata is ignored.
func (v Version) Compare(o Version) int {
	return v.v.Compare(o.v)
}

// Equal reports whether both versions render identically, build metadata included.
func (v Version) Equal(o Version) bool {
	return v.String() == o.String()
}

// LessThan reports whether v has lower precedence than o.
func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) withPreRelease(pre string) (Version, error) {
	return ParseVersion(v.Normal().String() + "-" + pre)
}

func (v Version) withBuild(build string) (Version, error) {
	s := v.Normal().String()
	if pre := v.PreRelease(); pre != "" {
		s += "-" + pre
	}
	return ParseVersion(s + "+" + build)
}

// VersionSet is an unordered collection of distinct versions. Versions that
// differ only in build metadata are distinct members.
type VersionSet struct {
	m map[string]Version
}

// NewVersionSet returns a set holding vs.
func NewVersionSet(vs ...Version) VersionSet {
	s := VersionSet{m: make(map[string]Version, len(vs))}
	for _, v := range vs {
		s.m[v.String()] = v
	}
	return s
}

func (s *VersionSet) add(v Version) {
	if s.m == nil {
		s.m = make(map[string]Version)
	}
	s.m[v.String()] = v
}

// Contains reports whether v is a member.
func (s VersionSet) Contains(v Version) bool {
	_, ok := s.m[v.String()]
	return ok
}

// Len returns the number of members.
func (s VersionSet) Len() int {
	return len(s.m)
}

// Sorted returns the members in ascending precedence.
func (s VersionSet) Sorted() []Version {
	out := make([]Version, 0, len(s.m))
	for _, v := range s.m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Compare(out[j]); c != 0 {
			return c < 0
		}
		return out[i].String() < out[j].String()
	})
	return out
}

func (s VersionSet) String() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
