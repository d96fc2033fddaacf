package reckon

import (
	"path"
	"regexp"
	"strings"
)

// TagParser maps a tag name to the version it represents. ok is false for
// tags that are not versions.
type TagParser func(name string) (v Version, ok bool)

// TagWriter maps a version to the tag name it would be released under.
type TagWriter func(v Version) string

// DefaultTagParser accepts SemVer tag names with an optional leading "v".
func DefaultTagParser(name string) (Version, bool) {
	v, err := ParseVersion(strings.TrimPrefix(name, "v"))
	if err != nil {
		return Version{}, false
	}
	return v, true
}

// DefaultTagWriter names tags with the bare version.
func DefaultTagWriter(v Version) string {
	return v.String()
}

// PrefixTagParser only accepts tags starting with prefix (e.g. "sdk/v") and
// parses the remainder with DefaultTagParser.
func PrefixTagParser(prefix string) TagParser {
	return func(name string) (Version, bool) {
		if !strings.HasPrefix(name, prefix) {
			return Version{}, false
		}
		return DefaultTagParser(strings.TrimPrefix(name, prefix))
	}
}

// PrefixTagWriter names tags as prefix followed by the version.
func PrefixTagWriter(prefix string) TagWriter {
	return func(v Version) string {
		return prefix + v.String()
	}
}

// ModuleTagParser ignores any path before the last "/" so that module tags
// such as sdk/nodejs/v2.1.0 are read as 2.1.0.
func ModuleTagParser(name string) (Version, bool) {
	_, last := path.Split(name)
	return DefaultTagParser(last)
}

// FilteredTagParser only hands tags matching pattern to next.
func FilteredTagParser(pattern *regexp.Regexp, next TagParser) TagParser {
	return func(name string) (Version, bool) {
		if !pattern.MatchString(name) {
			return Version{}, false
		}
		return next(name)
	}
}
