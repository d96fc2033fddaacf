// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0. See NOTICE file for full attribution.

package reckon

import (
	"fmt"
	"strings"
)

// LanguageVersions contains version strings for different language ecosystems
type LanguageVersions struct {
	SemVer     string `json:"semver"`
	Python     string `json:"python"`
	JavaScript string `json:"javascript"`
	DotNet     string `json:"dotnet"`
	Go         string `json:"go"`
}

// Get returns the rendering for a language name as accepted by the CLI.
func (l LanguageVersions) Get(language string) (string, error) {
	switch normalizeInput(language) {
	case "", "generic", "semver":
		return l.SemVer, nil
	case "python":
		return l.Python, nil
	case "javascript", "js", "node":
		return l.JavaScript, nil
	case "dotnet", ".net", "csharp":
		return l.DotNet, nil
	case "go", "golang":
		return l.Go, nil
	default:
		return "", inputError(map[string]any{"language": language},
			"unknown language %q, expected one of: semver, python, javascript, dotnet, go", language)
	}
}

// pep440Prefixes maps stage names to PEP 440 pre-release segments.
var pep440Prefixes = map[string]string{
	"dev":   "dev",
	"alpha": "a",
	"a":     "a",
	"beta":  "b",
	"b":     "b",
	"rc":    "rc",
}

// Languages renders v for each supported ecosystem. Stages without a PEP 440
// equivalent are rendered for Python as development releases.
func Languages(v Version) LanguageVersions {
	semver := v.String()
	return LanguageVersions{
		SemVer:     semver,
		Python:     pythonVersion(v),
		JavaScript: "v" + semver,
		DotNet:     semver,
		Go:         "v" + semver,
	}
}

// pythonVersion maps a reckoned version onto PEP 440:
//
//	1.2.0            -> 1.2.0
//	1.2.0-rc.2       -> 1.2.0rc2
//	1.2.0-beta.1.4+x -> 1.2.0b1.dev4+x
//	1.2.0-dev.0.3+x  -> 1.2.0.dev0+3.x
//	1.2.0-SNAPSHOT   -> 1.2.0.dev0
func pythonVersion(v Version) string {
	normal := v.Normal().String()
	if v.IsFinal() {
		return withLocal(normal, v.Build())
	}

	stage, ok := v.Stage()
	if !ok {
		return withLocal(normal+".dev0", v.Build())
	}

	var b strings.Builder
	b.WriteString(normal)

	// development builds carry the commit count as a third identifier
	var commits string
	if parts := strings.Split(v.PreRelease(), "."); len(parts) > 2 {
		commits = parts[2]
	}

	prefix, known := pep440Prefixes[strings.ToLower(stage.Name)]
	switch {
	case known && prefix == "dev":
		// PEP 440 allows a single dev segment, the commit count leads the local label
		fmt.Fprintf(&b, ".dev%d", stage.Num)
		if commits != "" {
			return withLocal(b.String(), joinNonEmpty(commits, v.Build()))
		}
	case known:
		fmt.Fprintf(&b, "%s%d", prefix, stage.Num)
		if commits != "" {
			fmt.Fprintf(&b, ".dev%s", commits)
		}
	default:
		if commits == "" {
			commits = fmt.Sprint(stage.Num)
		}
		fmt.Fprintf(&b, ".dev%s", commits)
	}
	return withLocal(b.String(), v.Build())
}

// withLocal appends build metadata as a PEP 440 local version label.
func withLocal(version, build string) string {
	if build == "" {
		return version
	}
	return version + "+" + strings.ReplaceAll(build, "-", ".")
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
