package reckon

import (
	"regexp"

	"go.uber.org/zap"
)

// ScopeCalculator decides the requested scope for an inventory. ok is false
// when it has no opinion.
type ScopeCalculator func(inv Inventory) (scope Scope, ok bool, err error)

// Or falls back to next when c has no opinion.
func (c ScopeCalculator) Or(next ScopeCalculator) ScopeCalculator {
	return func(inv Inventory) (Scope, bool, error) {
		scope, ok, err := c(inv)
		if err != nil || ok {
			return scope, ok, err
		}
		return next(inv)
	}
}

// NoScope never requests a scope, leaving it to inference.
func NoScope(Inventory) (Scope, bool, error) {
	return 0, false, nil
}

// FixedScope always requests scope.
func FixedScope(scope Scope) ScopeCalculator {
	return func(Inventory) (Scope, bool, error) {
		return scope, true, nil
	}
}

// UserScope reads a scope name from value, typically a flag or property.
// Case is ignored and an empty string means no scope.
func UserScope(value func(Inventory) string) ScopeCalculator {
	return func(inv Inventory) (Scope, bool, error) {
		s := normalizeInput(value(inv))
		if s == "" {
			return 0, false, nil
		}
		scope, err := ParseScope(s)
		if err != nil {
			return 0, false, err
		}
		return scope, true, nil
	}
}

// CommitMessageScopeParser reads a scope from a single commit message.
// preV1 is true while the base normal is below 1.0.0.
type CommitMessageScopeParser func(message string, preV1 bool) (Scope, bool)

var subjectPrefixRegex = regexp.MustCompile(`^(major!|major|minor|patch)(?:\(.*?\))?: .+`)

// SubjectPrefixParser reads scopes from subjects like "minor(api): add endpoint".
// Before 1.0.0 "major: " is downgraded to MINOR; "major!: " forces MAJOR.
func SubjectPrefixParser() CommitMessageScopeParser {
	return func(message string, preV1 bool) (Scope, bool) {
		m := subjectPrefixRegex.FindStringSubmatch(message)
		if m == nil {
			return 0, false
		}
		switch m[1] {
		case "major!":
			return Major, true
		case "major":
			if preV1 {
				return Minor, true
			}
			return Major, true
		case "minor":
			return Minor, true
		default:
			return Patch, true
		}
	}
}

// LegacyMessageParser adapts a plain message parser, never allowing a MAJOR
// bump before 1.0.0.
func LegacyMessageParser(parse func(message string) (Scope, bool)) CommitMessageScopeParser {
	return func(message string, preV1 bool) (Scope, bool) {
		scope, ok := parse(message)
		if ok && preV1 && scope == Major {
			return Minor, true
		}
		return scope, ok
	}
}

// CommitMessageScope runs parser over the commits since the base normal and
// requests the most significant scope found.
func CommitMessageScope(parser CommitMessageScopeParser) ScopeCalculator {
	v1 := MustParse("1.0.0")
	return func(inv Inventory) (Scope, bool, error) {
		preV1 := inv.BaseNormal.LessThan(v1)
		var best Scope
		for _, msg := range inv.CommitMessages {
			if scope, ok := parser(msg, preV1); ok && scope > best {
				best = scope
			}
		}
		if best == 0 {
			return 0, false, nil
		}
		logger("scope").Debug("found scope in commit messages", zap.Stringer("scope", best))
		return best, true, nil
	}
}

// CommitMessageScopes is CommitMessageScope with the subject prefix convention.
func CommitMessageScopes() ScopeCalculator {
	return CommitMessageScope(SubjectPrefixParser())
}

// StageCalculator decides the requested stage for an inventory and the normal
// version being targeted. ok is false when no stage is requested.
type StageCalculator func(inv Inventory, targetNormal Version) (stage string, ok bool, err error)

// Or falls back to next when c requests no stage.
func (c StageCalculator) Or(next StageCalculator) StageCalculator {
	return func(inv Inventory, targetNormal Version) (string, bool, error) {
		stage, ok, err := c(inv, targetNormal)
		if err != nil || ok {
			return stage, ok, err
		}
		return next(inv, targetNormal)
	}
}

// NoStage never requests a stage.
func NoStage(Inventory, Version) (string, bool, error) {
	return "", false, nil
}

// FixedStage always requests stage.
func FixedStage(stage string) StageCalculator {
	return UserStage(func(Inventory, Version) string { return stage })
}

// UserStage reads a stage name from value. Surrounding space and case are
// ignored; empty strings and the literal "null" mean no stage.
func UserStage(value func(Inventory, Version) string) StageCalculator {
	return func(inv Inventory, targetNormal Version) (string, bool, error) {
		s := normalizeInput(value(inv, targetNormal))
		if s == "" || s == "null" {
			return "", false, nil
		}
		return s, true, nil
	}
}
