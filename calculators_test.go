package reckon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserScope(t *testing.T) {
	t.Run("Empty strings are no scope", func(t *testing.T) {
		calc := UserScope(func(Inventory) string { return "  " })
		_, ok, err := calc(EmptyInventory(false))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Mixed case is accepted", func(t *testing.T) {
		calc := UserScope(func(Inventory) string { return "mInOR" })
		scope, ok, err := calc(EmptyInventory(false))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, Minor, scope)
	})

	t.Run("Unknown scopes are input errors", func(t *testing.T) {
		calc := UserScope(func(Inventory) string { return "mega" })
		_, _, err := calc(EmptyInventory(false))
		require.ErrorIs(t, err, ErrInput)
	})
}

func TestCommitMessageScope(t *testing.T) {
	calc := CommitMessageScopes()
	withMessages := func(base string, messages ...string) Inventory {
		inv := EmptyInventory(true)
		inv.BaseNormal = MustParse(base)
		inv.BaseVersion = inv.BaseNormal
		inv.CommitMessages = messages
		return inv
	}

	tests := []struct {
		name   string
		inv    Inventory
		want   Scope
		wantOK bool
	}{
		{name: "Empty inventory has no scope", inv: EmptyInventory(false)},
		{
			name: "Messages without a prefix have no scope",
			inv:  withMessages("1.0.0", "some message", "other message"),
		},
		{
			name:   "A single match is used",
			inv:    withMessages("1.0.0", "some message", "patch: some fix", "other message"),
			want:   Patch,
			wantOK: true,
		},
		{
			name:   "The most significant match wins",
			inv:    withMessages("1.0.0", "patch: fix", "major: break", "minor: feature"),
			want:   Major,
			wantOK: true,
		},
		{
			name:   "Subjects may carry a context",
			inv:    withMessages("1.0.0", "minor(cli): add a flag"),
			want:   Minor,
			wantOK: true,
		},
		{
			name:   "Major is downgraded before 1.0.0",
			inv:    withMessages("0.3.0", "major: break"),
			want:   Minor,
			wantOK: true,
		},
		{
			name:   "Major with a bang is kept before 1.0.0",
			inv:    withMessages("0.3.0", "major!: go stable"),
			want:   Major,
			wantOK: true,
		},
		{
			name: "Prefix must start the message",
			inv:  withMessages("1.0.0", "this is not major: really"),
		},
		{
			name: "Prefix needs a description",
			inv:  withMessages("1.0.0", "minor: "),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, ok, err := calc(tt.inv)
			require.NoError(t, err)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, scope)
		})
	}
}

func TestLegacyMessageParser(t *testing.T) {
	parse := LegacyMessageParser(func(message string) (Scope, bool) {
		if strings.Contains(message, "BREAKING") {
			return Major, true
		}
		return 0, false
	})

	scope, ok := parse("BREAKING: change", true)
	require.True(t, ok)
	require.Equal(t, Minor, scope)

	scope, ok = parse("BREAKING: change", false)
	require.True(t, ok)
	require.Equal(t, Major, scope)

	_, ok = parse("nothing", false)
	require.False(t, ok)
}

func TestScopeCalculatorOr(t *testing.T) {
	calc := ScopeCalculator(NoScope).Or(FixedScope(Patch))
	scope, ok, err := calc(EmptyInventory(true))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Patch, scope)

	calc = FixedScope(Major).Or(FixedScope(Patch))
	scope, _, err = calc(EmptyInventory(true))
	require.NoError(t, err)
	require.Equal(t, Major, scope)
}

func TestUserStage(t *testing.T) {
	for input, want := range map[string]string{
		"":        "",
		"   ":     "",
		"null":    "",
		"BeTa":    "beta",
		" final ": "final",
	} {
		calc := UserStage(func(Inventory, Version) string { return input })
		stage, ok, err := calc(EmptyInventory(false), Identity)
		require.NoError(t, err)
		require.Equal(t, want != "", ok, input)
		require.Equal(t, want, stage, input)
	}
}

func TestStageCalculatorOr(t *testing.T) {
	calc := StageCalculator(NoStage).Or(FixedStage("rc"))
	stage, ok, err := calc(EmptyInventory(true), Identity)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "rc", stage)
}
