package reckon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	for input, want := range map[string]Scope{
		"major":    Major,
		"MiNoR":    Minor,
		" patch\n": Patch,
	} {
		got, err := ParseScope(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got)
	}

	_, err := ParseScope("huge")
	require.ErrorIs(t, err, ErrInput)
	require.Contains(t, err.Error(), "major, minor, patch")
}

func TestScopeOrdering(t *testing.T) {
	require.Less(t, Patch, Minor)
	require.Less(t, Minor, Major)
	require.Equal(t, "minor", Minor.String())
}

func TestInferScope(t *testing.T) {
	before := MustParse("1.2.3")

	t.Run("Single increments are inferred", func(t *testing.T) {
		for after, want := range map[string]Scope{
			"1.2.4-milestone.1": Patch,
			"1.3.0-milestone.1": Minor,
			"2.0.0-milestone.1": Major,
		} {
			scope, ok, err := InferScope(before, MustParse(after))
			require.NoError(t, err, after)
			require.True(t, ok, after)
			require.Equal(t, want, scope, after)
		}
	})

	t.Run("Equal normals infer nothing", func(t *testing.T) {
		_, ok, err := InferScope(before, MustParse("1.2.3-rc.1"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Invalid increments fail", func(t *testing.T) {
		for _, after := range []string{"1.2.2", "1.2.5", "1.3.1", "1.4.0", "2.1.0", "3.0.0", "0.4.0"} {
			_, _, err := InferScope(before, MustParse(after))
			require.ErrorIs(t, err, ErrState, after)
		}
	})
}

func TestScopeText(t *testing.T) {
	out, err := Major.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "major", string(out))

	var s Scope
	require.NoError(t, s.UnmarshalText([]byte("PATCH")))
	require.Equal(t, Patch, s)
	require.Error(t, s.UnmarshalText([]byte("bogus")))
}
