package reckon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func commitIDs(commits []*Commit) []string {
	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
	}
	return ids
}

func TestWalkAncestors(t *testing.T) {
	//   a - b - d - e
	//        \     /
	//         - c -
	f := newFakeRepo()
	f.add("a")
	f.add("b", "a")
	f.add("c", "b")
	f.add("d", "b")
	f.add("e", "d", "c")

	t.Run("Visits each commit once, newest first", func(t *testing.T) {
		var visited []string
		err := walkAncestors(f, "e", func(c *Commit) (bool, error) {
			visited = append(visited, c.ID)
			return true, nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"e", "d", "c", "b", "a"}, visited)
	})

	t.Run("Stopping at a commit hides its parents", func(t *testing.T) {
		var visited []string
		err := walkAncestors(f, "e", func(c *Commit) (bool, error) {
			visited = append(visited, c.ID)
			return c.ID != "d", nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"e", "d", "c"}, visited)
	})

	t.Run("Stopping at a commit hides its history from other paths", func(t *testing.T) {
		//   r - y - x - a - m
		//        \         /
		//         - b ----
		g := newFakeRepo()
		g.add("r")
		g.add("y", "r")
		g.add("x", "y")
		g.add("a", "x")
		g.add("b", "y")
		g.add("m", "a", "b")

		var visited []string
		err := walkAncestors(g, "m", func(c *Commit) (bool, error) {
			visited = append(visited, c.ID)
			return c.ID != "a", nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"m", "b", "a"}, visited)
	})

	t.Run("Hiding an already walked commit hides its parents", func(t *testing.T) {
		//   a - p - t - e
		//        \     /
		//         q ---
		// t carries a committer time older than its parent p, so p is
		// walked through q before t is reached.
		g := newFakeRepo()
		g.add("a")
		g.add("p", "a")
		g.add("t", "p")
		g.add("q", "p")
		g.add("e", "t", "q")
		g.commits["t"].Time = g.commits["a"].Time.Add(30 * time.Second)

		var visited []string
		err := walkAncestors(g, "e", func(c *Commit) (bool, error) {
			visited = append(visited, c.ID)
			return c.ID != "t", nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"e", "q", "p", "t"}, visited)
	})

	t.Run("Errors from visit abort the walk", func(t *testing.T) {
		err := walkAncestors(f, "e", func(c *Commit) (bool, error) {
			return true, errStopWalk
		})
		require.ErrorIs(t, err, errStopWalk)
	})

	t.Run("Unknown start commit is an error", func(t *testing.T) {
		err := walkAncestors(f, "missing", func(c *Commit) (bool, error) {
			return true, nil
		})
		require.Error(t, err)
	})
}

func TestReachableExcluding(t *testing.T) {
	f := newFakeRepo()
	f.add("a")
	f.add("b", "a")
	f.add("c", "b")
	f.add("d", "b")
	f.add("e", "d", "c")

	t.Run("Empty stop returns all history", func(t *testing.T) {
		commits, err := reachableExcluding(f, "e", "")
		require.NoError(t, err)
		require.Equal(t, []string{"e", "d", "c", "b", "a"}, commitIDs(commits))
	})

	t.Run("Stop and its ancestors are excluded", func(t *testing.T) {
		commits, err := reachableExcluding(f, "e", "c")
		require.NoError(t, err)
		require.Equal(t, []string{"e", "d"}, commitIDs(commits))
	})

	t.Run("Start equal to stop is empty", func(t *testing.T) {
		commits, err := reachableExcluding(f, "e", "e")
		require.NoError(t, err)
		require.Empty(t, commits)
	})
}
