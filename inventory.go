package reckon

import "fmt"

// Inventory is a snapshot of the repository facts version reckoning depends on.
// It is built fresh for every reckoning and not modified afterwards.
type Inventory struct {
	// CommitID is the abbreviated HEAD commit, or "" when there is no HEAD.
	CommitID string

	// Clean is true when the working tree has no modifications.
	Clean bool

	// CurrentVersion is the highest version tagged on HEAD, if any.
	CurrentVersion *Version

	// BaseVersion is the nearest tagged version reachable from HEAD, 0.0.0 if none.
	BaseVersion Version

	// BaseNormal is the nearest tagged final version reachable from HEAD, 0.0.0 if none.
	BaseNormal Version

	// CommitsSinceBase counts commits reachable from HEAD but not from BaseNormal's commit.
	CommitsSinceBase int

	// ParallelNormals are normal versions under development on sibling branches.
	ParallelNormals VersionSet

	// ClaimedVersions are all versions ever tagged.
	ClaimedVersions VersionSet

	// CommitMessages are the full messages of the commits counted by CommitsSinceBase.
	CommitMessages []string
}

// EmptyInventory describes a repository with no commits.
func EmptyInventory(clean bool) Inventory {
	return Inventory{Clean: clean}
}

// Validate checks the invariants an inventory from any supplier must hold.
func (i Inventory) Validate() error {
	if i.CommitsSinceBase < 0 {
		return fmt.Errorf("commits since base must be 0 or greater: %d", i.CommitsSinceBase)
	}
	return nil
}

// IsCurrent reports whether v is the version tagged on HEAD.
func (i Inventory) IsCurrent(v Version) bool {
	return i.CurrentVersion != nil && i.CurrentVersion.Equal(v)
}
