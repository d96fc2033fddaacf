package reckon

import (
	"fmt"

	"go.uber.org/zap"
)

// InventorySupplier produces the inventory of the repository's current state.
type InventorySupplier interface {
	Inventory() (Inventory, error)
}

// InventorySupplierFunc adapts a function to InventorySupplier.
type InventorySupplierFunc func() (Inventory, error)

// Inventory calls f.
func (f InventorySupplierFunc) Inventory() (Inventory, error) {
	return f()
}

// StaticInventory supplies a fixed inventory.
func StaticInventory(inv Inventory) InventorySupplier {
	return InventorySupplierFunc(func() (Inventory, error) { return inv, nil })
}

// RepositorySupplier computes inventories by walking a Repository's history.
type RepositorySupplier struct {
	repo   Repository
	parser TagParser
}

// NewRepositorySupplier returns a supplier reading repo. A nil parser uses DefaultTagParser.
func NewRepositorySupplier(repo Repository, parser TagParser) *RepositorySupplier {
	if parser == nil {
		parser = DefaultTagParser
	}
	return &RepositorySupplier{repo: repo, parser: parser}
}

type taggedVersion struct {
	version Version
	commit  string
}

// Inventory walks the repository once and returns what it found. Any read
// failure aborts the walk; no partial inventory is returned.
func (s *RepositorySupplier) Inventory() (Inventory, error) {
	log := logger("inventory")

	clean, err := s.repo.IsClean()
	if err != nil {
		return Inventory{}, fmt.Errorf("checking if worktree is clean: %w", err)
	}

	head, ok, err := s.repo.Head()
	if err != nil {
		return Inventory{}, fmt.Errorf("resolving HEAD: %w", err)
	}
	if !ok {
		log.Debug("no HEAD commit, presuming repository is empty")
		return EmptyInventory(clean), nil
	}
	log.Debug("found HEAD commit", zap.String("commit", head))

	tagged, err := s.taggedVersions()
	if err != nil {
		return Inventory{}, err
	}

	var current *Version
	if tv, ok := maxTagged(tagged, func(tv taggedVersion) bool { return tv.commit == head }); ok {
		current = &tv.version
	}

	baseNormal, err := s.findBase(head, tagged, func(tv taggedVersion) bool { return tv.version.IsFinal() })
	if err != nil {
		return Inventory{}, fmt.Errorf("finding base normal: %w", err)
	}
	baseVersion, err := s.findBase(head, tagged, func(taggedVersion) bool { return true })
	if err != nil {
		return Inventory{}, fmt.Errorf("finding base version: %w", err)
	}
	log.Debug("found bases",
		zap.Stringer("baseNormal", baseNormal.version),
		zap.Stringer("baseVersion", baseVersion.version))

	sinceBase, err := reachableExcluding(s.repo, head, baseNormal.commit)
	if err != nil {
		return Inventory{}, fmt.Errorf("counting commits since base: %w", err)
	}
	messages := make([]string, len(sinceBase))
	for i, c := range sinceBase {
		messages[i] = c.Message
	}

	parallel, err := s.findParallel(head, tagged)
	if err != nil {
		return Inventory{}, fmt.Errorf("finding parallel versions: %w", err)
	}

	var claimed VersionSet
	for _, tv := range tagged {
		claimed.add(tv.version)
	}

	commitID, err := s.repo.Abbreviate(head)
	if err != nil {
		return Inventory{}, fmt.Errorf("abbreviating commit %s: %w", head, err)
	}

	return Inventory{
		CommitID:         commitID,
		Clean:            clean,
		CurrentVersion:   current,
		BaseVersion:      baseVersion.version,
		BaseNormal:       baseNormal.version,
		CommitsSinceBase: len(sinceBase),
		ParallelNormals:  parallel,
		ClaimedVersions:  claimed,
		CommitMessages:   messages,
	}, nil
}

func (s *RepositorySupplier) taggedVersions() ([]taggedVersion, error) {
	log := logger("inventory")

	refs, err := s.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	tagged := make([]taggedVersion, 0, len(refs))
	for _, ref := range refs {
		v, ok := s.parser(ref.Name)
		if !ok {
			log.Debug("ignoring tag that is not a version", zap.String("tag", ref.Name))
			continue
		}
		tagged = append(tagged, taggedVersion{version: v, commit: ref.Commit})
	}
	log.Debug("found tagged versions", zap.Int("count", len(tagged)))
	return tagged, nil
}

// findBase returns the highest precedence version among the tags nearest to
// head on each path through its history. Once a tagged commit is reached no
// part of its history is walked, since nothing behind it can be nearer.
func (s *RepositorySupplier) findBase(head string, tagged []taggedVersion, keep func(taggedVersion) bool) (taggedVersion, error) {
	byCommit := make(map[string][]taggedVersion)
	for _, tv := range tagged {
		if keep(tv) {
			byCommit[tv.commit] = append(byCommit[tv.commit], tv)
		}
	}

	var found []taggedVersion
	err := walkAncestors(s.repo, head, func(c *Commit) (bool, error) {
		matches, ok := byCommit[c.ID]
		if !ok {
			return true, nil
		}
		found = append(found, matches...)
		return false, nil
	})
	if err != nil {
		return taggedVersion{}, err
	}

	base, ok := maxTagged(found, func(taggedVersion) bool { return true })
	if !ok {
		return taggedVersion{version: Identity}, nil
	}
	return base, nil
}

// findParallel returns the normals of versions tagged on branches that split
// from head's history and have not been superseded by a release on head's
// side of the split.
func (s *RepositorySupplier) findParallel(head string, tagged []taggedVersion) (VersionSet, error) {
	log := logger("inventory")

	taggedCommits := make(map[string]bool, len(tagged))
	for _, tv := range tagged {
		taggedCommits[tv.commit] = true
	}

	// many candidates share a merge base, remember what was found behind each
	taggedSince := make(map[string]bool)

	var parallel VersionSet
	for _, tv := range tagged {
		if tv.commit == head {
			continue
		}
		merged, err := s.repo.IsAncestor(tv.commit, head)
		if err != nil {
			return VersionSet{}, err
		}
		if merged {
			continue
		}
		merged, err = s.repo.IsAncestor(head, tv.commit)
		if err != nil {
			return VersionSet{}, err
		}
		if merged {
			continue
		}

		mergeBase, ok, err := s.repo.MergeBase(head, tv.commit)
		if err != nil {
			return VersionSet{}, err
		}
		if !ok || mergeBase == head || mergeBase == tv.commit {
			log.Debug("no usable merge base for parallel candidate", zap.Stringer("version", tv.version))
			continue
		}

		superseded, seen := taggedSince[mergeBase]
		if !seen {
			commits, err := reachableExcluding(s.repo, head, mergeBase)
			if err != nil {
				return VersionSet{}, err
			}
			for _, c := range commits {
				if taggedCommits[c.ID] {
					superseded = true
					break
				}
			}
			taggedSince[mergeBase] = superseded
		}
		if superseded {
			log.Debug("parallel candidate superseded by a tag since the merge base",
				zap.Stringer("version", tv.version), zap.String("mergeBase", mergeBase))
			continue
		}

		log.Debug("found parallel version", zap.Stringer("version", tv.version))
		parallel.add(tv.version.Normal())
	}
	return parallel, nil
}

func maxTagged(tagged []taggedVersion, keep func(taggedVersion) bool) (taggedVersion, bool) {
	var best taggedVersion
	found := false
	for _, tv := range tagged {
		if !keep(tv) {
			continue
		}
		if !found {
			best, found = tv, true
			continue
		}
		c := tv.version.Compare(best.version)
		if c > 0 || (c == 0 && tv.version.String() > best.version.String()) {
			best = tv
		}
	}
	return best, found
}
