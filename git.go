// Package reckon infers semantic versions from the shape of a Git repository's history.
//
// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0. See NOTICE file for full attribution.
package reckon

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"go.uber.org/zap"
)

const minAbbrevLength = 7

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// GitRepository implements Repository on top of go-git.
type GitRepository struct {
	repo *git.Repository
}

// NewGitRepository wraps an open go-git repository.
func NewGitRepository(repo *git.Repository) *GitRepository {
	return &GitRepository{repo: repo}
}

// NewGitSupplier is a convenience for NewRepositorySupplier(NewGitRepository(repo), parser).
func NewGitSupplier(repo *git.Repository, parser TagParser) *RepositorySupplier {
	return NewRepositorySupplier(NewGitRepository(repo), parser)
}

// Head implements Repository.
func (g *GitRepository) Head() (string, bool, error) {
	ref, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String(), true, nil
}

// Tags implements Repository. Annotated tags are peeled to their commit and
// tags of anything other than a commit are skipped.
func (g *GitRepository) Tags() ([]TagRef, error) {
	log := logger("git")

	iter, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var tags []TagRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		hash, err := g.peel(ref.Hash())
		if err != nil {
			return fmt.Errorf("peeling tag %s: %w", ref.Name().Short(), err)
		}
		if _, err := g.repo.CommitObject(hash); err != nil {
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				log.Debug("skipping tag that does not point at a commit", zap.String("tag", ref.Name().Short()))
				return nil
			}
			return err
		}
		tags = append(tags, TagRef{Name: ref.Name().Short(), Commit: hash.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// peel follows annotated tags, including tags of tags, to the object they name.
func (g *GitRepository) peel(hash plumbing.Hash) (plumbing.Hash, error) {
	for {
		obj, err := g.repo.TagObject(hash)
		switch {
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// lightweight tag
			return hash, nil
		case err != nil:
			return plumbing.ZeroHash, err
		case obj.TargetType != plumbing.TagObject:
			return obj.Target, nil
		default:
			hash = obj.Target
		}
	}
}

// Commit implements Repository.
func (g *GitRepository) Commit(id string) (*Commit, error) {
	c, err := g.repo.CommitObject(plumbing.NewHash(id))
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}
	parents := make([]string, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = p.String()
	}
	return &Commit{
		ID:      c.Hash.String(),
		Parents: parents,
		Time:    c.Committer.When,
		Message: c.Message,
	}, nil
}

// IsAncestor implements Repository.
func (g *GitRepository) IsAncestor(ancestor, descendant string) (bool, error) {
	a, err := g.repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, fmt.Errorf("getting commit object: %w", err)
	}
	d, err := g.repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, fmt.Errorf("getting commit object: %w", err)
	}
	return a.IsAncestor(d)
}

// MergeBase implements Repository. When there are several best common
// ancestors the most recently committed one is used.
func (g *GitRepository) MergeBase(a, b string) (string, bool, error) {
	ca, err := g.repo.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return "", false, fmt.Errorf("getting commit object: %w", err)
	}
	cb, err := g.repo.CommitObject(plumbing.NewHash(b))
	if err != nil {
		return "", false, fmt.Errorf("getting commit object: %w", err)
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", false, fmt.Errorf("computing merge base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return "", false, nil
	}
	sort.Slice(bases, func(i, j int) bool {
		if !bases[i].Committer.When.Equal(bases[j].Committer.When) {
			return bases[i].Committer.When.After(bases[j].Committer.When)
		}
		return bases[i].Hash.String() < bases[j].Hash.String()
	})
	return bases[0].Hash.String(), true, nil
}

// Abbreviate implements Repository, extending the id past seven characters
// until no other object shares the prefix.
func (g *GitRepository) Abbreviate(id string) (string, error) {
	target := plumbing.NewHash(id)
	full := target.String()

	candidates, err := g.hashesWithPrefix(target[:minAbbrevLength/2])
	if err != nil {
		return "", fmt.Errorf("listing objects: %w", err)
	}

	length := minAbbrevLength
	for _, h := range candidates {
		if h == target {
			continue
		}
		other := h.String()
		shared := 0
		for shared < len(full) && full[shared] == other[shared] {
			shared++
		}
		if shared+1 > length {
			length = shared + 1
		}
	}
	if length > len(full) {
		length = len(full)
	}
	return full[:length], nil
}

// hashesWithPrefix lists object ids starting with prefix. Filesystem storage
// answers from loose object names and pack indexes; other storers are scanned.
func (g *GitRepository) hashesWithPrefix(prefix []byte) ([]plumbing.Hash, error) {
	type prefixLookup interface {
		HashesWithPrefix(prefix []byte) ([]plumbing.Hash, error)
	}
	if lookup, ok := g.repo.Storer.(prefixLookup); ok {
		return lookup.HashesWithPrefix(prefix)
	}

	iter, err := g.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return nil, err
	}
	var hashes []plumbing.Hash
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		if h := obj.Hash(); bytes.HasPrefix(h[:], prefix) {
			hashes = append(hashes, h)
		}
		return nil
	})
	return hashes, err
}

// IsClean implements Repository. Bare repositories have no working tree and
// are always clean.
func (g *GitRepository) IsClean() (bool, error) {
	workTree, err := g.repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	// Fast path for filesystem storage
	if _, ok := g.repo.Storer.(*filesystem.Storage); ok {
		treeish := emptyTree
		if _, err := g.repo.Head(); err == nil {
			treeish = "HEAD"
		} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, fmt.Errorf("getting HEAD: %w", err)
		}

		dirty, err := checkDirtyWithGitCommand(workTree.Filesystem.Root(), treeish)
		if err != nil {
			return false, err
		}
		if dirty {
			logger("git").Info("git repository is not clean", zap.String("path", workTree.Filesystem.Root()))
		}
		return !dirty, nil
	}

	// Fallback to go-git status check
	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}
	if !status.IsClean() {
		logger("git").Info("git repository is not clean", zap.String("status", status.String()))
	}
	return status.IsClean(), nil
}

// emptyTree is the id of git's empty tree, which an unborn HEAD is compared against.
const emptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// checkDirtyWithGitCommand reports unstaged, staged and untracked changes,
// matching what a go-git status would count.
func checkDirtyWithGitCommand(repoPath, treeish string) (bool, error) {
	// Refresh index first
	cmd := exec.Command("git", "update-index", "-q", "--refresh")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		// If update-index fails, assume dirty
		return true, nil
	}

	checks := [][]string{
		{"diff-files", "--name-status", "--ignore-space-at-eol"},
		{"diff-index", "--cached", "--name-status", treeish, "--"},
		{"ls-files", "--others", "--exclude-standard"},
	}
	for _, args := range checks {
		cmd = exec.Command("git", args...)
		cmd.Dir = repoPath
		output, err := cmd.Output()
		if err != nil {
			if _, ok := err.(*exec.ExitError); ok {
				return true, nil
			}
			return false, err
		}
		if len(output) > 0 {
			return true, nil
		}
	}
	return false, nil
}

var _ Repository = (*GitRepository)(nil)
