package reckon

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2018, 7, 4, 12, 0, 0, 0, time.UTC)

// testRepo builds go-git repositories in memory. Every commit adds a new file
// and is signed one minute after the previous one so history walks are
// deterministic.
type testRepo struct {
	t        *testing.T
	repo     *git.Repository
	workTree *git.Worktree
	commits  int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	workTree, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{t: t, repo: repo, workTree: workTree}
}

func (r *testRepo) signature() *object.Signature {
	return &object.Signature{
		Name:  "test",
		Email: "test@example.com",
		When:  testEpoch.Add(time.Duration(r.commits) * time.Minute),
	}
}

func (r *testRepo) commit(message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	r.commits++
	filename := fmt.Sprintf("file_%d.txt", r.commits)
	require.NoError(r.t, writeFile(r.workTree.Filesystem, filename, "content "+filename))
	_, err := r.workTree.Add(filename)
	require.NoError(r.t, err)

	opts := &git.CommitOptions{Author: r.signature(), Committer: r.signature()}
	if len(parents) > 0 {
		opts.Parents = append([]plumbing.Hash{r.head()}, parents...)
	}
	hash, err := r.workTree.Commit(message, opts)
	require.NoError(r.t, err)
	return hash
}

// merge records a merge of branch into the current branch.
func (r *testRepo) merge(branch string) plumbing.Hash {
	r.t.Helper()
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(r.t, err)
	return r.commit("Merge branch "+branch, ref.Hash())
}

func (r *testRepo) head() plumbing.Hash {
	r.t.Helper()
	ref, err := r.repo.Head()
	require.NoError(r.t, err)
	return ref.Hash()
}

func (r *testRepo) branch(name string) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), r.head())
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}

func (r *testRepo) checkout(name string) {
	r.t.Helper()
	require.NoError(r.t, r.workTree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Force:  true,
	}))
}

// tag creates an annotated tag on HEAD.
func (r *testRepo) tag(name string) {
	r.t.Helper()
	_, err := r.repo.CreateTag(name, r.head(), &git.CreateTagOptions{
		Tagger:  r.signature(),
		Message: "Release " + name,
	})
	require.NoError(r.t, err)
}

// lightweightTag creates a tag ref pointing straight at HEAD.
func (r *testRepo) lightweightTag(name string) {
	r.t.Helper()
	_, err := r.repo.CreateTag(name, r.head(), nil)
	require.NoError(r.t, err)
}

func (r *testRepo) dirty() {
	r.t.Helper()
	require.NoError(r.t, writeFile(r.workTree.Filesystem, "uncommitted.txt", "work in progress"))
}

func (r *testRepo) supplier() *RepositorySupplier {
	return NewGitSupplier(r.repo, nil)
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}

// fakeRepo is an in-memory Repository for exercising the graph algorithms
// without go-git.
type fakeRepo struct {
	commits map[string]*Commit
	tags    []TagRef
	head    string
	clean   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{commits: make(map[string]*Commit), clean: true}
}

// add records a commit with the given parents, at a time after every parent.
func (f *fakeRepo) add(id string, parents ...string) string {
	f.commits[id] = &Commit{
		ID:      id,
		Parents: parents,
		Time:    testEpoch.Add(time.Duration(len(f.commits)) * time.Minute),
		Message: "commit " + id,
	}
	f.head = id
	return id
}

func (f *fakeRepo) tag(name, commit string) {
	f.tags = append(f.tags, TagRef{Name: name, Commit: commit})
}

func (f *fakeRepo) Head() (string, bool, error) {
	return f.head, f.head != "", nil
}

func (f *fakeRepo) Tags() ([]TagRef, error) {
	return f.tags, nil
}

func (f *fakeRepo) Commit(id string) (*Commit, error) {
	c, ok := f.commits[id]
	if !ok {
		return nil, fmt.Errorf("commit %s not found", id)
	}
	return c, nil
}

func (f *fakeRepo) IsAncestor(ancestor, descendant string) (bool, error) {
	seen, err := ancestorSet(f, descendant)
	if err != nil {
		return false, err
	}
	return seen[ancestor], nil
}

func (f *fakeRepo) MergeBase(a, b string) (string, bool, error) {
	fromA, err := ancestorSet(f, a)
	if err != nil {
		return "", false, err
	}
	var base string
	err = walkAncestors(f, b, func(c *Commit) (bool, error) {
		if fromA[c.ID] {
			base = c.ID
			return false, errStopWalk
		}
		return true, nil
	})
	if err != nil && err != errStopWalk {
		return "", false, err
	}
	return base, base != "", nil
}

func (f *fakeRepo) Abbreviate(id string) (string, error) {
	return id, nil
}

func (f *fakeRepo) IsClean() (bool, error) {
	return f.clean, nil
}

var errStopWalk = fmt.Errorf("stop")
