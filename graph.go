package reckon

import (
	"fmt"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Commit is the part of a commit the inventory algorithms need.
type Commit struct {
	ID      string
	Parents []string
	Time    time.Time
	Message string
}

// TagRef is a tag name and the commit it points to, annotated tags already peeled.
type TagRef struct {
	Name   string
	Commit string
}

// Repository is the read-only view of version control that inventory
// computation walks. Implementations must not modify the repository.
type Repository interface {
	// Head returns the commit HEAD resolves to. ok is false for a repository without commits.
	Head() (id string, ok bool, err error)

	// Tags lists every tag that points (directly or through annotated tags) at a commit.
	Tags() ([]TagRef, error)

	// Commit loads a single commit.
	Commit(id string) (*Commit, error)

	// IsAncestor reports whether ancestor is reachable from descendant. A commit is its own ancestor.
	IsAncestor(ancestor, descendant string) (bool, error)

	// MergeBase returns the best common ancestor of a and b. ok is false when the histories are unrelated.
	MergeBase(a, b string) (id string, ok bool, err error)

	// Abbreviate returns the shortest unambiguous form of id.
	Abbreviate(id string) (string, error)

	// IsClean reports whether the working tree is unmodified.
	IsClean() (bool, error)
}

// commitWalk visits commits newest first by committer time, in the manner of
// a revision walk: commits are emitted once, and marking a commit
// uninteresting hides it and its whole history from the rest of the walk.
// The walk ends once only uninteresting commits remain queued.
type commitWalk struct {
	repo          Repository
	queue         *binaryheap.Heap
	commits       map[string]*Commit
	queued        map[string]bool
	uninteresting map[string]bool

	// interesting commits still in the queue
	pending int
}

func newCommitWalk(repo Repository) *commitWalk {
	return &commitWalk{
		repo: repo,
		queue: binaryheap.NewWith(func(a, b interface{}) int {
			ca, cb := a.(*Commit), b.(*Commit)
			switch {
			case ca.Time.After(cb.Time):
				return -1
			case ca.Time.Before(cb.Time):
				return 1
			case ca.ID < cb.ID:
				return -1
			case ca.ID > cb.ID:
				return 1
			}
			return 0
		}),
		commits:       make(map[string]*Commit),
		queued:        make(map[string]bool),
		uninteresting: make(map[string]bool),
	}
}

func (w *commitWalk) push(id string) error {
	if _, ok := w.commits[id]; ok {
		return nil
	}
	c, err := w.repo.Commit(id)
	if err != nil {
		return fmt.Errorf("reading commit %s: %w", id, err)
	}
	w.commits[id] = c
	w.queued[id] = true
	w.queue.Push(c)
	if !w.uninteresting[id] {
		w.pending++
	}
	return nil
}

// markUninteresting hides ids and everything behind them. Queued commits pass
// the mark to their parents when popped; commits already walked pass it on
// immediately.
func (w *commitWalk) markUninteresting(ids ...string) error {
	stack := append([]string(nil), ids...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if w.uninteresting[id] {
			continue
		}
		w.uninteresting[id] = true

		c, loaded := w.commits[id]
		switch {
		case !loaded:
			if err := w.push(id); err != nil {
				return err
			}
		case w.queued[id]:
			w.pending--
		default:
			stack = append(stack, c.Parents...)
		}
	}
	return nil
}

// next returns the newest pending commit that is still interesting.
func (w *commitWalk) next() (*Commit, bool, error) {
	for w.pending > 0 {
		v, ok := w.queue.Pop()
		if !ok {
			return nil, false, nil
		}
		c := v.(*Commit)
		delete(w.queued, c.ID)
		if w.uninteresting[c.ID] {
			if err := w.markUninteresting(c.Parents...); err != nil {
				return nil, false, err
			}
			continue
		}
		w.pending--
		return c, true, nil
	}
	return nil, false, nil
}

// walkAncestors visits start and its ancestors newest first. When visit
// returns false the parents of that commit, and all of their history, are
// hidden from the rest of the walk even where another path reaches them.
func walkAncestors(repo Repository, start string, visit func(*Commit) (bool, error)) error {
	w := newCommitWalk(repo)
	if err := w.push(start); err != nil {
		return err
	}
	for {
		c, ok, err := w.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		descend, err := visit(c)
		if err != nil {
			return err
		}
		if !descend {
			if err := w.markUninteresting(c.Parents...); err != nil {
				return err
			}
			continue
		}
		for _, parent := range c.Parents {
			if w.uninteresting[parent] {
				continue
			}
			if err := w.push(parent); err != nil {
				return err
			}
		}
	}
}

// ancestorSet returns every commit reachable from start, start included.
func ancestorSet(repo Repository, start string) (map[string]bool, error) {
	seen := make(map[string]bool)
	err := walkAncestors(repo, start, func(c *Commit) (bool, error) {
		seen[c.ID] = true
		return true, nil
	})
	return seen, err
}

// reachableExcluding returns the commits reachable from start but not from
// stop, newest first. An empty stop returns all of start's history.
func reachableExcluding(repo Repository, start, stop string) ([]*Commit, error) {
	var hidden map[string]bool
	if stop != "" {
		var err error
		hidden, err = ancestorSet(repo, stop)
		if err != nil {
			return nil, err
		}
	}

	var commits []*Commit
	err := walkAncestors(repo, start, func(c *Commit) (bool, error) {
		if hidden[c.ID] {
			return false, nil
		}
		commits = append(commits, c)
		return true, nil
	})
	return commits, err
}
