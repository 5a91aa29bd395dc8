package vcs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory commit graph. It backs tests and callers that
// already hold the history in memory.
type MemoryRepo struct {
	mu       sync.RWMutex
	identity string
	commits  map[string]*Commit
	tags     []Tag
	remotes  []Remote
	lookups  int
}

func NewMemoryRepo(identity string) *MemoryRepo {
	return &MemoryRepo{
		identity: identity,
		commits:  make(map[string]*Commit),
	}
}

// AddCommit records a commit with the given parents and returns the repo for chaining.
func (m *MemoryRepo) AddCommit(id string, parents ...string) *MemoryRepo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[id] = &Commit{
		ID:      id,
		Parents: append([]string(nil), parents...),
		Subject: "commit " + id,
	}
	return m
}

// PutCommit records a fully populated commit.
func (m *MemoryRepo) PutCommit(c Commit) *MemoryRepo {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Parents = append([]string(nil), c.Parents...)
	m.commits[c.ID] = &c
	return m
}

// AddTag points a tag at a commit. Creation times increase with insertion order.
func (m *MemoryRepo) AddTag(name, commit string) *MemoryRepo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = append(m.tags, Tag{
		Name:    name,
		Commit:  commit,
		Created: time.Unix(int64(len(m.tags)), 0).UTC(),
	})
	return m
}

func (m *MemoryRepo) AddRemote(name, url string) *MemoryRepo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remotes = append(m.remotes, Remote{Name: name, URL: url})
	return m
}

// ParentMap snapshots the parent links of every stored commit.
func (m *MemoryRepo) ParentMap() ParentMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(ParentMap, len(m.commits))
	for id, c := range m.commits {
		out[id] = append([]string(nil), c.Parents...)
	}
	return out
}

// Lookups reports how many times GetCommit or Parents was called.
func (m *MemoryRepo) Lookups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups
}

func (m *MemoryRepo) Identity() string {
	return m.identity
}

func (m *MemoryRepo) ListTags(ctx context.Context) ([]Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Tag(nil), m.tags...), nil
}

func (m *MemoryRepo) GetCommit(ctx context.Context, id string) (*Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	c, ok := m.resolve(id)
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}
	cp := *c
	cp.Parents = append([]string(nil), c.Parents...)
	return &cp, nil
}

func (m *MemoryRepo) Parents(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	c, ok := m.resolve(id)
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}
	return append([]string(nil), c.Parents...), nil
}

// resolve accepts a full id or an unambiguous prefix of at least four characters.
func (m *MemoryRepo) resolve(id string) (*Commit, bool) {
	if c, ok := m.commits[id]; ok {
		return c, true
	}
	if len(id) < 4 {
		return nil, false
	}
	var found *Commit
	for full, c := range m.commits {
		if !strings.HasPrefix(full, id) {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = c
	}
	return found, found != nil
}

func (m *MemoryRepo) ListRemotes(ctx context.Context) ([]Remote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Remote(nil), m.remotes...), nil
}
