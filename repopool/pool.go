package repopool

import (
	"errors"
	"fmt"

	"github.com/utilitywarehouse/git-backup/repository"
)

var (
	ErrExist        = errors.New("repo already exist")
	ErrPathConflict = errors.New("mirror path already claimed by another remote")
)

// Pool is the de-duplicated, ordered set of repositories found by a single
// discovery. repositories are unique by remote url and by mirror path,
// first one added wins.
type Pool struct {
	repos   []repository.Descriptor
	remotes map[string]struct{}
	// mirror path -> remote which claimed it
	paths map[string]string
}

func NewPool() *Pool {
	return &Pool{
		remotes: make(map[string]struct{}),
		paths:   make(map[string]string),
	}
}

// Add adds given repository to the pool. ErrExist is returned if repository
// with same remote url is already added and an error wrapping ErrPathConflict
// if a different remote already maps to the same mirror path.
func (p *Pool) Add(d repository.Descriptor) error {
	if _, ok := p.remotes[d.Remote]; ok {
		return ErrExist
	}
	if remote, ok := p.paths[d.RepoPath]; ok {
		return fmt.Errorf("%w: %s and %s both map to %s", ErrPathConflict, remote, d.Remote, d.RepoPath)
	}
	p.remotes[d.Remote] = struct{}{}
	p.paths[d.RepoPath] = d.Remote
	p.repos = append(p.repos, d)
	return nil
}

// Repositories returns repositories in the order they were added
func (p *Pool) Repositories() []repository.Descriptor {
	return p.repos
}

func (p *Pool) Len() int {
	return len(p.repos)
}

// Deduplicate returns given repositories with later duplicates of a remote
// url or mirror path removed. order of remaining entries is preserved.
func Deduplicate(repos []repository.Descriptor) []repository.Descriptor {
	p := NewPool()
	for _, r := range repos {
		p.Add(r)
	}
	return p.Repositories()
}
