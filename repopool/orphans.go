package repopool

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/utilitywarehouse/git-backup/internal/utils"
)

// findOrphans walks the root and returns paths of bare repositories which
// are not part of given pool. sub trees of owners whose listing failed are
// skipped since their mirrors can't be verified in this cycle.
// orphans are only reported, they are never removed.
func findOrphans(root string, pool *Pool, skipPaths []string) ([]string, error) {
	exists, err := utils.PathExists(root)
	if err != nil || !exists {
		return nil, err
	}

	known := make(map[string]struct{}, pool.Len())
	for _, d := range pool.Repositories() {
		known[filepath.Clean(d.RepoPath)] = struct{}{}
	}

	var orphans []string
	err = filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, ok := known[path]; ok {
			return filepath.SkipDir
		}
		for _, skip := range skipPaths {
			if isSubPath(filepath.Clean(skip), path) {
				return filepath.SkipDir
			}
		}
		if isBareRepo(path) {
			orphans = append(orphans, path)
			return filepath.SkipDir
		}
		return nil
	})
	return orphans, err
}

func isSubPath(parent, path string) bool {
	return path == parent || strings.HasPrefix(path, parent+string(filepath.Separator))
}

// isBareRepo checks if given dir is a bare git repository
func isBareRepo(path string) bool {
	// avoid opening every dir with go-git
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, "objects")); err != nil {
		return false
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return false
	}
	cfg, err := repo.Config()
	if err != nil {
		return false
	}
	return cfg.Core.IsBare
}

