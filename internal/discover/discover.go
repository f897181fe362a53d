// Package discover enumerates git checkouts under a root directory. The
// resulting order is the authoritative index space for the runner's output.
package discover

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Depth limits how deep the scan descends. The zero value means unlimited.
type Depth struct {
	max int // 0 = unlimited
}

// All scans without a depth limit.
func All() Depth { return Depth{} }

// ParseDepth accepts "all" (case-insensitive) or a positive integer.
func ParseDepth(value string) (Depth, error) {
	v := strings.TrimSpace(value)
	if strings.EqualFold(v, "all") {
		return All(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return Depth{}, fmt.Errorf("invalid scan depth %q: use a positive integer or \"all\"", value)
	}
	return Depth{max: n}, nil
}

func (d Depth) descend(next int) bool {
	return d.max == 0 || next < d.max
}

// Repo is one discovered checkout.
type Repo struct {
	Path string
}

// Name is the checkout's directory base name.
func (r Repo) Name() string {
	name := filepath.Base(r.Path)
	if name == string(filepath.Separator) || name == "." {
		return "unknown"
	}
	return name
}

// DisplayName prefers the path relative to root, falling back to Name when
// the repo lies outside of it.
func (r Repo) DisplayName(root string) string {
	rel, err := filepath.Rel(root, r.Path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return r.Name()
	}
	return rel
}

// Repos finds every directory under root containing a .git entry, honoring
// the scan depth. A checkout is never descended into, so nested checkouts
// below another checkout's boundary stay hidden. Results are sorted by path.
func Repos(root string, depth Depth) ([]Repo, error) {
	var repos []Repo
	if err := scan(root, 0, depth, &repos); err != nil {
		return nil, err
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Path < repos[j].Path })
	return repos, nil
}

func scan(dir string, level int, depth Depth, repos *[]Repo) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		// A .git file marks a linked worktree, count it as a checkout too.
		if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
			*repos = append(*repos, Repo{Path: path})
			continue
		}

		if depth.descend(level + 1) {
			if err := scan(path, level+1, depth, repos); err != nil {
				return err
			}
		}
	}
	return nil
}

// InsideGitRepo reports whether the current working directory itself sits
// inside a checkout. git rev-parse handles worktrees, bare repos and the
// GIT_DIR environment variable correctly.
func InsideGitRepo() bool {
	return exec.Command("git", "rev-parse", "--git-dir").Run() == nil
}
