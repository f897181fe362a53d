package discover_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/githerd/githerd/internal/discover"
	"github.com/stretchr/testify/require"
)

func TestParseDepth(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		wantErr  bool
	}{
		{"positive integer", "3", false},
		{"one", "1", false},
		{"all lowercase", "all", false},
		{"all uppercase", "ALL", false},
		{"padded", " 2 ", false},
		{"zero rejected", "0", true},
		{"negative rejected", "-1", true},
		{"garbage rejected", "nope", true},
		{"empty rejected", "", true},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := discover.ParseDepth(tt.given)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRepoNames(t *testing.T) {
	t.Parallel()

	repo := discover.Repo{Path: "/home/user/src/my-repo"}
	require.Equal(t, "my-repo", repo.Name())

	require.Equal(t, "unknown", discover.Repo{Path: "/"}.Name())

	nested := discover.Repo{Path: filepath.Join("/tmp/workspace", "nested", "repo")}
	require.Equal(t, filepath.Join("nested", "repo"), nested.DisplayName("/tmp/workspace"))

	outside := discover.Repo{Path: "/other/place/repo"}
	require.Equal(t, "repo", outside.DisplayName("/tmp/workspace"))
}

func TestReposDepthLimits(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	mkRepo(t, root, "repo1", true)
	mkRepo(t, root, "repo2", false) // .git file, a linked worktree
	mkRepo(t, root, "nested/repo3", true)
	mkRepo(t, root, "nested/deeper/repo4", true)
	mkRepo(t, root, "boundary", true)
	mkRepo(t, root, "boundary/child", true) // hidden below a checkout boundary
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty/dir"), 0o755))

	paths := func(repos []discover.Repo) []string {
		var out []string
		for _, r := range repos {
			out = append(out, r.DisplayName(root))
		}
		return out
	}

	var testCases = []struct {
		scenario string
		given    string
		then     []string
	}{
		{"depth 1", "1", []string{"boundary", "repo1", "repo2"}},
		{"depth 2", "2", []string{"boundary", filepath.Join("nested", "repo3"), "repo1", "repo2"}},
		{"all", "all", []string{
			"boundary",
			filepath.Join("nested", "deeper", "repo4"),
			filepath.Join("nested", "repo3"),
			"repo1",
			"repo2",
		}},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			depth, err := discover.ParseDepth(tt.given)
			require.NoError(t, err)
			repos, err := discover.Repos(root, depth)
			require.NoError(t, err)
			require.Equal(t, tt.then, paths(repos))
		})
	}
}

// mkRepo creates a fake checkout: .git as a directory, or as a file the way
// linked worktrees mark theirs.
func mkRepo(t *testing.T, root, rel string, gitDir bool) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(path, 0o755))
	gitPath := filepath.Join(path, ".git")
	if gitDir {
		require.NoError(t, os.MkdirAll(gitPath, 0o755))
	} else {
		require.NoError(t, os.WriteFile(gitPath, nil, 0o644))
	}
}
