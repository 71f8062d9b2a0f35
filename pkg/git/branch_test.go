package git

import (
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, branch plumbing.ReferenceName) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: branch},
	})
	require.NoError(t, err)
	return dir, repo
}

func TestDetectBranch(t *testing.T) {
	tests := []struct {
		name       string
		setupRepo  func(t *testing.T) string
		want       string
		wantErr    bool
		errMessage string
	}{
		{
			name: "main branch",
			setupRepo: func(t *testing.T) string {
				dir, _ := initRepo(t, plumbing.Main)
				return dir
			},
			want: "main",
		},
		{
			name: "master branch",
			setupRepo: func(t *testing.T) string {
				dir, _ := initRepo(t, plumbing.Master)
				return dir
			},
			want: "master",
		},
		{
			name: "feature branch",
			setupRepo: func(t *testing.T) string {
				dir, repo := initRepo(t, plumbing.Main)
				head := plumbing.NewSymbolicReference(plumbing.HEAD,
					plumbing.NewBranchReferenceName("feature/issue-lister"))
				require.NoError(t, repo.Storer.SetReference(head))
				return dir
			},
			want: "feature/issue-lister",
		},
		{
			name: "detached HEAD",
			setupRepo: func(t *testing.T) string {
				dir, repo := initRepo(t, plumbing.Main)
				head := plumbing.NewHashReference(plumbing.HEAD,
					plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
				require.NoError(t, repo.Storer.SetReference(head))
				return dir
			},
			want: "detached",
		},
		{
			name: "non-git directory",
			setupRepo: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr:    true,
			errMessage: "not a git repository",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projectPath := tt.setupRepo(t)
			got, err := DetectBranch(projectPath)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMessage != "" {
					assert.Contains(t, err.Error(), tt.errMessage)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDetectBranch_NotGitRepoSentinel(t *testing.T) {
	_, err := DetectBranch(t.TempDir())
	require.ErrorIs(t, err, ErrNotGitRepo)
}
