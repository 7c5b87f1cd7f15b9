// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitkit/internal/config"
)

// GitEnv keeps the user's git configuration out of the tests.
func GitEnv() map[string]string {
	return map[string]string{
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_CONFIG_GLOBAL":   os.DevNull,
		"HOME":                os.TempDir(),
	}
}

// Repo describes a repository created by NewRepo
type Repo struct {
	Dir     string
	Initial string
	Sources string
	Readme  string
}

// NewRepo creates a work tree at dir with three commits:
//
//	Initial  README.md
//	Sources  + run.sh, src/main.go, docs/guide.md   (tag v1, lightweight)
//	Readme   README.md edited                        (tag v2, annotated)
//
// The test is skipped when no git binary is installed.
func NewRepo(t *testing.T, dir string) *Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	r, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)

	when := time.Unix(1700000000, 0).UTC()
	commit := func(msg string, files map[string]string, offset time.Duration) string {
		for name, content := range files {
			p := filepath.Join(dir, name)
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
			mode := os.FileMode(0o644)
			if filepath.Ext(name) == ".sh" {
				mode = 0o755
			}
			require.NoError(t, os.WriteFile(p, []byte(content), mode))
			_, err := wt.Add(name)
			require.NoError(t, err)
		}
		sig := &object.Signature{Name: "A U Thor", Email: "author@example.com", When: when.Add(offset)}
		h, err := wt.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
		return h.String()
	}

	repo := &Repo{Dir: dir}
	repo.Initial = commit("initial commit\n", map[string]string{"README.md": "# demo\n"}, 0)
	repo.Sources = commit("add sources\n", map[string]string{
		"run.sh":        "#!/bin/sh\necho hi\n",
		"src/main.go":   "package main\n\nfunc main() {}\n",
		"docs/guide.md": "# Guide\n",
	}, 100*time.Second)
	repo.Readme = commit("update readme\n", map[string]string{"README.md": "# demo\n\nupdated\n"}, 200*time.Second)

	_, err = r.CreateTag("v1", plumbing.NewHash(repo.Sources), nil)
	require.NoError(t, err)
	_, err = r.CreateTag("v2", plumbing.NewHash(repo.Readme), &gogit.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Release Bot", Email: "bot@example.com", When: when.Add(300 * time.Second)},
		Message: "release v2",
	})
	require.NoError(t, err)
	return repo
}

// Config returns a configuration serving the repositories below root
func Config(root string) *config.Config {
	cfg := config.Default()
	cfg.Repos.Root = root
	cfg.Git.Env = GitEnv()
	cfg.Git.Timeout = 30 * time.Second
	return cfg
}
