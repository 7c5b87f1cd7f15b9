package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/bravo68web/gitkit/internal/testutil"
	apperrors "github.com/bravo68web/gitkit/pkg/errors"
)

type fixture struct {
	repo   *testutil.Repo
	config string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	repo := testutil.NewRepo(t, filepath.Join(root, "demo"))

	var env strings.Builder
	for k, v := range testutil.GitEnv() {
		fmt.Fprintf(&env, "    %s: %q\n", k, v)
	}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf("git:\n  timeout: 30s\n  env:\n%srepos:\n  root: %q\nlogging:\n  level: error\n", env.String(), root)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	return &fixture{repo: repo, config: cfgPath}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := NewCommandRegistry().RegisterCLI()
	cmd.Writer = &stdout
	cmd.ErrWriter = &stderr
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	argv := append([]string{"gitkit", "--config", f.config, "--repo", f.repo.Dir}, args...)
	err := cmd.Run(context.Background(), argv)
	return stdout.String(), err
}

func TestCatFile(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "cat-file", "commit", "v2")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "`+f.repo.Readme+`"`)
	assert.Contains(t, out, `"summary": "update readme"`)
	assert.Contains(t, out, `"parent_ids": [
    "`+f.repo.Sources+`"`)

	out, err = f.run(t, "cat-file", "tag", "v2")
	require.NoError(t, err)
	assert.Contains(t, out, `"target_id": "`+f.repo.Readme+`"`)
	assert.Contains(t, out, `"is_annotated": true`)

	_, err = f.run(t, "cat-file", "commit", "v9")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.run(t, "cat-file", "blob", "v2")
	assert.Error(t, err)
}

func TestLsTree(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "ls-tree", "v1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "100644 blob "))
	assert.True(t, strings.HasSuffix(lines[0], "\tREADME.md"))
	assert.True(t, strings.HasPrefix(lines[1], "100755 blob "))
	assert.True(t, strings.HasPrefix(lines[2], "040000 tree "))
	assert.True(t, strings.HasSuffix(lines[3], "\tsrc"))

	out, err = f.run(t, "ls-tree", "v1", "src")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "\tmain.go"))
}

func TestLog(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "log", "--limit", "2", "master")
	require.NoError(t, err)
	assert.Equal(t, f.repo.Readme[:7]+" update readme\n"+f.repo.Sources[:7]+" add sources\n", out)

	out, err = f.run(t, "log", "--path", "README.md", "master")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	_, err = f.run(t, "log", "--limit", "0", "master")
	require.Error(t, err)
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestRefs(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "refs", "tags")
	require.NoError(t, err)
	assert.Equal(t, "v1\nv2\n", out)

	out, err = f.run(t, "refs", "branches")
	require.NoError(t, err)
	assert.Equal(t, "master\n", out)
}

func TestDiff(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "diff", "v1")
	require.NoError(t, err)
	assert.Contains(t, out, "run.sh")
	assert.Contains(t, out, "3 files changed, 6 insertions(+), 0 deletions(-)\n")
	assert.NotContains(t, out, "diff truncated")

	out, err = f.run(t, "diff", "--max-files", "1", "v1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 files changed")
	assert.Contains(t, out, "diff truncated")

	out, err = f.run(t, "diff", "--raw", "master")
	require.NoError(t, err)
	assert.Contains(t, out, "+updated")

	out, err = f.run(t, "diff", "--patch", "master")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: [PATCH] update readme")
}

func TestTreeCommits(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "tree-commits", "--concurrency", "2", "master")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "README.md"))
	assert.Contains(t, lines[0], f.repo.Readme[:7]+" update readme")
	assert.Contains(t, lines[3], f.repo.Sources[:7]+" add sources")
}

func TestOpenAPI(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "openapi", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "openapi:")
	assert.Contains(t, out, "/api/repos/{repo}/commits/{rev}")

	path := filepath.Join(t.TempDir(), "openapi.json")
	_, err = f.run(t, "openapi", "--output", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"/health"`)
}
