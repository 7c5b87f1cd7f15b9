package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		malformed bool
		timeout   bool
		gitErr    bool
		status    int
	}{
		{
			name:     "not found",
			err:      NotFound("tree entry", nil),
			notFound: true,
			status:   http.StatusNotFound,
		},
		{
			name:     "wrapped revision sentinel",
			err:      fmt.Errorf("lookup: %w", ErrRevisionNotExist),
			notFound: true,
			status:   http.StatusNotFound,
		},
		{
			name:      "malformed",
			err:       Malformedf("expected %d fields", 4),
			malformed: true,
			status:    http.StatusUnprocessableEntity,
		},
		{
			name:      "diff line",
			err:       Wrap(ErrDiffLine, "section lookup"),
			malformed: true,
			status:    http.StatusUnprocessableEntity,
		},
		{
			name:    "timeout",
			err:     Timeout("log"),
			timeout: true,
			status:  http.StatusGatewayTimeout,
		},
		{
			name:   "git failure",
			err:    GitError("cat-file", "fatal: boom\n", nil),
			gitErr: true,
			status: http.StatusBadGateway,
		},
		{
			name:   "plain",
			err:    New("plain"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.malformed, IsMalformed(tt.err))
			assert.Equal(t, tt.timeout, IsTimeout(tt.err))
			assert.Equal(t, tt.gitErr, IsGitError(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestMalformedKeepsCause(t *testing.T) {
	cause := New("bad hex")
	err := Malformed("object id", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "object id")
}

func TestGitErrorCarriesStderr(t *testing.T) {
	err := Wrap(GitError("rev-parse", "fatal: bad revision 'nope'\n", nil), "resolve")

	require.Error(t, err)
	assert.Equal(t, "fatal: bad revision 'nope'\n", Stderr(err))
	assert.Contains(t, err.Error(), "git rev-parse failed: fatal: bad revision 'nope'")
	assert.Empty(t, Stderr(New("other")))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidationError("repo", "invalid repository name")

	assert.True(t, IsBadRequest(err))
	assert.Equal(t, "repo", err.Details["field"])
}
