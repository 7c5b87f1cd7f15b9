package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitkit/pkg/errors"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		wname string
		email string
		unix  int64
		zone  int
	}{
		{
			name:  "epoch",
			line:  "Patrick Gundlach <gundlach@speedata.de> 1378823654 +0200",
			wname: "Patrick Gundlach",
			email: "gundlach@speedata.de",
			unix:  1378823654,
			zone:  2 * 3600,
		},
		{
			name:  "long date",
			line:  "Patrick Gundlach <gundlach@speedata.de> Tue Sep 10 16:34:14 2013 +0200",
			wname: "Patrick Gundlach",
			email: "gundlach@speedata.de",
			unix:  1378823654,
			zone:  2 * 3600,
		},
		{
			name:  "negative offset",
			line:  "A U Thor <author@example.com> 1112911993 -0730",
			wname: "A U Thor",
			email: "author@example.com",
			unix:  1112911993,
			zone:  -(7*3600 + 30*60),
		},
		{
			name:  "empty email",
			line:  "bot <> 1700000000 +0000",
			wname: "bot",
			email: "",
			unix:  1700000000,
			zone:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ParseSignature(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.wname, sig.Name)
			assert.Equal(t, tt.email, sig.Email)
			assert.Equal(t, tt.unix, sig.When.Unix())
			_, offset := sig.When.Zone()
			assert.Equal(t, tt.zone, offset)
		})
	}
}

func TestParseSignatureRejects(t *testing.T) {
	for _, line := range []string{
		"no email here 1378823654 +0200",
		"Name <email@example.com>",
		"Name <email@example.com> ",
		"Name <email@example.com> 13788x3654 +0200",
		"Name <email@example.com> 1378823654 0200",
		"Name <email@example.com> 1378823654",
		"Name <email@example.com> 1378823654 ",
		"Name <email@example.com> 1378823654 +02",
		"Name <email@example.com> Someday soon",
	} {
		_, err := ParseSignature(line)
		require.Error(t, err, line)
		assert.True(t, errors.IsMalformed(err), line)
	}
}

func TestSignatureString(t *testing.T) {
	line := "Patrick Gundlach <gundlach@speedata.de> 1378823654 +0200"
	sig, err := ParseSignature(line)
	require.NoError(t, err)
	assert.Equal(t, line, sig.String())
}
