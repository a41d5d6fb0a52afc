package blog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		fm      string
		body    string
		had     bool
		wantErr error
	}{
		{name: "lf", in: "---\ntitle: A\n---\nbody\n", fm: "title: A\n", body: "body\n", had: true},
		{name: "crlf", in: "---\r\ntitle: A\r\n---\r\nbody", fm: "title: A\r\n", body: "body", had: true},
		{name: "empty block", in: "---\n---\nbody", fm: "", body: "body", had: true},
		{name: "closed at eof", in: "---\ntitle: A\n---", fm: "title: A\n", body: "", had: true},
		{name: "crlf closed at eof", in: "---\r\ntitle: A\r\n---", fm: "title: A\r\n", body: "", had: true},
		{name: "empty block at eof", in: "---\n---", fm: "", body: "", had: true},
		{name: "none", in: "# Heading\n", body: "# Heading\n"},
		{name: "unclosed", in: "---\ntitle: A\nbody", wantErr: ErrMissingClosingDelimiter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, had, err := splitFrontmatter([]byte(tt.in))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.had, had)
			assert.Equal(t, tt.fm, string(fm))
			assert.Equal(t, tt.body, string(body))
		})
	}
}
