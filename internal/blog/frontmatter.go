package blog

import (
	"bytes"
	"errors"
)

// ErrMissingClosingDelimiter indicates the document opened a YAML
// frontmatter block but never closed it.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// splitFrontmatter separates `---` delimited YAML frontmatter from the
// Markdown body. LF and CRLF documents are both accepted; had is false when
// the document does not start with a delimiter.
func splitFrontmatter(content []byte) (frontmatter, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	rest := content[start:]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	if bytes.Equal(rest, []byte("---")) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		// closing delimiter on the last line without a trailing newline
		if bytes.HasSuffix(rest, []byte(nl+"---")) {
			return rest[:len(rest)-len("---")], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closeSeq):], true, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
