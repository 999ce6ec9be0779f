package hydrogen

import (
	"fmt"
	"strings"
)

// Error is the owned error record returned by the embedding API from a
// failed compile or run: description, optional file path, 1-based
// line/column (0 if unknown), and an optional source snippet with the
// offending span's length.
type Error struct {
	Description string
	File        string
	Line        int
	Column      int
	Snippet     string
	SpanLength  int
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d ", e.File, e.Line, e.Column)
	} else if e.Line != 0 {
		fmt.Fprintf(&b, "%d:%d ", e.Line, e.Column)
	}
	fmt.Fprintf(&b, "[Error] %s", e.Description)
	if e.Snippet != "" {
		b.WriteByte('\n')
		b.WriteString(e.Snippet)
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", e.Column-1))
		b.WriteString(strings.Repeat("^", max(e.SpanLength, 1)))
	}
	return b.String()
}

// newErrorAt builds an Error anchored at a source location, attaching the
// offending line as a snippet with tabs expanded to two spaces.
func (s *State) newErrorAt(sourceIndex, line, col, spanLength int, description string) *Error {
	var file string
	var snippet string
	if sourceIndex >= 0 && sourceIndex < len(s.sources) {
		src := s.sources[sourceIndex]
		file = src.Path
		snippet = sourceLine(src.Contents, line)
	}

	return &Error{
		Description: description,
		File:        file,
		Line:        line,
		Column:      col,
		Snippet:     strings.ReplaceAll(snippet, "\t", "  "),
		SpanLength:  spanLength,
	}
}

// newErrorAtToken builds an Error from a token's recorded location.
func (s *State) newErrorAtToken(tok Token, description string) *Error {
	return s.newErrorAt(tok.Source, tok.Line, tok.Column, max(tok.Length, 1), description)
}

func sourceLine(contents string, line int) string {
	if line <= 0 {
		return ""
	}
	n := 1
	start := 0
	for i, r := range contents {
		if n == line {
			start = i
			break
		}
		if r == '\n' {
			n++
		}
	}
	if n != line {
		return ""
	}
	end := strings.IndexByte(contents[start:], '\n')
	if end == -1 {
		return contents[start:]
	}
	return contents[start : start+end]
}
