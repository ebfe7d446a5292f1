package core

// streaming.go normalises an uploaded document before it reaches the CSV
// decoder, without copying the whole buffer more than once:
//
//   - the UTF-8 byte order mark written by Excel and other Windows tools is removed
//   - invalid UTF-8 bytes are replaced with '?' as they stream past
//   - carriage returns inside quoted fields are masked so the decoder keeps them
//   - bytes handed to the decoder are counted for scan statistics
//
// Use newDocumentReader to apply them in the correct order.

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spkg/bom"
)

// utf8Sanitizer wraps an io.Reader and rewrites invalid UTF-8 in place.
// A multi-byte sequence split across two reads is held back until the
// next read completes it.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.pending)
	s.pending = s.pending[:0]

	m, err := s.r.Read(p[n:])
	n += m
	if n == 0 {
		return 0, err
	}
	atEOF := err == io.EOF

	w := 0
	for i := 0; i < n; {
		c := p[i]
		if c < utf8.RuneSelf {
			p[w] = c
			w++
			i++
			continue
		}
		if !atEOF && !utf8.FullRune(p[i:n]) {
			s.pending = append(s.pending, p[i:n]...)
			break
		}
		r, size := utf8.DecodeRune(p[i:n])
		if r == utf8.RuneError && size == 1 {
			p[w] = '?'
			w++
			i++
			continue
		}
		copy(p[w:], p[i:i+size])
		w += size
		i += size
	}

	// Only a partial rune arrived; read again so callers never see (0, nil).
	if w == 0 && err == nil {
		return s.Read(p)
	}
	return w, err
}

// countingReader tracks how many bytes the decoder has consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// quotedCRMark replaces '\r' inside quoted fields. It is not valid UTF-8,
// so the sanitizer guarantees it never occurs in the document itself.
const quotedCRMark = 0xFF

// quotedCRGuard masks carriage returns between double quotes. encoding/csv
// folds a quoted "\r\n" into "\n"; masked bytes pass through untouched and
// restoreQuotedCR puts them back.
//
// Quote tracking is exact for strictly quoted input only: a doubled quote
// toggles twice and a bare quote in an unquoted field is a parse error.
type quotedCRGuard struct {
	r        io.Reader
	inQuotes bool
}

func (g *quotedCRGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	for i := 0; i < n; i++ {
		switch p[i] {
		case '"':
			g.inQuotes = !g.inQuotes
		case '\r':
			if g.inQuotes {
				p[i] = quotedCRMark
			}
		}
	}
	return n, err
}

// restoreQuotedCR undoes quotedCRGuard on decoded fields in place.
func restoreQuotedCR(fields []string) {
	for i, f := range fields {
		if strings.IndexByte(f, quotedCRMark) >= 0 {
			fields[i] = strings.ReplaceAll(f, "\xff", "\r")
		}
	}
}

// newDocumentReader strips a leading BOM, then sanitizes and counts. With
// keepQuotedCR set, carriage returns inside quoted fields are masked too.
// The document itself is never modified.
func newDocumentReader(doc []byte, keepQuotedCR bool) *countingReader {
	cleaned := bom.Clean(doc)
	var r io.Reader = newUTF8Sanitizer(bytes.NewReader(cleaned))
	if keepQuotedCR {
		r = &quotedCRGuard{r: r}
	}
	return &countingReader{r: r}
}
