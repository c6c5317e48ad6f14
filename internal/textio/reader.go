// Package textio normalizes text documents as they stream in. MAP files and
// vocabularies are often saved by spreadsheet tools or Windows editors, so
// loaders wrap their input with NewReader before parsing.
package textio

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Replacement is written in place of each byte that is not valid UTF-8.
const Replacement = '?'

// NewReader skips a leading UTF-8 byte order mark and replaces invalid
// UTF-8 bytes with Replacement.
func NewReader(r io.Reader) io.Reader {
	return NewSanitizer(SkipBOM(r))
}

// bomReader drops a UTF-8 BOM from the start of the stream.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

// SkipBOM returns a reader that omits a leading UTF-8 byte order mark.
// A partial mark is passed through unchanged.
func SkipBOM(r io.Reader) io.Reader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		if head, err := b.r.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
			_, _ = b.r.Discard(len(bom))
		}
	}
	return b.r.Read(p)
}

// sanitizer rewrites invalid UTF-8 one chunk at a time. An incomplete
// sequence at the end of a chunk is held back until more input arrives.
type sanitizer struct {
	r       io.Reader
	buf     []byte
	pending []byte
	out     []byte
	err     error
}

// NewSanitizer returns a reader that replaces invalid UTF-8 bytes with
// Replacement. The output never exceeds the input length.
func NewSanitizer(r io.Reader) io.Reader {
	return &sanitizer{r: r, buf: make([]byte, 32*1024)}
}

func (s *sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			if len(s.pending) > 0 {
				// Input ended inside a sequence.
				s.out = bytes.Repeat([]byte{Replacement}, len(s.pending))
				s.pending = nil
				break
			}
			return 0, s.err
		}

		n, err := s.r.Read(s.buf)
		s.err = err
		if n == 0 {
			continue
		}
		chunk := append(s.pending, s.buf[:n]...)
		s.pending = nil
		s.out = s.clean(chunk)
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// clean returns chunk with invalid bytes replaced. A trailing incomplete
// rune is stashed in pending.
func (s *sanitizer) clean(chunk []byte) []byte {
	out := make([]byte, 0, len(chunk))
	for i := 0; i < len(chunk); {
		c := chunk[i]
		if c < utf8.RuneSelf {
			out = append(out, c)
			i++
			continue
		}
		r, size := utf8.DecodeRune(chunk[i:])
		if r == utf8.RuneError && size <= 1 {
			if !utf8.FullRune(chunk[i:]) && s.err == nil {
				s.pending = append([]byte(nil), chunk[i:]...)
				break
			}
			out = append(out, Replacement)
			i++
			continue
		}
		out = append(out, chunk[i:i+size]...)
		i += size
	}
	return out
}
