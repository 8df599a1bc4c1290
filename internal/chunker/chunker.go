// Package chunker splits document text into overlapping chunks sized for
// embedding. The splitter works recursively down a separator ladder,
// preferring paragraph breaks, then lines, then sentence punctuation,
// before falling back to raw character cuts.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// Default splitter parameters.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// defaultSeparators is ordered from coarsest to finest. The trailing empty
// string guarantees progress on text with no separators at all.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Splitter cuts text into chunks of at most Size characters with Overlap
// characters shared between consecutive chunks.
type Splitter struct {
	Size       int
	Overlap    int
	separators []string
}

// New creates a splitter. Non-positive size or overlap fall back to the
// defaults; overlap is clamped below size.
func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{Size: size, Overlap: overlap, separators: defaultSeparators}
}

// Split cuts text into chunk strings. Blank or whitespace-only input
// yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := s.split(text, s.separators)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// ChunksFor splits a document's content and wraps each piece as a
// domain.Chunk keyed to the document, in order.
func (s *Splitter) ChunksFor(doc domain.Document, newID func() string) []domain.Chunk {
	pieces := s.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:    newID(),
			DocID: doc.DocID,
			Index: i,
			Text:  text,
		})
	}
	return chunks
}

// split recursively divides text using the first separator that appears
// in it, merging the resulting parts back into chunks under the size
// limit. Parts that are themselves oversized recurse with the remaining,
// finer separators.
func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.Size {
		return []string{text}
	}

	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.hardSplit(text)
	}

	parts := strings.SplitAfter(text, sep)
	var pieces []string
	for _, part := range parts {
		if len(part) <= s.Size {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.split(part, rest)...)
		}
	}
	return s.merge(pieces)
}

// hardSplit cuts text at raw character boundaries with overlap. Used only
// when no separator exists in an oversized run. Cut points snap back to
// rune starts so multi-byte text never yields invalid UTF-8 chunks.
func (s *Splitter) hardSplit(text string) []string {
	step := s.Size - s.Overlap
	var out []string
	start := 0
	for start < len(text) {
		end := runeBound(text, start+s.Size)
		if end <= start {
			_, w := utf8.DecodeRuneInString(text[start:])
			end = start + w
		}
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])

		next := runeBound(text, start+step)
		if next <= start {
			_, w := utf8.DecodeRuneInString(text[start:])
			next = start + w
		}
		start = next
	}
	return out
}

// Truncate shortens s to at most limit bytes without cutting a rune in
// half. Non-positive limits yield an empty string.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	return s[:runeBound(s, limit)]
}

// runeBound moves i back to the nearest rune start so slicing at i never
// cuts a multi-byte sequence.
func runeBound(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// merge greedily packs adjacent pieces into chunks no longer than Size,
// carrying Overlap characters of trailing context into each new chunk.
func (s *Splitter) merge(pieces []string) []string {
	var out []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > s.Size {
			chunk := current.String()
			out = append(out, chunk)
			current.Reset()
			if s.Overlap > 0 && len(chunk) > s.Overlap {
				current.WriteString(chunk[runeBound(chunk, len(chunk)-s.Overlap):])
			}
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}
