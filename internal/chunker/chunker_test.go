package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

func TestSplitBlankTextYieldsNoChunks(t *testing.T) {
	s := New(1000, 200)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\t  "))
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s := New(1000, 200)
	chunks := s.Split("A short release note.")
	assert.Len(t, chunks, 1)
	assert.Equal(t, "A short release note.", chunks[0])
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("word ", 120) // ~600 chars
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

	s := New(700, 100)
	chunks := s.Split(text)
	assert.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 700+100)
	}
}

func TestSplitRespectsSizeBound(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "Sentence number %d about the billing service. ", i)
	}

	s := New(500, 100)
	chunks := s.Split(b.String())
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 500+100)
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "Line %d of the runbook.\n", i)
	}

	s := New(300, 60)
	chunks := s.Split(b.String())
	assert.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-10:]
		assert.Contains(t, chunks[i], strings.TrimSpace(tail)[:5])
	}
}

func TestSplitSeparatorFreeTextHardSplits(t *testing.T) {
	text := strings.Repeat("x", 2500)
	s := New(1000, 200)
	chunks := s.Split(text)
	assert.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000)
	}
	// Every chunk after the first starts with the previous chunk's tail.
	for i := 1; i < len(chunks); i++ {
		assert.True(t, strings.HasPrefix(chunks[i], strings.Repeat("x", 200)))
	}
}

func TestChunksForNumbersChunksInOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "Paragraph %d.\n\n", i)
	}
	doc := domain.Document{DocID: "jira-PROJ-1", Content: b.String()}

	next := 0
	s := New(300, 50)
	chunks := s.ChunksFor(doc, func() string {
		next++
		return fmt.Sprintf("chunk-%d", next)
	})

	assert.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, "jira-PROJ-1", c.DocID)
		assert.Equal(t, i, c.Index)
		assert.True(t, c.Pending())
	}
}

func TestNewClampsDegenerateParameters(t *testing.T) {
	s := New(0, -1)
	assert.Equal(t, DefaultChunkSize, s.Size)
	assert.Equal(t, DefaultOverlap, s.Overlap)

	s = New(100, 100)
	assert.Equal(t, 50, s.Overlap)
}

func TestSplitMultiByteTextStaysValidUTF8(t *testing.T) {
	s := New(DefaultChunkSize, DefaultOverlap)
	chunks := s.Split(strings.Repeat("한글문서내용", 400))

	assert.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
	}
}

func TestSplitMultiByteSeparatorFreeTextStaysValidUTF8(t *testing.T) {
	s := New(100, 20)
	chunks := s.Split(strings.Repeat("가나다라마바사아자차", 50))

	assert.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	text := "제목: 배포 절차"

	got := Truncate(text, 8)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 8)
	assert.True(t, strings.HasPrefix(text, got))

	assert.Equal(t, text, Truncate(text, len(text)))
	assert.Equal(t, text, Truncate(text, 1000))
	assert.Equal(t, "", Truncate(text, 0))
}
