package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_Empty(t *testing.T) {
	assert.Empty(t, SplitText("", 512, 0))
	assert.Empty(t, SplitText("   \n\n\n  \n\n", 512, 0))
}

func TestSplitText_ShortParagraphsShareChunk(t *testing.T) {
	chunks := SplitText("A short para.\n\nB short para.", 512, 50)

	assert.Equal(t, []string{"A short para.\n\nB short para."}, chunks)
}

func TestSplitText_ParagraphsAreNotOverlapped(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird one."

	chunks := SplitText(text, 25, 3)

	assert.Equal(t, []string{
		"First paragraph here.",
		"Second paragraph here.",
		"Third one.",
	}, chunks)
}

func TestSplitText_ExactFitUsesLessOrEqual(t *testing.T) {
	paragraph := strings.Repeat("x", 10)

	chunks := SplitText(paragraph, 10, 0)
	assert.Equal(t, []string{paragraph}, chunks)

	chunks = SplitText("abcd\n\nefgh", 10, 0)
	assert.Equal(t, []string{"abcd\n\nefgh"}, chunks)
}

func TestSplitText_LongParagraphWithOverlap(t *testing.T) {
	chunks := SplitText("one two three four", 10, 1)

	assert.Equal(t, []string{"one two", "two three", "three four"}, chunks)
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		assert.True(t, strings.HasPrefix(chunks[i], prevWords[len(prevWords)-1]+" "),
			"chunk %d should start with the tail of chunk %d", i, i-1)
	}
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
}

func TestSplitText_LongParagraphWithoutOverlap(t *testing.T) {
	chunks := SplitText("one two three four", 10, 0)

	assert.Equal(t, []string{"one two", "three four"}, chunks)
}

func TestSplitText_OverlapLargerThanChunkDegrades(t *testing.T) {
	chunks := SplitText("aa bb cc dd ee ff", 8, 100)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "aa bb cc", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 8)
	}
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "ff"))
}

func TestSplitText_OversizedWordIsNeverSplit(t *testing.T) {
	word := strings.Repeat("z", 25)

	chunks := SplitText("tiny "+word+" end", 10, 0)

	assert.Equal(t, []string{"tiny", word, "end"}, chunks)
}

func TestSplitText_FlushesBufferBeforeLongParagraph(t *testing.T) {
	text := "Intro.\n\nalpha beta gamma delta epsilon\n\nOutro."

	chunks := SplitText(text, 16, 0)

	assert.Equal(t, []string{"Intro.", "alpha beta gamma", "delta epsilon", "Outro."}, chunks)
}

func TestSplitText_CollapsesExtraBlankLinesAndCRLF(t *testing.T) {
	text := "Line one.\r\n\r\n\r\n\r\nLine two.\n\n\n\n"

	chunks := SplitText(text, 512, 0)

	assert.Equal(t, []string{"Line one.\n\nLine two."}, chunks)
}

func TestSplitText_CountsCharactersNotBytes(t *testing.T) {
	text := "ñandú café\n\nárbol"

	chunks := SplitText(text, 17, 0)

	assert.Equal(t, []string{"ñandú café\n\nárbol"}, chunks)
}

func TestSplitText_InvalidChunkSizeUsesDefault(t *testing.T) {
	chunks := SplitText("short text", 0, -4)

	assert.Equal(t, []string{"short text"}, chunks)
}

func TestSplitText_ReconstructsContentAndRespectsBound(t *testing.T) {
	paragraphs := []string{
		"The pipeline segments each document into passages.",
		strings.Repeat("lorem ipsum dolor sit amet ", 12),
		"Short.",
		"Another paragraph that is comfortably below the limit.",
		strings.Repeat("consectetur adipiscing ", 9),
	}
	text := strings.Join(paragraphs, "\n\n\n")
	const size = 60

	chunks := SplitText(text, size, 0)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), size)
		assert.Equal(t, strings.TrimSpace(c), c)
		assert.NotEmpty(t, c)
	}

	var want, got []string
	for _, p := range paragraphs {
		want = append(want, strings.Fields(p)...)
	}
	for _, c := range chunks {
		got = append(got, strings.Fields(c)...)
	}
	assert.Equal(t, want, got)
}

func TestSplitText_Deterministic(t *testing.T) {
	text := strings.Repeat("word ", 300) + "\n\n" + "tail paragraph"

	first := SplitText(text, 40, 3)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, SplitText(text, 40, 3))
	}
}

func TestDefaultChunkConfig(t *testing.T) {
	cfg := DefaultChunkConfig()

	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 0, cfg.Overlap)
}
