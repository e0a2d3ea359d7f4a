package service

import (
	"strings"
	"unicode/utf8"
)

const paragraphSeparator = "\n\n"

// ChunkConfig controls how documents are segmented into passages.
// ChunkSize is measured in characters; Overlap is measured in words and only
// applies between chunks cut from a single oversized paragraph.
type ChunkConfig struct {
	ChunkSize int
	Overlap   int
}

// DefaultChunkConfig provides the ingestion defaults: 512 characters, no overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 512,
		Overlap:   0,
	}
}

func (c ChunkConfig) normalized() ChunkConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkConfig().ChunkSize
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	return c
}

// SplitText segments text into ordered passages of at most chunkSize
// characters. Paragraphs (separated by blank lines) are packed greedily;
// a paragraph longer than chunkSize is packed word by word, and each
// word-level chunk after the first starts with the last overlap words of
// its predecessor. A single word longer than chunkSize becomes its own chunk.
func SplitText(text string, chunkSize, overlap int) []string {
	cfg := ChunkConfig{ChunkSize: chunkSize, Overlap: overlap}.normalized()

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(paragraphs))
	var current string

	flush := func() {
		if c := strings.TrimSpace(current); c != "" {
			chunks = append(chunks, c)
		}
		current = ""
	}

	for _, paragraph := range paragraphs {
		if runeLen(paragraph) > cfg.ChunkSize {
			flush()
			chunks = append(chunks, splitWords(paragraph, cfg)...)
			continue
		}

		candidate := paragraph
		if current != "" {
			candidate = current + paragraphSeparator + paragraph
		}
		if runeLen(candidate) <= cfg.ChunkSize {
			current = candidate
			continue
		}

		flush()
		current = paragraph
	}
	flush()

	return chunks
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, paragraphSeparator)

	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitWords packs the words of one oversized paragraph into chunks.
func splitWords(paragraph string, cfg ChunkConfig) []string {
	words := strings.Fields(paragraph)
	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := runeLen(word)
		if len(current) == 0 {
			current = append(current, word)
			currentLen = wordLen
			continue
		}
		if currentLen+1+wordLen <= cfg.ChunkSize {
			current = append(current, word)
			currentLen += 1 + wordLen
			continue
		}

		chunks = append(chunks, strings.Join(current, " "))
		current = seedWithOverlap(current, word, cfg)
		currentLen = runeLen(strings.Join(current, " "))
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// seedWithOverlap starts the next chunk with the trailing overlap words of
// the previous one followed by word. The window shrinks from the front when
// the seed would not fit in ChunkSize.
func seedWithOverlap(previous []string, word string, cfg ChunkConfig) []string {
	n := cfg.Overlap
	if n > len(previous) {
		n = len(previous)
	}

	tail := previous[len(previous)-n:]
	for len(tail) > 0 && runeLen(strings.Join(tail, " "))+1+runeLen(word) > cfg.ChunkSize {
		tail = tail[1:]
	}

	seed := make([]string, 0, len(tail)+1)
	seed = append(seed, tail...)
	return append(seed, word)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
