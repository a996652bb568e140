package chunker

import (
	"strings"
)

const (
	DefaultChunkSize    = 512
	DefaultMinChunkSize = 10
	overlapLines        = 3
)

type Config struct {
	ChunkSize    int `json:"chunk_size"`
	MinChunkSize int `json:"min_chunk_size"`
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = DefaultMinChunkSize
	}
	return c
}

// Chunk is one word-bounded slice of a document, in document order.
type Chunk struct {
	Text       string
	WordCount  int
	ChunkIndex int
}

type Chunker struct {
	cfg Config
}

func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.withDefaults()}
}

// Chunk walks the text line by line, accumulating lines until adding the next
// line would push the running word count past ChunkSize. The closed-off chunk
// is emitted only if it reaches MinChunkSize words, and the next buffer is
// seeded with the last 3 lines of the previous one for overlap. A single line
// longer than ChunkSize is never split, so chunks may exceed ChunkSize.
func (c *Chunker) Chunk(text string) []Chunk {
	var chunks []Chunk
	lines := strings.Split(text, "\n")
	var current strings.Builder
	currentWords := 0

	flush := func() {
		if currentWords < c.cfg.MinChunkSize {
			return
		}
		chunks = append(chunks, Chunk{
			Text:       strings.TrimSpace(current.String()),
			WordCount:  currentWords,
			ChunkIndex: len(chunks),
		})
	}

	for _, line := range lines {
		lineWords := countWords(line)
		if currentWords+lineWords > c.cfg.ChunkSize && currentWords > 0 {
			flush()
			overlap := lastLines(current.String(), overlapLines)
			current.Reset()
			current.WriteString(overlap)
			current.WriteString("\n")
			current.WriteString(line)
			current.WriteString("\n")
			currentWords = countWords(current.String())
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		currentWords += lineWords
	}
	flush()
	return chunks
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
