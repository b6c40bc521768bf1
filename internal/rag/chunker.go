package rag

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultSeparator    = "\n"
)

// Chunker splits text into overlapping windows measured in runes.
//
// A chunk ends just after the last separator inside its window, or exactly at
// the window edge when the window holds no usable separator. Every chunk after
// the first begins with the final overlap runes of the chunk before it, so
// dropping those leading runes and concatenating gives back the input.
type Chunker struct {
	size      int
	overlap   int
	separator []rune
}

func NewChunker(size, overlap int, separator string) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{
		size:      size,
		overlap:   overlap,
		separator: []rune(separator),
	}
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunks of text in order. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for len(runes)-start > c.size {
		end := c.cut(runes, start)
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}
	return append(chunks, string(runes[start:]))
}

// cut picks the end of the chunk starting at start. The end always lies past
// start+overlap so the next chunk makes progress.
func (c *Chunker) cut(runes []rune, start int) int {
	limit := start + c.size
	if len(c.separator) == 0 {
		return limit
	}
	for end := limit; end > start+c.overlap; end-- {
		if end-len(c.separator) < start {
			break
		}
		if endsWith(runes[:end], c.separator) {
			return end
		}
	}
	return limit
}

func endsWith(runes, suffix []rune) bool {
	if len(suffix) > len(runes) {
		return false
	}
	offset := len(runes) - len(suffix)
	for i, r := range suffix {
		if runes[offset+i] != r {
			return false
		}
	}
	return true
}
