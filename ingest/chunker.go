package ingest

import "strings"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// ChunkPageText splits one page's extracted text into overlapping chunks.
// Paragraphs are kept whole where possible; the previous paragraph carries
// over into the next chunk as overlap so rulings split across a chunk
// boundary stay retrievable.
func ChunkPageText(content string, target, overlap int) []string {
	if target <= 0 {
		target = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	clean := strings.ReplaceAll(content, "\r\n", "\n")
	paragraphs := splitParagraphs(clean)

	chunks := make([]string, 0)
	current := make([]string, 0)
	currentLen := 0

	for _, p := range paragraphs {
		paragraphLen := len(p)
		if currentLen+paragraphLen > target && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			if overlap > 0 {
				last := current[len(current)-1]
				current = []string{last}
				currentLen = len(last)
			} else {
				current = current[:0]
				currentLen = 0
			}
		}

		current = append(current, p)
		currentLen += paragraphLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}

// splitParagraphs breaks text on blank lines, falling back to single lines
// when a PDF page extracts as one run without blank separators.
func splitParagraphs(content string) []string {
	separator := "\n\n"
	if !strings.Contains(content, separator) {
		separator = "\n"
	}

	parts := strings.Split(content, separator)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
