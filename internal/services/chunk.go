package services

import "strings"

const (
	// maxChunkSize keeps each chunk well under the Groq context limit so
	// the model has room to return complete questions.
	maxChunkSize = 6000
	// overlapSize re-sends the tail of the previous chunk so a question
	// split across a boundary still appears whole in one of them.
	overlapSize = 800
)

// splitChunks cuts text into windows of at most maxChunkSize characters.
// Each window is trimmed backward to a natural boundary when one sits close
// enough to the tail: a question mark within the last 1000 characters, a
// double newline within 800, a single newline within 500, or a period
// within 300, in that priority order. The next window restarts overlapSize
// characters before the cut.
func splitChunks(text string) []string {
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	i := 0
	for i < len(text) {
		end := i + maxChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunk := text[i:end]

		// Every search window is at most 1000 chars, so a cut always lands
		// deep enough into the chunk that the restart point advances past i.
		next := end
		if end < len(text) {
			if boundary := chunkBoundary(chunk); boundary >= 0 {
				chunk = chunk[:boundary+1]
				next = i + boundary + 1 - overlapSize
			} else {
				next = end - overlapSize
			}
		}
		i = next

		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}

func chunkBoundary(chunk string) int {
	type candidate struct {
		marker string
		window int
	}
	for _, c := range []candidate{
		{"?", 1000},
		{"\n\n", 800},
		{"\n", 500},
		{".", 300},
	} {
		idx := strings.LastIndex(chunk, c.marker)
		if idx >= 0 && idx >= len(chunk)-c.window {
			return idx
		}
	}
	return -1
}
