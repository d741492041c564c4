// Package retrieval implements the document-grounded context pipeline: it
// partitions stored reference documents into fixed-size chunks, scores the
// chunks against the current query by embedding cosine similarity, selects
// the most relevant excerpts per document, and assembles the bounded
// conversation context sent to the completion provider.
//
// The package is deterministic given its inputs: chunk boundaries depend only
// on text and window size, and ranking uses a stable sort so equal scores
// preserve document order. External embedding calls are the only fallible
// dependency, and their failures are absorbed per chunk.
package retrieval

// Chunks splits text into consecutive windows of size runes each. Every chunk
// has exactly size runes except the final one, which holds the remainder.
// Concatenating the chunks in order reproduces text exactly. Empty text
// yields nil; size <= 0 is coerced to 1000.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = 1000
	}
	if text == "" {
		return nil
	}
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
