package retrieval

import (
	"math"
	"sort"
)

// Excerpt is a scored slice of one document's text, labeled with the source
// document name for the context assembler.
type Excerpt struct {
	DocumentName string
	Text         string
	Score        float64
}

// Cosine returns the cosine similarity between two vectors:
// (a · b) / (‖a‖ · ‖b‖), in [-1, 1]. Mismatched lengths or zero-magnitude
// vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// topK sorts excerpts descending by score with a stable sort (ties keep
// their original chunk order) and returns at most k of them. When fewer than
// k excerpts exist, all are returned.
func topK(excerpts []Excerpt, k int) []Excerpt {
	sort.SliceStable(excerpts, func(i, j int) bool {
		return excerpts[i].Score > excerpts[j].Score
	})
	if k > 0 && len(excerpts) > k {
		excerpts = excerpts[:k]
	}
	return excerpts
}
