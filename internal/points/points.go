// Package points pairs segments with their embeddings.
package points

import (
	"fmt"

	"ragingest/internal/domain"
)

// Build zips segments and embeddings into points. The i-th point gets ID i+1
// and a payload holding the segment text verbatim under domain.PayloadKey.
//
// Build panics if the slices differ in length; the embedding stage
// guarantees alignment.
func Build(segments []domain.Segment, embeddings []domain.Embedding) []domain.Point {
	if len(segments) != len(embeddings) {
		panic(fmt.Sprintf("points: %d segments but %d embeddings", len(segments), len(embeddings)))
	}
	out := make([]domain.Point, len(segments))
	for i, seg := range segments {
		out[i] = domain.Point{
			ID:      uint64(i) + 1,
			Vector:  embeddings[i],
			Payload: map[string]any{domain.PayloadKey: seg.Text},
		}
	}
	return out
}
