// Package segmenter splits documents into retrievable segments.
package segmenter

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"ragingest/internal/domain"
)

// LineSegmenter emits one segment per line. Empty and whitespace-only lines
// are kept so that segment ordinals match line numbers.
type LineSegmenter struct{}

// NewLineSegmenter returns a line-based segmenter.
func NewLineSegmenter() *LineSegmenter { return &LineSegmenter{} }

// Segment splits on '\n', strips a trailing '\r' from each line and does not
// count a final trailing newline as an extra line.
func (LineSegmenter) Segment(document domain.Document) ([]domain.Segment, error) {
	if document.Content == "" {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSuffix(document.Content, "\n"), "\n")
	segments := make([]domain.Segment, len(lines))
	for i, line := range lines {
		segments[i] = domain.Segment{Ordinal: i, Text: strings.TrimSuffix(line, "\r")}
	}
	return segments, nil
}

// New returns the segmenter registered under kind.
func New(kind string, sentencesPerSegment, overlapSentences int) (domain.Segmenter, error) {
	switch kind {
	case "line", "":
		return NewLineSegmenter(), nil
	case "sentence":
		return NewSentenceSegmenter(sentencesPerSegment, overlapSentences), nil
	default:
		return nil, fmt.Errorf("%w: unknown segmenter %q", domain.ErrInvalidInput, kind)
	}
}

// ReadDocument reads path to completion. The content must be valid UTF-8.
func ReadDocument(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrDocumentRead, err)
	}
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrDocumentRead, path)
	}
	return domain.Document{Source: path, Content: string(data)}, nil
}

// Texts returns the segment texts in order.
func Texts(segments []domain.Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}
