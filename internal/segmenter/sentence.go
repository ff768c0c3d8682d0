package segmenter

import (
	"regexp"
	"strings"

	"ragingest/internal/domain"
)

// SentenceSegmenter groups sentences into overlapping segments.
type SentenceSegmenter struct {
	sentencesPerSegment int
	overlapSentences    int
	splitter            *regexp.Regexp
}

// NewSentenceSegmenter returns a segmenter emitting sentencesPerSegment
// sentences per segment, repeating overlapSentences between neighbours.
func NewSentenceSegmenter(sentencesPerSegment, overlapSentences int) *SentenceSegmenter {
	if sentencesPerSegment <= 0 {
		sentencesPerSegment = 5
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerSegment {
		overlapSentences = 0
	}
	return &SentenceSegmenter{
		sentencesPerSegment: sentencesPerSegment,
		overlapSentences:    overlapSentences,
		splitter:            regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Segment splits the document into sentence groups in document order.
func (s *SentenceSegmenter) Segment(document domain.Document) ([]domain.Segment, error) {
	sentences := s.splitter.FindAllString(document.Content, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(document.Content)
		if trimmed == "" {
			return nil, nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var segments []domain.Segment
	for i := 0; i < len(sentences); {
		end := min(i+s.sentencesPerSegment, len(sentences))
		segments = append(segments, domain.Segment{
			Ordinal: len(segments),
			Text:    strings.Join(sentences[i:end], " "),
		})
		if end == len(sentences) {
			break
		}
		i = end - s.overlapSentences
	}
	return segments, nil
}
