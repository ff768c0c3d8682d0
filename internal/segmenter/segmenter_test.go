package segmenter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragingest/internal/domain"
)

func TestLineSegmenter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"single line no newline", "alpha", []string{"alpha"}},
		{"three lines", "alpha\nbeta\ngamma", []string{"alpha", "beta", "gamma"}},
		{"trailing newline", "alpha\nbeta\ngamma\n", []string{"alpha", "beta", "gamma"}},
		{"crlf", "alpha\r\nbeta\r\n", []string{"alpha", "beta"}},
		{"blank lines kept", "alpha\n\n   \nbeta", []string{"alpha", "", "   ", "beta"}},
		{"only newline", "\n", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := NewLineSegmenter().Segment(domain.Document{Content: tt.content})
			require.NoError(t, err)
			require.Len(t, segs, len(tt.want))
			for i, s := range segs {
				assert.Equal(t, i, s.Ordinal)
				assert.Equal(t, tt.want[i], s.Text)
			}
		})
	}
}

func TestSentenceSegmenter(t *testing.T) {
	s := NewSentenceSegmenter(2, 1)
	segs, err := s.Segment(domain.Document{Content: "One. Two! Three? Four."})
	require.NoError(t, err)

	require.Len(t, segs, 3)
	assert.Equal(t, "One. Two!", segs[0].Text)
	assert.Equal(t, "Two! Three?", segs[1].Text)
	assert.Equal(t, "Three? Four.", segs[2].Text)
	for i, seg := range segs {
		assert.Equal(t, i, seg.Ordinal)
	}
}

func TestSentenceSegmenter_NoPunctuation(t *testing.T) {
	segs, err := NewSentenceSegmenter(0, 0).Segment(domain.Document{Content: "  just words  "})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "just words", segs[0].Text)

	segs, err = NewSentenceSegmenter(0, 0).Segment(domain.Document{Content: "   "})
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestNew(t *testing.T) {
	s, err := New("", 0, 0)
	require.NoError(t, err)
	assert.IsType(t, &LineSegmenter{}, s)

	s, err = New("sentence", 3, 1)
	require.NoError(t, err)
	assert.IsType(t, &SentenceSegmenter{}, s)

	_, err = New("paragraph", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\n"), 0o644))

	doc, err := ReadDocument(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "alpha\nbeta\n", doc.Content)
}

func TestReadDocument_Missing(t *testing.T) {
	_, err := ReadDocument(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadDocument_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\n\xff\xfebeta\n"), 0o644))

	_, err := ReadDocument(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrDocumentRead)
	assert.ErrorContains(t, err, "not valid UTF-8")
}

func TestTexts(t *testing.T) {
	segs := []domain.Segment{{Ordinal: 0, Text: "a"}, {Ordinal: 1, Text: "b"}}
	assert.Equal(t, []string{"a", "b"}, Texts(segs))
}
