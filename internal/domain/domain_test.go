package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want Distance
	}{
		{"cosine", Cosine},
		{"Cosine", Cosine},
		{"", Cosine},
		{"euclid", Euclid},
		{"Euclidean", Euclid},
		{"l2", Euclid},
		{"dot", Dot},
		{"DotProduct", Dot},
		{"manhattan", Manhattan},
		{" L1 ", Manhattan},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistance(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDistance_Unknown(t *testing.T) {
	_, err := ParseDistance("hamming")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDistance_String(t *testing.T) {
	assert.Equal(t, "Cosine", Cosine.String())
	assert.Equal(t, "Euclid", Euclid.String())
	assert.Equal(t, "Dot", Dot.String())
	assert.Equal(t, "Manhattan", Manhattan.String())
	assert.Equal(t, "Unknown(9)", Distance(9).String())
}

func TestDistance_WireCodes(t *testing.T) {
	assert.Equal(t, 1, int(Cosine))
	assert.Equal(t, 2, int(Euclid))
	assert.Equal(t, 3, int(Dot))
	assert.Equal(t, 4, int(Manhattan))
	assert.False(t, DistanceUnknown.Valid())
}

func TestDistance_TextRoundTrip(t *testing.T) {
	b, err := Dot.MarshalText()
	require.NoError(t, err)

	var d Distance
	require.NoError(t, d.UnmarshalText(b))
	assert.Equal(t, Dot, d)

	_, err = DistanceUnknown.MarshalText()
	assert.Error(t, err)
}

func TestStageError(t *testing.T) {
	cause := fmt.Errorf("%w: dial tcp: refused", ErrProvision)
	err := AtStage(StageProvision, cause)

	assert.EqualError(t, err, "ingest aborted at provision: collection provisioning failed: dial tcp: refused")
	assert.ErrorIs(t, err, ErrProvision)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageProvision, se.Stage)
}

func TestAtStage_KeepsFirstStage(t *testing.T) {
	inner := AtStage(StageEmbed, ErrEncode)
	outer := AtStage(StageWrite, inner)

	var se *StageError
	require.True(t, errors.As(outer, &se))
	assert.Equal(t, StageEmbed, se.Stage)
	assert.Nil(t, AtStage(StageWrite, nil))
}
