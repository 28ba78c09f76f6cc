package minecraft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimension_StringRoundTrip(t *testing.T) {
	for _, d := range Dimensions {
		parsed, err := ParseDimension(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
}

func TestParseDimension_Unknown(t *testing.T) {
	_, err := ParseDimension("minecraft:overworld")
	assert.Error(t, err, "qualified names are not the canonical form")

	_, err = ParseDimension("moon")
	assert.Error(t, err)
}

func TestDimensionFromCode(t *testing.T) {
	tests := []struct {
		code int
		want Dimension
	}{
		{-1, Nether},
		{0, Overworld},
		{1, End},
	}
	for _, tt := range tests {
		got, err := DimensionFromCode(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := DimensionFromCode(2)
	assert.Error(t, err)
}

func TestDimensionFromName(t *testing.T) {
	tests := []struct {
		name string
		want Dimension
	}{
		{"minecraft:overworld", Overworld},
		{"minecraft:the_nether", Nether},
		{"minecraft:the_end", End},
	}
	for _, tt := range tests {
		got, err := DimensionFromName(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := DimensionFromName("minecraft:the_moon")
	assert.Error(t, err)
}

func TestDimension_MarshalText(t *testing.T) {
	b, err := Nether.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "nether", string(b))

	_, err = Dimension(7).MarshalText()
	assert.Error(t, err)
}
