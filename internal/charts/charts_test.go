package charts

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestBarPNG(t *testing.T) {
	b, err := BarPNG("Sentiment", []Bar{{"positive", 3}, {"negative", 1}}, 0, 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(b, pngMagic))
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, cfg.Width)
	assert.Equal(t, DefaultHeight, cfg.Height)

	_, err = BarPNG("empty", nil, 0, 0)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBarPNGAllZero(t *testing.T) {
	b, err := BarPNG("zeros", []Bar{{"a", 0}}, 400, 300)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))
}

func TestLinePNG(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	x := []time.Time{day, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)}
	b, err := LinePNG("Trend", x, []Series{
		{Name: "negative", Values: []float64{0, 1, 0}},
		{Name: "positive", Values: []float64{2, 1, 3}},
	}, 0, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))

	_, err = LinePNG("bad", x, []Series{{Name: "short", Values: []float64{1}}}, 0, 0)
	assert.Error(t, err)
	_, err = LinePNG("none", nil, nil, 0, 0)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLinePNGSingleDate(t *testing.T) {
	x := []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b, err := LinePNG("Trend", x, []Series{{Name: "positive", Values: []float64{2}}}, 0, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))
}

func TestFrequencies(t *testing.T) {
	words := Frequencies("The market's rally: Market gains, market 2024! The rally is on; a b", 0)
	require.NotEmpty(t, words)
	assert.Equal(t, Word{"market", 3}, words[0])
	assert.Equal(t, Word{"rally", 2}, words[1])
	assert.Equal(t, Word{"gains", 1}, words[2])
	for _, w := range words {
		assert.NotContains(t, []string{"the", "is", "on", "a", "b", "2024"}, w.Text)
	}

	assert.Len(t, Frequencies("alpha beta gamma delta", 2), 2)
	assert.Empty(t, Frequencies("the and of 123", 10))
}

func TestWordCloudPNG(t *testing.T) {
	b, drawn, err := RenderWordCloud("alpha alpha alpha beta beta gamma delta epsilon", DefaultWordCloudOptions())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(b, pngMagic))
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
	require.NotEmpty(t, drawn)
	assert.Equal(t, "alpha", drawn[0].Text)
}

func TestWordCloudCapsWords(t *testing.T) {
	var text bytes.Buffer
	for i := 0; i < 300; i++ {
		text.WriteString("w")
		text.WriteString(string(rune('a' + i%26)))
		text.WriteString(string(rune('a' + (i/26)%26)))
		text.WriteString(" ")
	}
	opt := DefaultWordCloudOptions()
	_, drawn, err := RenderWordCloud(text.String(), opt)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(drawn), 100)
}

func TestWordCloudClampsMaxWords(t *testing.T) {
	var text bytes.Buffer
	for i := 0; i < 150; i++ {
		text.WriteString("w")
		text.WriteString(string(rune('a' + i%26)))
		text.WriteString(string(rune('a' + (i/26)%26)))
		text.WriteString(" ")
	}
	opt := DefaultWordCloudOptions()
	opt.MaxWords = 150
	_, drawn, err := RenderWordCloud(text.String(), opt)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(drawn), MaxWords)
	assert.Equal(t, MaxWords, opt.withDefaults().MaxWords)
}

func TestWordCloudEmpty(t *testing.T) {
	_, _, err := RenderWordCloud("", DefaultWordCloudOptions())
	assert.ErrorIs(t, err, ErrNoWords)
	_, _, err = RenderWordCloud("the of and", DefaultWordCloudOptions())
	assert.ErrorIs(t, err, ErrNoWords)
}
