package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// MaxWords caps the number of words a cloud shows.
const MaxWords = 100

// ErrNoWords is returned when the text yields no plottable words.
var ErrNoWords = errors.New("we need at least 1 word to plot a word cloud, got 0")

// Word is a token and its frequency.
type Word struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// WordCloudOptions controls word cloud rendering.
type WordCloudOptions struct {
	Width, Height int
	MaxWords      int
	Background    color.Color
	MinFontSize   float64
	MaxFontSize   float64
	Palette       []color.Color
}

// DefaultWordCloudOptions is an 800x400 white canvas with up to 100 words.
func DefaultWordCloudOptions() WordCloudOptions {
	return WordCloudOptions{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		MaxWords:    MaxWords,
		Background:  color.White,
		MinFontSize: 10,
		MaxFontSize: 80,
		Palette: []color.Color{
			color.RGBA{0x44, 0x01, 0x54, 0xff},
			color.RGBA{0x41, 0x44, 0x87, 0xff},
			color.RGBA{0x2a, 0x78, 0x8e, 0xff},
			color.RGBA{0x22, 0xa8, 0x84, 0xff},
			color.RGBA{0x7a, 0xd1, 0x51, 0xff},
		},
	}
}

func (o WordCloudOptions) withDefaults() WordCloudOptions {
	d := DefaultWordCloudOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.MaxWords <= 0 || o.MaxWords > MaxWords {
		o.MaxWords = d.MaxWords
	}
	if o.Background == nil {
		o.Background = d.Background
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = d.MinFontSize
	}
	if o.MaxFontSize < o.MinFontSize {
		o.MaxFontSize = math.Max(d.MaxFontSize, o.MinFontSize)
	}
	if len(o.Palette) == 0 {
		o.Palette = d.Palette
	}
	return o
}

// Frequencies tokenizes text into lowercase words, drops stop words, bare
// numbers and single characters, and returns at most maxWords entries, most
// frequent first with ties in alphabetical order. maxWords <= 0 means no limit.
func Frequencies(text string, maxWords int) []Word {
	counts := map[string]int{}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\'')
	}) {
		w := strings.ToLower(strings.Trim(tok, "'_"))
		w = strings.TrimSuffix(w, "'s")
		if len([]rune(w)) < 2 || isNumber(w) {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		counts[w]++
	}
	out := make([]Word, 0, len(counts))
	for w, c := range counts {
		out = append(out, Word{Text: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	if maxWords > 0 && len(out) > maxWords {
		out = out[:maxWords]
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

func regularFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

type placement struct {
	word  Word
	size  float64
	rect  image.Rectangle
	dot   fixed.Point26_6
	color color.Color
}

// faceCache shares one face per rounded font size within a render.
type faceCache struct {
	font  *opentype.Font
	faces map[int]font.Face
}

func (fc *faceCache) get(size float64) (font.Face, error) {
	key := int(math.Round(size))
	if f, ok := fc.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(fc.font, &opentype.FaceOptions{Size: float64(key), DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	fc.faces[key] = f
	return f, nil
}

func (fc *faceCache) close() {
	for _, f := range fc.faces {
		_ = f.Close()
	}
}

// WordCloudPNG lays the words out on a spiral from the canvas center, largest
// first, and encodes the result as PNG. Words that cannot fit even at the
// minimum font size are dropped. It returns the words actually drawn.
func WordCloudPNG(words []Word, opt WordCloudOptions) ([]byte, []Word, error) {
	opt = opt.withDefaults()
	if len(words) > opt.MaxWords {
		words = words[:opt.MaxWords]
	}
	if len(words) == 0 {
		return nil, nil, ErrNoWords
	}
	f, err := regularFont()
	if err != nil {
		return nil, nil, fmt.Errorf("load font: %w", err)
	}
	fc := &faceCache{font: f, faces: map[int]font.Face{}}
	defer fc.close()

	placed, err := layoutWords(words, opt, fc)
	if err != nil {
		return nil, nil, err
	}
	if len(placed) == 0 {
		return nil, nil, errors.New("no word fits the canvas")
	}

	img := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opt.Background), image.Point{}, draw.Src)
	drawn := make([]Word, 0, len(placed))
	for _, p := range placed {
		face, err := fc.get(p.size)
		if err != nil {
			return nil, nil, err
		}
		d := &font.Drawer{Dst: img, Src: image.NewUniform(p.color), Face: face, Dot: p.dot}
		d.DrawString(p.word.Text)
		drawn = append(drawn, p.word)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), drawn, nil
}

func layoutWords(words []Word, opt WordCloudOptions, fc *faceCache) ([]placement, error) {
	maxCount := words[0].Count
	for _, w := range words {
		if w.Count > maxCount {
			maxCount = w.Count
		}
	}
	var placed []placement
	for i, w := range words {
		ratio := 1.0
		if maxCount > 0 {
			ratio = math.Sqrt(float64(w.Count) / float64(maxCount))
		}
		size := opt.MinFontSize + (opt.MaxFontSize-opt.MinFontSize)*ratio
		for size >= opt.MinFontSize {
			face, err := fc.get(size)
			if err != nil {
				return nil, fmt.Errorf("font face: %w", err)
			}
			bounds, _ := font.BoundString(face, w.Text)
			wpx := (bounds.Max.X - bounds.Min.X).Ceil()
			hpx := (bounds.Max.Y - bounds.Min.Y).Ceil()
			if at, ok := findSpot(wpx, hpx, opt.Width, opt.Height, placed); ok {
				placed = append(placed, placement{
					word: w,
					size: size,
					rect: image.Rect(at.X, at.Y, at.X+wpx, at.Y+hpx),
					dot: fixed.Point26_6{
						X: fixed.I(at.X) - bounds.Min.X,
						Y: fixed.I(at.Y) - bounds.Min.Y,
					},
					color: opt.Palette[i%len(opt.Palette)],
				})
				break
			}
			size *= 0.85
		}
	}
	return placed, nil
}

// findSpot walks an elliptical Archimedean spiral out from the center and
// returns the first top-left corner where a w x h box fits without overlap.
func findSpot(w, h, cw, ch int, placed []placement) (image.Point, bool) {
	if w <= 0 || h <= 0 || w > cw || h > ch {
		return image.Point{}, false
	}
	const pad = 2
	cx, cy := float64(cw)/2, float64(ch)/2
	aspect := float64(ch) / float64(cw)
	for step := 0; ; step++ {
		t := float64(step) * 0.1
		r := 3 * t
		if r > float64(cw) {
			return image.Point{}, false
		}
		x := int(cx+r*math.Cos(t)) - w/2
		y := int(cy+r*aspect*math.Sin(t)) - h/2
		if x < 0 || y < 0 || x+w > cw || y+h > ch {
			continue
		}
		cand := image.Rect(x-pad, y-pad, x+w+pad, y+h+pad)
		free := true
		for _, p := range placed {
			if cand.Overlaps(p.rect) {
				free = false
				break
			}
		}
		if free {
			return image.Point{X: x, Y: y}, true
		}
	}
}

// RenderWordCloud builds frequencies from text and renders them.
func RenderWordCloud(text string, opt WordCloudOptions) ([]byte, []Word, error) {
	opt = opt.withDefaults()
	return WordCloudPNG(Frequencies(text, opt.MaxWords), opt)
}
