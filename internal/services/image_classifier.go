package services

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"calbot/pkg/utils"
)

const (
	minImageSide = 100
	sampleSide   = 32

	smallPortionArea = 300 * 300
	largePortionArea = 1000 * 1000
)

// Food names the colour heuristic can produce. They double as nutrition
// lookup queries.
const (
	FoodApple       = "apple"
	FoodBanana      = "banana"
	FoodSalad       = "salad"
	FoodBlueberries = "blueberries"
	FoodBread       = "bread"
	FoodRice        = "rice"
)

// ImageClassifier guesses a food query from a photo. The implementation is
// a colour heuristic, not recognition.
type ImageClassifier interface {
	Classify(data []byte) (string, error)
	EstimatePortion(data []byte) float64
}

type colorClassifier struct{}

func NewColorClassifier() ImageClassifier {
	return colorClassifier{}
}

// Classify downsamples the photo, averages its colour and maps the hue to
// one of six food names.
func (colorClassifier) Classify(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", utils.ErrInvalidImage
	}

	b := src.Bounds()
	if b.Dx() < minImageSide || b.Dy() < minImageSide {
		return "", utils.ErrImageTooSmall
	}

	small := image.NewRGBA(image.Rect(0, 0, sampleSide, sampleSide))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, b, draw.Src, nil)

	r, g, bl := averageColor(small)
	return bucketColor(r, g, bl), nil
}

// EstimatePortion maps raw pixel area to a coarse serving multiplier.
func (colorClassifier) EstimatePortion(data []byte) float64 {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 1.0
	}
	area := cfg.Width * cfg.Height
	switch {
	case area < smallPortionArea:
		return 0.75
	case area > largePortionArea:
		return 1.5
	default:
		return 1.0
	}
}

func averageColor(img *image.RGBA) (float64, float64, float64) {
	var r, g, b float64
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			r += float64(c.R)
			g += float64(c.G)
			b += float64(c.B)
		}
	}
	return r / n / 255, g / n / 255, b / n / 255
}

// bucketColor takes channel averages in [0,1].
func bucketColor(r, g, b float64) string {
	h, s, v := rgbToHSV(r, g, b)

	switch {
	case s < 0.2:
		if v >= 0.6 {
			return FoodRice
		}
		return FoodBread
	case h < 20 || h >= 330:
		return FoodApple
	case h < 45:
		// orange-brown: crusts read darker than fruit
		if v < 0.65 {
			return FoodBread
		}
		return FoodBanana
	case h < 75:
		return FoodBanana
	case h < 170:
		return FoodSalad
	default:
		return FoodBlueberries
	}
}

// rgbToHSV returns hue in degrees [0,360) and saturation/value in [0,1].
func rgbToHSV(r, g, b float64) (float64, float64, float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case maxC == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if maxC > 0 {
		s = delta / maxC
	}
	return h, s, maxC
}
