package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbot/pkg/utils"
)

var (
	red    = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	yellow = color.RGBA{R: 240, G: 220, B: 60, A: 255}
	green  = color.RGBA{R: 60, G: 180, B: 70, A: 255}
	blue   = color.RGBA{R: 60, G: 70, B: 160, A: 255}
	white  = color.RGBA{R: 240, G: 240, B: 235, A: 255}
	brown  = color.RGBA{R: 150, G: 100, B: 50, A: 255}
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClassify(t *testing.T) {
	classifier := NewColorClassifier()

	tests := []struct {
		name  string
		color color.RGBA
		want  string
	}{
		{"Red", red, FoodApple},
		{"Yellow", yellow, FoodBanana},
		{"Green", green, FoodSalad},
		{"Blue", blue, FoodBlueberries},
		{"White", white, FoodRice},
		{"Brown", brown, FoodBread},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifier.Classify(solidPNG(t, 120, 160, tt.color))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Rejections(t *testing.T) {
	classifier := NewColorClassifier()

	_, err := classifier.Classify(solidPNG(t, 99, 400, red))
	assert.ErrorIs(t, err, utils.ErrImageTooSmall)

	_, err = classifier.Classify([]byte("definitely not an image"))
	assert.ErrorIs(t, err, utils.ErrInvalidImage)
}

func TestEstimatePortion(t *testing.T) {
	classifier := NewColorClassifier()

	assert.Equal(t, 0.75, classifier.EstimatePortion(solidPNG(t, 200, 200, green)))
	assert.Equal(t, 1.0, classifier.EstimatePortion(solidPNG(t, 300, 300, green)))
	assert.Equal(t, 1.0, classifier.EstimatePortion(solidPNG(t, 1000, 1000, green)))
	assert.Equal(t, 1.5, classifier.EstimatePortion(solidPNG(t, 1001, 1000, green)))
	assert.Equal(t, 1.0, classifier.EstimatePortion([]byte{0x00, 0x01}))
}
