package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRender(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			src.Set(x, y, color.White)
		}
	}

	out, err := Render(encodePNG(t, src), []models.Annotation{
		{X: 0.5, Y: 0.5, Width: 0.4, Height: 0.4, Label: "Acne"},
	})
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// Верхняя граница рамки проходит примерно по y=30 при центре 0.5 и высоте 0.4.
	r, _, b, _ := decoded.At(50, 30).RGBA()
	assert.Less(t, r, uint32(0x9000), "пиксель рамки не должен остаться белым")
	assert.Greater(t, b, uint32(0x9000))
}

func TestRender_NotAnImage(t *testing.T) {
	_, err := Render([]byte("definitely not an image"), nil)
	assert.Error(t, err)
}
