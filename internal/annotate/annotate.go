// Package annotate рисует найденные моделью рамки поверх снимка.
// Поддерживаются JPEG и PNG; результат всегда кодируется в JPEG.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// Цвет рамок совпадает с цветом выделений в мобильном приложении.
var boxColor = color.RGBA{R: 74, G: 106, B: 232, A: 255}

const boxThickness = 2

// Render декодирует снимок, рисует рамки по нормализованным координатам
// и возвращает аннотированное изображение в JPEG.
func Render(src []byte, annotations []models.Annotation) ([]byte, error) {
	const op = "annotate.Render"

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	for _, ann := range annotations {
		// Нормализованный центр и размеры рамки переводятся в пиксели.
		bw := int(ann.Width * w)
		bh := int(ann.Height * h)
		x1 := bounds.Min.X + int(ann.X*w) - bw/2
		y1 := bounds.Min.Y + int(ann.Y*h) - bh/2
		drawRect(canvas, x1, y1, x1+bw, y1+bh)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

func drawRect(canvas *image.RGBA, x1, y1, x2, y2 int) {
	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(canvas, x, y1+t)
			setPixel(canvas, x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(canvas, x1+t, y)
			setPixel(canvas, x2-t, y)
		}
	}
}

func setPixel(canvas *image.RGBA, x, y int) {
	if (image.Point{X: x, Y: y}).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, boxColor)
	}
}
