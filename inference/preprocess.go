package inference

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

var ErrUnsupportedImage = errors.New("unsupported image format")

// Decode reads a JPEG or PNG image.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// Preprocess resizes img to size×size and returns its RGB values scaled to
// [0,1] in the requested tensor layout.
func Preprocess(img image.Image, size int, layout string) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.NearestNeighbor)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [3]float32{
				float32(r) / 65535.0,
				float32(g) / 65535.0,
				float32(b) / 65535.0,
			}

			pixel := y*width + x
			for c, v := range rgb {
				if layout == LayoutNCHW {
					data[c*plane+pixel] = v
				} else {
					data[pixel*3+c] = v
				}
			}
		}
	}
	return data
}
