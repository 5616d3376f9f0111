package inference

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessShapeAndRange(t *testing.T) {
	img := solidImage(200, 120, color.RGBA{R: 255, G: 128, B: 0, A: 255})

	for _, layout := range []string{LayoutNHWC, LayoutNCHW} {
		t.Run(layout, func(t *testing.T) {
			data := Preprocess(img, 64, layout)
			require.Len(t, data, 3*64*64)
			for _, v := range data {
				assert.GreaterOrEqual(t, v, float32(0))
				assert.LessOrEqual(t, v, float32(1))
			}
		})
	}
}

func TestPreprocessLayout(t *testing.T) {
	img := solidImage(8, 8, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	nhwc := Preprocess(img, 4, LayoutNHWC)
	assert.InDelta(t, 1.0, nhwc[0], 0.01)
	assert.InDelta(t, 0.0, nhwc[1], 0.01)
	assert.InDelta(t, 0.0, nhwc[2], 0.01)

	nchw := Preprocess(img, 4, LayoutNCHW)
	assert.InDelta(t, 1.0, nchw[0], 0.01)
	assert.InDelta(t, 1.0, nchw[15], 0.01)
	assert.InDelta(t, 0.0, nchw[16], 0.01)
}

func TestPreprocessKeepsSourcePixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	data := Preprocess(img, 4, LayoutNHWC)
	pixel := func(x, y int) []float32 {
		i := (y*4 + x) * 3
		return data[i : i+3]
	}

	// upscaling copies pixels, no blending across quadrant edges
	assert.InDeltaSlice(t, []float32{1, 0, 0}, pixel(1, 1), 0.001)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, pixel(2, 1), 0.001)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, pixel(1, 2), 0.001)
	assert.InDeltaSlice(t, []float32{1, 1, 1}, pixel(2, 2), 0.001)
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(4, 4, color.White)))

	img, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = Decode(bytes.NewReader([]byte("fake image data")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDecide(t *testing.T) {
	scores := make([]float32, len(DefaultClasses))
	for i := range scores {
		scores[i] = 0.1
	}
	scores[len(scores)-1] = 1.0

	res, err := Decide(scores, DefaultClasses)
	require.NoError(t, err)
	assert.Equal(t, "Tomato_healthy", res.Label)
	assert.Equal(t, float32(1.0), res.Confidence)
	assert.Len(t, res.Predictions, len(DefaultClasses))
}

func TestDecideTiesPickFirst(t *testing.T) {
	res, err := Decide([]float32{0.5, 0.5, 0.1}, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Label)
}

func TestDecideEmpty(t *testing.T) {
	_, err := Decide(nil, DefaultClasses)
	assert.Error(t, err)
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	t.Run("fills defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"layout": "nhwc"}`), 0o644))

		meta, err := LoadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, 64, meta.ImageSize)
		assert.Equal(t, DefaultClasses, meta.Classes)
	})

	t.Run("nchw model", func(t *testing.T) {
		path := filepath.Join(dir, "nchw.json")
		content := `{"input_shape": [1, 3, 128, 128], "image_size": 128, "layout": "nchw", "classes": ["healthy", "sick"], "output_shape": [1, 2]}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		meta, err := LoadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, 3*128*128, meta.InputSize())
		assert.Equal(t, []string{"healthy", "sick"}, meta.Classes)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"image_size": 32}`), 0o644))

		_, err := LoadMetadata(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadMetadata(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})
}
