// Package inference turns leaf images into plant-disease labels.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
)

const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// DefaultClasses are the PlantVillage labels in model output order.
var DefaultClasses = []string{
	"Pepper__bell___Bacterial_spot",
	"Pepper__bell___healthy",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"Potato___healthy",
	"Tomato_Bacterial_spot",
	"Tomato_Early_blight",
	"Tomato_Late_blight",
	"Tomato_Leaf_Mold",
	"Tomato_Septoria_leaf_spot",
	"Tomato_Spider_mites_Two_spotted_spider_mite",
	"Tomato__Target_Spot",
	"Tomato__Tomato_YellowLeaf__Curl_Virus",
	"Tomato__Tomato_mosaic_virus",
	"Tomato_healthy",
}

type Classifier interface {
	Classify(ctx context.Context, img image.Image) (*Result, error)
}

type Result struct {
	Label       string             `json:"label"`
	Confidence  float32            `json:"confidence"`
	Predictions map[string]float32 `json:"predictions"`
}

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, 64, 64, 3},
		OutputShape: []int64{1, int64(len(DefaultClasses))},
		Classes:     append([]string(nil), DefaultClasses...),
		ImageSize:   64,
		Layout:      LayoutNHWC,
		InputName:   "input",
		OutputName:  "output",
	}
}

// LoadMetadata reads path and fills unset fields from DefaultMetadata.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	meta := DefaultMetadata()
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (m Metadata) Validate() error {
	if m.ImageSize <= 0 {
		return fmt.Errorf("invalid image_size %d", m.ImageSize)
	}
	if m.Layout != LayoutNHWC && m.Layout != LayoutNCHW {
		return fmt.Errorf("invalid layout %q", m.Layout)
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata lists no classes")
	}
	if got, want := m.InputSize(), 3*m.ImageSize*m.ImageSize; got != want {
		return fmt.Errorf("input_shape %v holds %d values, want %d", m.InputShape, got, want)
	}
	return nil
}

// InputSize is the number of values in one input tensor.
func (m Metadata) InputSize() int {
	if len(m.InputShape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range m.InputShape {
		n *= int(dim)
	}
	return n
}
