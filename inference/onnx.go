package inference

import (
	"context"
	"fmt"
	"image"
	"sync"

	"plant-disease-api/config"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier runs the exported plant-disease network with onnxruntime.
// The input and output tensors are reused, so Classify calls are serialized.
type ONNXClassifier struct {
	Metadata Metadata

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewONNXClassifier(cfg config.ModelConfig) (*ONNXClassifier, error) {
	metadata, err := LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return nil, err
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.Path,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		Metadata:     metadata,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input := Preprocess(img, c.Metadata.ImageSize, c.Metadata.Layout)

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputTensor.GetData(), input)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output := c.outputTensor.GetData()
	scores := make([]float32, len(output))
	copy(scores, output)
	return Decide(scores, c.Metadata.Classes)
}

func (c *ONNXClassifier) Close() {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	ort.DestroyEnvironment()
}
