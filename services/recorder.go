package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plant-disease-api/models"
)

// ErrMissingField reports a required field absent from a request.
var ErrMissingField = errors.New("missing field")

type predictionCreator interface {
	Create(ctx context.Context, filename, label string) (models.Prediction, error)
}

// Recorder turns a classification result into a stored prediction.
type Recorder struct {
	predictions predictionCreator
}

func NewRecorder(predictions predictionCreator) *Recorder {
	return &Recorder{predictions: predictions}
}

func (r *Recorder) Record(ctx context.Context, filename, label string) (models.Prediction, error) {
	var missing []string
	if strings.TrimSpace(filename) == "" {
		missing = append(missing, "filename")
	}
	if strings.TrimSpace(label) == "" {
		missing = append(missing, "prediction")
	}
	if len(missing) > 0 {
		return models.Prediction{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return r.predictions.Create(ctx, filename, label)
}
