package inference

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// Decide picks the highest scoring class. Scores beyond the class list are
// ignored.
func Decide(scores []float32, classes []string) (*Result, error) {
	n := len(scores)
	if len(classes) < n {
		n = len(classes)
	}
	if n == 0 {
		return nil, errors.New("model produced no scores")
	}

	values := make([]float64, n)
	predictions := make(map[string]float32, n)
	for i := 0; i < n; i++ {
		values[i] = float64(scores[i])
		predictions[classes[i]] = scores[i]
	}

	best := floats.MaxIdx(values)
	return &Result{
		Label:       classes[best],
		Confidence:  scores[best],
		Predictions: predictions,
	}, nil
}
