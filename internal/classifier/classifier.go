// Package classifier defines the consumed interface to the external pest
// classification service and its HTTP implementation.
package classifier

import (
	"context"
)

// Classification is the normalized output of the classification boundary.
type Classification struct {
	Label      string  // pest label, never empty on success
	Confidence float64 // normalized to [0,1]
}

// Classifier maps image bytes to a pest label and confidence. The service
// is external and must be treated as fallible and slow; implementations
// honor context deadlines.
type Classifier interface {
	Classify(ctx context.Context, image []byte, filename string) (Classification, error)
}

// normalizeConfidence maps boundary-defined confidence scales to [0,1].
// Services reporting percentages are detected by values above 1.
func normalizeConfidence(confidence float64) float64 {
	if confidence > 1 {
		confidence /= 100
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
