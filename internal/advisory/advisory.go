// Package advisory produces farmer-facing pest management guidance text
// via the Google Generative Language API. Generation is best effort: the
// caller substitutes FallbackText when it fails, and a failed advisory
// never blocks persisting the detection result.
package advisory

import (
	"context"
)

// FallbackText is persisted in place of generated guidance when the
// generator is unavailable or errors. History consumers rely on this
// sentinel being non-empty.
const FallbackText = "No advice available"

// Generator produces advisory text for a classified pest.
type Generator interface {
	Generate(ctx context.Context, label string, confidence float64, language string) (string, error)
}
