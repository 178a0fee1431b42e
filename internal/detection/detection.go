// Package detection orchestrates the pest detection request lifecycle:
// image ingestion, the external classification call, advisory generation,
// severity derivation and persistence.
package detection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/haritpath/pestwatch/internal/advisory"
	"github.com/haritpath/pestwatch/internal/classifier"
	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/datastore"
	"github.com/haritpath/pestwatch/internal/errors"
	"github.com/haritpath/pestwatch/internal/ingest"
	"github.com/haritpath/pestwatch/internal/logging"
	"github.com/haritpath/pestwatch/internal/observability"
)

// Error taxonomy surfaced to the HTTP layer. Matched with errors.Is.
var (
	// ErrInvalidInput rejects malformed or missing image payloads before
	// any external call. Nothing is persisted.
	ErrInvalidInput = errors.NewStd("invalid input")

	// ErrIngestFailure reports a server-side failure writing a valid
	// upload to storage. Nothing is persisted.
	ErrIngestFailure = errors.NewStd("image ingest failure")

	// ErrClassificationUnavailable reports a failed or timed-out
	// classification boundary call. Nothing is persisted.
	ErrClassificationUnavailable = errors.NewStd("classification service unavailable")

	// ErrStorageUnavailable reports a persistence failure after a
	// successful classification. The caller is told the operation failed
	// because without persistence there is no retrievable record.
	ErrStorageUnavailable = errors.NewStd("storage unavailable")
)

// Upload is one submitted image, either a file upload or a captured frame.
type Upload struct {
	Filename string    // client supplied name, informational only
	MIME     string    // declared content type, verified by ingestion
	Reader   io.Reader // payload
	Language string    // requested advisory language, optional
}

// Processor assembles detection results. All collaborators are injected so
// tests can substitute fakes for the external boundaries.
type Processor struct {
	store      datastore.Interface
	ingestor   *ingest.Ingestor
	classifier classifier.Classifier
	advisor    advisory.Generator
	metrics    *observability.Metrics
	log        *slog.Logger

	classifyTimeout time.Duration
	advisoryTimeout time.Duration
	defaultLanguage string
}

// New creates a Processor wired to the given collaborators.
func New(settings *conf.Settings, store datastore.Interface, ingestor *ingest.Ingestor,
	cls classifier.Classifier, adv advisory.Generator, metrics *observability.Metrics) *Processor {
	return &Processor{
		store:           store,
		ingestor:        ingestor,
		classifier:      cls,
		advisor:         adv,
		metrics:         metrics,
		log:             logging.ForService("detection"),
		classifyTimeout: time.Duration(settings.Classifier.Timeout) * time.Second,
		advisoryTimeout: time.Duration(settings.Advisory.Timeout) * time.Second,
		defaultLanguage: settings.Advisory.Language,
	}
}

// ProcessImage runs one detection request end to end and returns the
// persisted result. Classification failure aborts before persistence;
// advisory failure degrades to the fallback text and the request still
// succeeds.
func (p *Processor) ProcessImage(ctx context.Context, upload Upload) (*datastore.DetectionResult, error) {
	// Stage 1: validate and store the image. Fail fast, nothing external
	// has been called yet.
	artifact, err := p.ingestor.Store(ctx, upload.Filename, upload.MIME, upload.Reader)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidImage) {
			p.countOutcome(observability.OutcomeInvalidInput)
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		// Anything else is a server-side fault, not a bad payload.
		p.countOutcome(observability.OutcomeIngestFailure)
		if p.log != nil {
			p.log.Error("Failed to store upload", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrIngestFailure, err)
	}

	// Stage 2: classification with a bounded timeout. On failure there is
	// nothing meaningful to store; the artifact is removed so failed
	// requests do not leak uploads.
	classification, err := p.classify(ctx, artifact)
	if err != nil {
		if removeErr := p.ingestor.Remove(artifact.Ref); removeErr != nil && p.log != nil {
			p.log.Warn("Failed to remove artifact after classification failure",
				"ref", artifact.Ref, "error", removeErr)
		}
		p.countOutcome(observability.OutcomeClassificationUnavailable)
		if p.log != nil {
			p.log.Error("Classification failed", "ref", artifact.Ref, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}

	// Stage 3: advisory generation, best effort. A failure here must not
	// waste the successful classification.
	language := upload.Language
	if language == "" {
		language = p.defaultLanguage
	}
	advisoryText := p.generateAdvisory(ctx, classification, language)

	// Stage 4: assemble the record.
	result := &datastore.DetectionResult{
		ImageRef:     artifact.Ref,
		PestLabel:    classification.Label,
		Confidence:   classification.Confidence,
		Severity:     SeverityForConfidence(classification.Confidence),
		AdvisoryText: advisoryText,
		Language:     language,
		CreatedAt:    time.Now(),
	}

	// Stage 5: persist. This is the one failure surfaced as a hard error
	// after classification succeeded, since the result would otherwise be
	// lost. The artifact is kept: the image itself is still retrievable.
	if err := p.store.Save(result); err != nil {
		p.countOutcome(observability.OutcomeStorageUnavailable)
		if p.log != nil {
			p.log.Error("Failed to persist detection result",
				"pest_label", result.PestLabel, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	p.countOutcome(observability.OutcomeSuccess)
	if p.metrics != nil {
		p.metrics.ResultsSaved.Inc()
	}
	if p.log != nil {
		p.log.Info("Detection complete",
			"id", result.ID,
			"pest_label", result.PestLabel,
			"confidence", result.Confidence,
			"severity", result.Severity)
	}

	return result, nil
}

// classify calls the classification boundary with its own deadline so a
// stuck service cannot hang the request.
func (p *Processor) classify(ctx context.Context, artifact *ingest.Artifact) (classifier.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, p.classifyTimeout)
	defer cancel()

	start := time.Now()
	classification, err := p.classifier.Classify(ctx, artifact.Bytes, artifact.Ref)
	if p.metrics != nil {
		p.metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return classifier.Classification{}, err
	}
	if classification.Label == "" {
		return classifier.Classification{}, errors.Newf("classifier returned empty label").
			Category(errors.CategoryClassification).
			Component("detection").
			Build()
	}
	return classification, nil
}

// generateAdvisory returns generated guidance or the fallback sentinel.
// Advisory failure is logged, counted and otherwise invisible to callers.
func (p *Processor) generateAdvisory(ctx context.Context, c classifier.Classification, language string) string {
	ctx, cancel := context.WithTimeout(ctx, p.advisoryTimeout)
	defer cancel()

	text, err := p.advisor.Generate(ctx, c.Label, c.Confidence, language)
	if err != nil || text == "" {
		if p.metrics != nil {
			p.metrics.AdvisoryFallbacks.Inc()
		}
		if p.log != nil {
			p.log.Warn("Advisory generation degraded, using fallback",
				"label", c.Label, "language", language, "error", err)
		}
		return advisory.FallbackText
	}
	return text
}

// History returns all stored detection results, newest first.
func (p *Processor) History(ctx context.Context) ([]datastore.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.store.GetAllDetections()
}

// Get returns one stored detection result by id.
func (p *Processor) Get(ctx context.Context, id string) (datastore.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return datastore.DetectionResult{}, err
	}
	return p.store.Get(id)
}

func (p *Processor) countOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.DetectionsTotal.WithLabelValues(outcome).Inc()
	}
}

// SeverityForConfidence derives the severity bucket from a normalized
// confidence score.
func SeverityForConfidence(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return datastore.SeverityHigh
	case confidence >= 0.5:
		return datastore.SeverityMedium
	default:
		return datastore.SeverityLow
	}
}
