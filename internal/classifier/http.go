package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/errors"
	"github.com/haritpath/pestwatch/internal/logging"
)

const (
	userAgent  = "PestWatch https://github.com/haritpath/pestwatch"
	retryDelay = 500 * time.Millisecond
)

// classifyResponse is the wire format of the classification service.
type classifyResponse struct {
	Label      string  `json:"label"`
	Pest       string  `json:"pest"` // legacy field name used by older model servers
	Confidence float64 `json:"confidence"`
}

// HTTPClassifier talks to a model-serving endpoint that accepts a
// multipart POST with a "file" field and responds with a JSON label and
// confidence.
type HTTPClassifier struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	log        *slog.Logger
}

// NewHTTP creates an HTTPClassifier from settings.
func NewHTTP(settings *conf.Settings) *HTTPClassifier {
	maxRetries := settings.Classifier.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &HTTPClassifier{
		endpoint: settings.Classifier.Endpoint,
		client: &http.Client{
			Timeout: time.Duration(settings.Classifier.Timeout) * time.Second,
		},
		maxRetries: maxRetries,
		log:        logging.ForService("classifier"),
	}
}

// Classify implements the Classifier interface.
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte, filename string) (Classification, error) {
	if len(image) == 0 {
		return Classification{}, errors.Newf("empty image payload").
			Category(errors.CategoryValidation).
			Component("classifier").
			Build()
	}
	if filename == "" {
		filename = "image"
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, retryable, err := c.classifyOnce(ctx, image, filename)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable || attempt == c.maxRetries {
			break
		}
		if c.log != nil {
			c.log.Warn("Classification attempt failed, retrying",
				"attempt", attempt,
				"error", err)
		}
		select {
		case <-ctx.Done():
			return Classification{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryDelay):
		}
	}

	return Classification{}, lastErr
}

// classifyOnce performs a single request. The second return value reports
// whether the failure is worth retrying.
func (c *HTTPClassifier) classifyOnce(ctx context.Context, image []byte, filename string) (Classification, bool, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Classification{}, false, fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return Classification{}, false, fmt.Errorf("writing multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Classification{}, false, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return Classification{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{}, true, errors.New(fmt.Errorf("classification request failed: %w", err)).
			Category(errors.CategoryNetwork).
			Component("classifier").
			Timing("classify", time.Since(start)).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 5xx responses are transient, client errors are not.
		retryable := resp.StatusCode >= 500
		return Classification{}, retryable, errors.Newf("classification service returned non-OK response: %d", resp.StatusCode).
			Category(errors.CategoryHTTP).
			Component("classifier").
			Context("status_code", resp.StatusCode).
			Build()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Classification{}, true, fmt.Errorf("reading classification response: %w", err)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Classification{}, false, fmt.Errorf("unmarshaling classification response: %w", err)
	}

	label := parsed.Label
	if label == "" {
		label = parsed.Pest
	}
	if label == "" {
		return Classification{}, false, errors.Newf("classification response has no label").
			Category(errors.CategoryClassification).
			Component("classifier").
			Build()
	}

	if c.log != nil {
		c.log.Debug("Classification complete",
			"label", label,
			"confidence", parsed.Confidence,
			"elapsed_ms", time.Since(start).Milliseconds())
	}

	return Classification{
		Label:      label,
		Confidence: normalizeConfidence(parsed.Confidence),
	}, false, nil
}
