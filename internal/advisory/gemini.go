package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/errors"
	"github.com/haritpath/pestwatch/internal/logging"
	"github.com/patrickmn/go-cache"
	"google.golang.org/api/option"
)

// GeminiGenerator generates advisory text with the Generative Language
// API. Successful advisories are cached per label and language so repeat
// detections of the same pest do not re-call the API.
type GeminiGenerator struct {
	apiKey  string
	model   string
	timeout time.Duration
	cache   *cache.Cache // nil when caching is disabled
	log     *slog.Logger
}

// NewGemini creates a generator from settings. A missing API key is not an
// error at construction time; each Generate call fails and the caller
// falls back to FallbackText.
func NewGemini(settings *conf.Settings) *GeminiGenerator {
	var advisoryCache *cache.Cache
	if ttl := settings.Advisory.CacheTTL; ttl > 0 {
		ttlDuration := time.Duration(ttl) * time.Minute
		advisoryCache = cache.New(ttlDuration, 2*ttlDuration)
	}

	return &GeminiGenerator{
		apiKey:  strings.TrimSpace(settings.Advisory.APIKey),
		model:   strings.TrimSpace(settings.Advisory.Model),
		timeout: time.Duration(settings.Advisory.Timeout) * time.Second,
		cache:   advisoryCache,
		log:     logging.ForService("advisory"),
	}
}

// Generate implements the Generator interface.
func (g *GeminiGenerator) Generate(ctx context.Context, label string, confidence float64, language string) (string, error) {
	if g.apiKey == "" {
		return "", errors.Newf("advisory API key is not configured").
			Category(errors.CategoryConfiguration).
			Component("advisory").
			Build()
	}
	if language == "" {
		language = "English"
	}

	cacheKey := strings.ToLower(label) + "|" + strings.ToLower(language)
	if g.cache != nil {
		if cached, found := g.cache.Get(cacheKey); found {
			if text, ok := cached.(string); ok {
				return text, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", errors.New(fmt.Errorf("creating generative client: %w", err)).
			Category(errors.CategoryAdvisory).
			Component("advisory").
			Build()
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text("You are an agricultural extension assistant for small farmers. " +
				"Keep advice practical, simple and short."),
		},
	}

	prompt := buildPrompt(label, confidence, language)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.New(fmt.Errorf("generating advisory: %w", err)).
			Category(errors.CategoryAdvisory).
			Component("advisory").
			Context("label", label).
			Build()
	}

	text := firstText(resp)
	if text == "" {
		return "", errors.Newf("advisory response contained no text").
			Category(errors.CategoryAdvisory).
			Component("advisory").
			Context("label", label).
			Build()
	}

	if g.cache != nil {
		g.cache.Set(cacheKey, text, cache.DefaultExpiration)
	}
	if g.log != nil {
		g.log.Debug("Generated advisory", "label", label, "language", language, "chars", len(text))
	}

	return text, nil
}

// buildPrompt mirrors the guidance request the advisory service expects.
func buildPrompt(label string, confidence float64, language string) string {
	return fmt.Sprintf(
		"The ML model detected: %s (confidence: %.2f).\n"+
			"Provide clear pest management advice for small farmers.\n"+
			"Explain in %s, keep it simple, and include organic & chemical options.",
		label, confidence, language)
}

// firstText returns the first text part of a generation response.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return strings.TrimSpace(string(t))
			}
		}
	}
	return ""
}
