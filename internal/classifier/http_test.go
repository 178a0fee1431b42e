package classifier

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haritpath/pestwatch/internal/conf"
)

const testEndpoint = "http://model.test/analyze"

func newTestClassifier(t *testing.T, maxRetries int) *HTTPClassifier {
	t.Helper()

	settings := &conf.Settings{}
	settings.Classifier.Endpoint = testEndpoint
	settings.Classifier.Timeout = 5
	settings.Classifier.MaxRetries = maxRetries

	c := NewHTTP(settings)
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func testImage() []byte {
	return []byte("\xff\xd8\xfffake-jpeg-bytes")
}

func TestHTTPClassifier_Classify_Success(t *testing.T) {
	c := newTestClassifier(t, 1)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"label": "aphid", "confidence": 0.92}`))

	result, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.NoError(t, err)
	assert.Equal(t, "aphid", result.Label)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPClassifier_Classify_LegacyPestField(t *testing.T) {
	c := newTestClassifier(t, 1)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"pest": "stem borer", "confidence": 0.61}`))

	result, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.NoError(t, err)
	assert.Equal(t, "stem borer", result.Label)
	assert.InDelta(t, 0.61, result.Confidence, 0.001)
}

func TestHTTPClassifier_Classify_PercentConfidenceNormalized(t *testing.T) {
	c := newTestClassifier(t, 1)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"label": "whitefly", "confidence": 87}`))

	result, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.NoError(t, err)
	assert.InDelta(t, 0.87, result.Confidence, 0.001)
}

func TestHTTPClassifier_Classify_SendsMultipartFileField(t *testing.T) {
	c := newTestClassifier(t, 1)

	httpmock.RegisterResponder("POST", testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			file, header, err := req.FormFile("file")
			if err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, `{"error": "missing file"}`), nil
			}
			defer file.Close()
			assert.Equal(t, "leaf.jpg", header.Filename)
			return httpmock.NewStringResponse(http.StatusOK, `{"label": "aphid", "confidence": 0.9}`), nil
		})

	_, err := c.Classify(context.Background(), testImage(), "leaf.jpg")
	require.NoError(t, err)
}

func TestHTTPClassifier_Classify_ClientErrorNotRetried(t *testing.T) {
	c := newTestClassifier(t, 3)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error": "bad image"}`))

	_, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-OK response")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPClassifier_Classify_ServerErrorRetried(t *testing.T) {
	c := newTestClassifier(t, 2)

	calls := 0
	httpmock.RegisterResponder("POST", testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"label": "aphid", "confidence": 0.8}`), nil
		})

	result, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.NoError(t, err)
	assert.Equal(t, "aphid", result.Label)
	assert.Equal(t, 2, calls)
}

func TestHTTPClassifier_Classify_InvalidJSON(t *testing.T) {
	c := newTestClassifier(t, 1)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{invalid json`))

	_, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestHTTPClassifier_Classify_EmptyLabel(t *testing.T) {
	c := newTestClassifier(t, 1)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"confidence": 0.7}`))

	_, err := c.Classify(context.Background(), testImage(), "leaf.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no label")
}

func TestHTTPClassifier_Classify_Timeout(t *testing.T) {
	c := newTestClassifier(t, 1)

	// Responder answers well after the request deadline.
	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"label": "aphid", "confidence": 0.9}`).
			Delay(500*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Classify(ctx, testImage(), "leaf.jpg")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPClassifier_Classify_EmptyImage(t *testing.T) {
	c := newTestClassifier(t, 1)

	_, err := c.Classify(context.Background(), nil, "leaf.jpg")

	require.Error(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"fraction", 0.42, 0.42},
		{"percent", 87, 0.87},
		{"over_hundred", 150, 1},
		{"negative", -0.5, 0},
		{"zero", 0, 0},
		{"one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, normalizeConfidence(tt.in), 0.001)
		})
	}
}
