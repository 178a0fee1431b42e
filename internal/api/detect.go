package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haritpath/pestwatch/internal/datastore"
	"github.com/haritpath/pestwatch/internal/detection"
	"github.com/haritpath/pestwatch/internal/errors"
)

// DetectionResponse represents a detection result in API responses.
type DetectionResponse struct {
	ID           uint    `json:"id"`
	ImageRef     string  `json:"imageRef"`
	ImageURL     string  `json:"imageUrl"`
	PestLabel    string  `json:"pestLabel"`
	Confidence   float64 `json:"confidence"`
	Severity     string  `json:"severity"`
	AdvisoryText string  `json:"advisoryText"`
	Language     string  `json:"language,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

// DetectResult is the success envelope for POST /detect.
type DetectResult struct {
	Success bool              `json:"success"`
	Result  DetectionResponse `json:"result"`
}

func toDetectionResponse(r *datastore.DetectionResult) DetectionResponse {
	return DetectionResponse{
		ID:           r.ID,
		ImageRef:     r.ImageRef,
		ImageURL:     "/uploads/" + r.ImageRef,
		PestLabel:    r.PestLabel,
		Confidence:   r.Confidence,
		Severity:     r.Severity,
		AdvisoryText: r.AdvisoryText,
		Language:     r.Language,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

// Detect handles POST /detect: a multipart body with an "image" field and
// an optional "language" form value.
func (c *Controller) Detect(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return c.HandleError(ctx, err, "Missing image field", http.StatusBadRequest)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Unable to read image upload", http.StatusBadRequest)
	}
	defer file.Close()

	upload := detection.Upload{
		Filename: fileHeader.Filename,
		MIME:     fileHeader.Header.Get("Content-Type"),
		Reader:   file,
		Language: ctx.FormValue("language"),
	}

	result, err := c.Processor.ProcessImage(ctx.Request().Context(), upload)
	if err != nil {
		switch {
		case errors.Is(err, detection.ErrInvalidInput):
			return c.HandleError(ctx, err, "Invalid image upload", http.StatusBadRequest)
		case errors.Is(err, detection.ErrIngestFailure):
			return c.HandleError(ctx, err, "Failed to store image upload", http.StatusInternalServerError)
		case errors.Is(err, detection.ErrClassificationUnavailable):
			return c.HandleError(ctx, err, "Pest detection service unavailable", http.StatusInternalServerError)
		case errors.Is(err, detection.ErrStorageUnavailable):
			return c.HandleError(ctx, err, "Failed to save detection result", http.StatusInternalServerError)
		default:
			return c.HandleError(ctx, err, "Server error", http.StatusInternalServerError)
		}
	}

	return ctx.JSON(http.StatusOK, DetectResult{
		Success: true,
		Result:  toDetectionResponse(result),
	})
}
