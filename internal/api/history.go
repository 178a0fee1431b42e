package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/haritpath/pestwatch/internal/errors"
)

// HistoryResult is the success envelope for GET /history.
type HistoryResult struct {
	Success bool                `json:"success"`
	History []DetectionResponse `json:"history"`
}

// GetHistory handles GET /history and returns all stored detection
// results, newest first.
func (c *Controller) GetHistory(ctx echo.Context) error {
	results, err := c.Processor.History(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to fetch detection history", http.StatusInternalServerError)
	}

	history := make([]DetectionResponse, 0, len(results))
	for i := range results {
		history = append(history, toDetectionResponse(&results[i]))
	}

	return ctx.JSON(http.StatusOK, HistoryResult{
		Success: true,
		History: history,
	})
}

// GetDetection handles GET /api/v1/detections/:id.
func (c *Controller) GetDetection(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := strconv.ParseUint(id, 10, 32); err != nil {
		return c.HandleError(ctx, err, "Invalid detection id", http.StatusBadRequest)
	}

	result, err := c.Processor.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Detection not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to fetch detection", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, DetectResult{
		Success: true,
		Result:  toDetectionResponse(&result),
	})
}
