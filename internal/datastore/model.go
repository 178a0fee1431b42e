// model.go defines the persisted data model for detection results
package datastore

import "time"

// Severity levels derived from classification confidence.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// DetectionResult is the record of one completed detection cycle. Records
// are insert-only: there is no update or delete path, and history queries
// return them newest first.
type DetectionResult struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ImageRef     string    `gorm:"not null" json:"imageRef"`
	PestLabel    string    `gorm:"index:idx_results_pestlabel;not null" json:"pestLabel"`
	Confidence   float64   `json:"confidence"`
	Severity     string    `gorm:"type:varchar(16);not null" json:"severity"`
	AdvisoryText string    `gorm:"type:text;not null" json:"advisoryText"`
	Language     string    `gorm:"type:varchar(32)" json:"language,omitempty"`
	CreatedAt    time.Time `gorm:"index:idx_results_createdat" json:"createdAt"`
}
