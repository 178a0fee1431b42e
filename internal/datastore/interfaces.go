// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines
// the operations available on the detection result store.
type Interface interface {
	Open() error
	Save(result *DetectionResult) error
	Get(id string) (DetectionResult, error)
	GetAllDetections() ([]DetectionResult, error)
	GetRecentDetections(limit int) ([]DetectionResult, error)
	CountDetections() (int64, error)
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// Save inserts a detection result. The record's ID and CreatedAt are
// populated on return, so a subsequent history query will include it.
func (ds *DataStore) Save(result *DetectionResult) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}

	if result.PestLabel == "" {
		return errors.Newf("refusing to save detection result with empty pest label").
			Category(errors.CategoryValidation).
			Component("datastore").
			Build()
	}
	if result.AdvisoryText == "" {
		return errors.Newf("refusing to save detection result with empty advisory text").
			Category(errors.CategoryValidation).
			Component("datastore").
			Build()
	}

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	if err := ds.DB.Create(result).Error; err != nil {
		return errors.New(fmt.Errorf("saving detection result: %w", err)).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Context("pest_label", result.PestLabel).
			Build()
	}

	return nil
}

// Get retrieves a detection result by its ID.
func (ds *DataStore) Get(id string) (DetectionResult, error) {
	resultID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("converting ID to integer: %w", err)
	}

	var result DetectionResult
	if err := ds.DB.First(&result, resultID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DetectionResult{}, err
		}
		return DetectionResult{}, fmt.Errorf("getting detection result with ID %d: %w", resultID, err)
	}
	return result, nil
}

// GetAllDetections retrieves the full detection history, newest first.
// The id tiebreak keeps the order stable for records created within the
// same timestamp granularity.
func (ds *DataStore) GetAllDetections() ([]DetectionResult, error) {
	var results []DetectionResult
	if err := ds.DB.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("error getting detection history: %w", err)
	}
	return results, nil
}

// GetRecentDetections retrieves the most recent detection results.
func (ds *DataStore) GetRecentDetections(limit int) ([]DetectionResult, error) {
	if limit <= 0 {
		limit = 1
	}
	var results []DetectionResult
	if err := ds.DB.Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("error getting recent detections: %w", err)
	}
	return results, nil
}

// CountDetections returns the total number of stored detection results.
func (ds *DataStore) CountDetections() (int64, error) {
	var count int64
	if err := ds.DB.Model(&DetectionResult{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting detections: %w", err)
	}
	return count, nil
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&DetectionResult{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
