// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/errors"
)

// EntryFilter narrows GetAllEntries results. Zero-valued fields are ignored.
type EntryFilter struct {
	UserID    string
	Severity  string
	CrackType string
}

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the application depends on.
type Interface interface {
	Open() error
	Close() error

	SaveEntry(entry *Entry) error
	GetEntry(id string) (Entry, error)
	GetAllEntries(filter EntryFilter) ([]Entry, error)
	UpdateEntry(id string, fields map[string]any) error
	DeleteEntry(id string) error

	ReplaceDetectionResults(entryID string, dets []Detection, summary *DetectionSummary) error
	GetDetections(entryID string) ([]Detection, error)
	GetDetectionSummary(entryID string) (*DetectionSummary, error)
	CountDetections(entryID string) (int64, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new store instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// SaveEntry inserts a new entry row.
func (ds *DataStore) SaveEntry(entry *Entry) error {
	if err := ds.DB.Create(entry).Error; err != nil {
		return errors.New(fmt.Errorf("saving entry: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("entry_id", entry.ID).
			Build()
	}
	return nil
}

// GetEntry retrieves an entry by its ID.
func (ds *DataStore) GetEntry(id string) (Entry, error) {
	var entry Entry
	if err := ds.DB.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Entry{}, errors.New(fmt.Errorf("entry %s: %w", id, errors.ErrNotFound)).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return Entry{}, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return entry, nil
}

// GetAllEntries retrieves entries matching the filter, newest first.
func (ds *DataStore) GetAllEntries(filter EntryFilter) ([]Entry, error) {
	query := ds.DB.Model(&Entry{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.CrackType != "" {
		query = query.Where("primary_type = ?", filter.CrackType)
	}

	var entries []Entry
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("getting entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry updates specific fields of an entry.
func (ds *DataStore) UpdateEntry(id string, fields map[string]any) error {
	result := ds.DB.Model(&Entry{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("updating entry %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New(fmt.Errorf("entry %s: %w", id, errors.ErrNotFound)).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// DeleteEntry removes an entry together with its detections and summary.
func (ds *DataStore) DeleteEntry(id string) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&Detection{}).Error; err != nil {
			return fmt.Errorf("deleting detections for entry %s: %w", id, err)
		}
		if err := tx.Where("entry_id = ?", id).Delete(&DetectionSummary{}).Error; err != nil {
			return fmt.Errorf("deleting summary for entry %s: %w", id, err)
		}
		result := tx.Delete(&Entry{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("deleting entry %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.New(fmt.Errorf("entry %s: %w", id, errors.ErrNotFound)).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil
	})
}

// ReplaceDetectionResults upserts the detection side of an entry: all prior
// detection rows and the summary for the entry are replaced in one
// transaction. Keyed by entry id this makes re-processing idempotent, the
// synchronous and async paths converge regardless of interleaving.
func (ds *DataStore) ReplaceDetectionResults(entryID string, dets []Detection, summary *DetectionSummary) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", entryID).Delete(&Detection{}).Error; err != nil {
			return fmt.Errorf("clearing detections for entry %s: %w", entryID, err)
		}
		if err := tx.Where("entry_id = ?", entryID).Delete(&DetectionSummary{}).Error; err != nil {
			return fmt.Errorf("clearing summary for entry %s: %w", entryID, err)
		}

		for i := range dets {
			dets[i].EntryID = entryID
			if err := tx.Create(&dets[i]).Error; err != nil {
				return fmt.Errorf("saving detection for entry %s: %w", entryID, err)
			}
		}

		if summary != nil {
			summary.EntryID = entryID
			if err := tx.Create(summary).Error; err != nil {
				return fmt.Errorf("saving summary for entry %s: %w", entryID, err)
			}
		}
		return nil
	})
}

// GetDetections retrieves all detection rows for an entry.
func (ds *DataStore) GetDetections(entryID string) ([]Detection, error) {
	var dets []Detection
	if err := ds.DB.Where("entry_id = ?", entryID).Order("created_at ASC").Find(&dets).Error; err != nil {
		return nil, fmt.Errorf("getting detections for entry %s: %w", entryID, err)
	}
	return dets, nil
}

// GetDetectionSummary retrieves the summary for an entry. A missing summary
// is an expected intermediate state and is reported as nil, nil.
func (ds *DataStore) GetDetectionSummary(entryID string) (*DetectionSummary, error) {
	var summary DetectionSummary
	if err := ds.DB.Where("entry_id = ?", entryID).First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting summary for entry %s: %w", entryID, err)
	}
	return &summary, nil
}

// CountDetections returns the number of detection rows for an entry.
func (ds *DataStore) CountDetections(entryID string) (int64, error) {
	var count int64
	if err := ds.DB.Model(&Detection{}).Where("entry_id = ?", entryID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting detections for entry %s: %w", entryID, err)
	}
	return count, nil
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Entry{}, &Detection{}, &DetectionSummary{}); err != nil {
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
