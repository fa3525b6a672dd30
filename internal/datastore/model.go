// model.go this code defines the data model for the application
package datastore

import (
	"time"

	"github.com/dalanapp/dalan-go/internal/detection"
)

// Entry represents a single user-submitted road damage report. The entry is
// the aggregate root: its detections and summary have no meaning outside it.
// After creation the detection pipeline may mutate only PrimaryType and
// AnnotatedImageURL, every other field is immutable to the pipeline.
type Entry struct {
	ID                string `gorm:"primaryKey;type:varchar(36)"`
	Title             string
	Description       string `gorm:"type:text"`
	Location          string
	Longitude         float64
	Latitude          float64
	Severity          string `gorm:"index:idx_entries_severity;type:varchar(10)"`
	PrimaryType       string `gorm:"index:idx_entries_type;type:varchar(40)"`
	ImageURL          string
	AnnotatedImageURL string
	UserID            string    `gorm:"index:idx_entries_user;type:varchar(36)"`
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time

	Detections []Detection       `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
	Summary    *DetectionSummary `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
}

// Detection represents one bounding box classification result for an entry.
// Rows are created in bulk from the reducer's input and never mutated.
type Detection struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	EntryID    string `gorm:"index:idx_detections_entry;not null;type:varchar(36)"`
	CrackType  string `gorm:"type:varchar(40)"`
	Confidence float64
	X1         int
	Y1         int
	X2         int
	Y2         int
	CreatedAt  time.Time
}

// DetectionSummary is the reduced per-entry aggregate. The unique index on
// EntryID enforces the at-most-one active summary per entry relationship.
type DetectionSummary struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	EntryID     string `gorm:"uniqueIndex:idx_summaries_entry;not null;type:varchar(36)"`
	TotalCracks int
	CrackTypes  map[string]detection.CrackTypeStat `gorm:"serializer:json"`
	CreatedAt   time.Time
}
