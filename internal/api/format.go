package api

import (
	"math"
	"time"

	"github.com/dalanapp/dalan-go/internal/datastore"
	"github.com/dalanapp/dalan-go/internal/detection"
	"github.com/dalanapp/dalan-go/internal/entries"
)

// CrackTypeInfo is the per-label slice of a detection summary. Confidence is
// reported as a percentage rounded to one decimal.
type CrackTypeInfo struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// DetectionInfo summarizes detection results for one entry.
type DetectionInfo struct {
	TotalCracks int                      `json:"total_cracks"`
	CrackTypes  map[string]CrackTypeInfo `json:"crack_types"`
	Status      string                   `json:"status"`
}

// EntryResponse is the API representation of an entry.
type EntryResponse struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Location          string         `json:"location"`
	Coordinates       [2]float64     `json:"coordinates"`
	Severity          string         `json:"severity"`
	PrimaryType       string         `json:"primary_type"`
	ImageURL          string         `json:"image_url"`
	AnnotatedImageURL string         `json:"annotated_image_url,omitempty"`
	UserID            string         `json:"user_id"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	DetectionInfo     *DetectionInfo `json:"detection_info,omitempty"`
}

// formatView renders an entry together with its detection summary.
func formatView(view *entries.View) EntryResponse {
	resp := formatEntry(&view.Entry)

	info := &DetectionInfo{Status: view.Status}
	if view.Summary != nil {
		info.TotalCracks = view.Summary.TotalCracks
		info.CrackTypes = make(map[string]CrackTypeInfo, len(view.Summary.CrackTypes))
		for label, stat := range view.Summary.CrackTypes {
			info.CrackTypes[label] = CrackTypeInfo{
				Count:         stat.Count,
				AvgConfidence: toPercent(stat.AvgConfidence),
			}
		}
	}
	resp.DetectionInfo = info
	return resp
}

// formatEntry renders an entry for list output, where the summary rows are
// not loaded. Status is derived from the classification state.
func formatEntry(entry *datastore.Entry) EntryResponse {
	return EntryResponse{
		ID:                entry.ID,
		Title:             entry.Title,
		Description:       entry.Description,
		Location:          entry.Location,
		Coordinates:       [2]float64{entry.Longitude, entry.Latitude},
		Severity:          entry.Severity,
		PrimaryType:       entry.PrimaryType,
		ImageURL:          entry.ImageURL,
		AnnotatedImageURL: entry.AnnotatedImageURL,
		UserID:            entry.UserID,
		CreatedAt:         entry.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         entry.UpdatedAt.Format(time.RFC3339),
	}
}

func entryStatus(entry *datastore.Entry) string {
	if entry.PrimaryType == detection.TypeUnknown {
		return entries.StatusPending
	}
	return entries.StatusCompleted
}

// toPercent converts a [0,1] confidence to a percentage with one decimal.
// Rounding happens only here, stored values keep full precision.
func toPercent(v float64) float64 {
	return math.Round(v*1000) / 10
}
