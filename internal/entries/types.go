// Package entries implements the road damage entry lifecycle: creation with
// best effort inline detection, the detect-reduce-annotate-persist pipeline,
// and the CRUD surface exposed over the API.
package entries

import (
	"github.com/dalanapp/dalan-go/internal/datastore"
)

// Outcome reports how a detection run concluded.
type Outcome string

const (
	// OutcomeCompleted means the model ran and its results were persisted.
	OutcomeCompleted Outcome = "completed"

	// OutcomeFallback means the model was unavailable and a placeholder
	// classification was persisted instead.
	OutcomeFallback Outcome = "fallback"
)

// Severity levels accepted on entry creation.
var ValidSeverities = []string{"minor", "major"}

// NewEntry carries the user supplied fields of a new entry.
type NewEntry struct {
	Title       string
	Description string
	Location    string
	Longitude   float64
	Latitude    float64
	Severity    string
}

// UpdateEntry carries a partial update. Nil fields are left untouched.
// The detection pipeline fields (PrimaryType, AnnotatedImageURL, ImageURL)
// are not user mutable.
type UpdateEntry struct {
	Title       *string
	Description *string
	Location    *string
	Longitude   *float64
	Latitude    *float64
	Severity    *string
}

// Statuses of the merged entry view.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// View joins an entry with its detection summary. Summary is nil while
// detection has not completed.
type View struct {
	Entry   datastore.Entry
	Summary *datastore.DetectionSummary
	Status  string
}
