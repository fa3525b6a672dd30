// Package detection holds the pure detection-result types and the reduction
// and annotation logic shared by the inline and async processing paths.
package detection

// Well known crack type labels.
const (
	// TypeUnknown marks an entry whose detection has not been attempted yet.
	TypeUnknown = "unknown"

	// TypeNoCracks marks an entry whose detection ran and found nothing.
	TypeNoCracks = "no_cracks"
)

// FallbackTypes is the fixed vocabulary used when inference is unavailable
// and a placeholder classification is applied instead.
var FallbackTypes = []string{"alligator", "longitudinal", "transverse", "pothole"}

// RawDetection is a single bounding box classification produced by the
// detector, in pixel coordinates with X1 < X2 and Y1 < Y2.
type RawDetection struct {
	Label      string
	Confidence float64
	X1, Y1     int
	X2, Y2     int
}

// CrackTypeStat aggregates the detections of one class label.
type CrackTypeStat struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Summary is the per-entry aggregate of all raw detections. AvgConfidence
// values are kept at full precision, display rounding happens at the API
// formatting boundary.
type Summary struct {
	TotalCracks int                      `json:"total_cracks"`
	CrackTypes  map[string]CrackTypeStat `json:"crack_types"`
}
