//go:build !gocv
// +build !gocv

package detector

import (
	"context"
	"fmt"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/detection"
)

// stubDetector is used in builds without the gocv tag. Every call reports
// unavailability so the lifecycle manager exercises its fallback path.
type stubDetector struct{}

// New returns a detector stub when built without the gocv tag.
func New(settings *conf.Settings) (Detector, error) {
	_ = settings
	return Serialize(stubDetector{}), nil
}

func (stubDetector) Detect(ctx context.Context, imageData []byte) ([]detection.RawDetection, error) {
	_ = ctx
	_ = imageData
	return nil, Unavailable(fmt.Errorf("gocv build tag is not enabled"))
}
