// Package detector wraps the object detection model behind a small interface
// so the lifecycle service and the queue consumer can share one process-wide
// instance and tests can substitute a double.
package detector

import (
	"context"
	"fmt"

	"github.com/dalanapp/dalan-go/internal/detection"
	"github.com/dalanapp/dalan-go/internal/errors"
)

// Detector runs inference over an encoded image and returns raw bounding box
// detections. A run that finds nothing returns an empty slice and nil error.
// When inference cannot be attempted at all the returned error wraps
// errors.ErrDetectionUnavailable so callers can apply the fallback policy
// instead of conflating "nothing found" with "couldn't look".
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]detection.RawDetection, error)
}

// Unavailable wraps err so that it matches errors.ErrDetectionUnavailable.
func Unavailable(err error) error {
	return errors.New(fmt.Errorf("%w: %w", errors.ErrDetectionUnavailable, err)).
		Component("detector").
		Category(errors.CategoryModelUnavailable).
		Build()
}

// serialized wraps a Detector with a single-slot semaphore. The underlying
// inference runtime is not guaranteed to be reentrant, so concurrent calls
// are serialized around the invocation only, not around the whole request.
type serialized struct {
	inner Detector
	slot  chan struct{}
}

// Serialize returns a Detector that admits one Detect call at a time.
// Waiting callers honor their context deadline and report unavailability
// instead of blocking indefinitely.
func Serialize(d Detector) Detector {
	return &serialized{inner: d, slot: make(chan struct{}, 1)}
}

func (s *serialized) Detect(ctx context.Context, imageData []byte) ([]detection.RawDetection, error) {
	select {
	case s.slot <- struct{}{}:
		defer func() { <-s.slot }()
	case <-ctx.Done():
		return nil, Unavailable(fmt.Errorf("waiting for inference slot: %w", ctx.Err()))
	}

	if err := ctx.Err(); err != nil {
		return nil, Unavailable(err)
	}
	return s.inner.Detect(ctx, imageData)
}
