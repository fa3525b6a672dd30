package conf

import (
	"fmt"
)

// validateSettings checks settings for values that would fail at runtime.
func validateSettings(s *Settings) error {
	if !s.Output.SQLite.Enabled && !s.Output.MySQL.Enabled {
		return fmt.Errorf("no database output enabled, enable either sqlite or mysql")
	}
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		return fmt.Errorf("both sqlite and mysql outputs enabled, pick one")
	}
	if s.Output.SQLite.Enabled && s.Output.SQLite.Path == "" {
		return fmt.Errorf("sqlite output enabled but no path configured")
	}

	if s.Detector.ConfidenceThreshold < 0 || s.Detector.ConfidenceThreshold > 1 {
		return fmt.Errorf("detector confidence threshold must be between 0 and 1, got %f",
			s.Detector.ConfidenceThreshold)
	}
	if s.Detector.FallbackConfidence < 0 || s.Detector.FallbackConfidence > 1 {
		return fmt.Errorf("detector fallback confidence must be between 0 and 1, got %f",
			s.Detector.FallbackConfidence)
	}
	if s.Detector.Timeout <= 0 {
		return fmt.Errorf("detector timeout must be positive, got %v", s.Detector.Timeout)
	}

	switch s.ImageStore.Provider {
	case "s3", "memory":
	default:
		return fmt.Errorf("unknown image store provider %q", s.ImageStore.Provider)
	}

	if s.JobQueue.Size <= 0 {
		return fmt.Errorf("job queue size must be positive, got %d", s.JobQueue.Size)
	}
	if s.JobQueue.Workers <= 0 {
		return fmt.Errorf("job queue workers must be positive, got %d", s.JobQueue.Workers)
	}

	return nil
}
