package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestSettings() *Settings {
	s := &Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "dalan.db"
	s.Detector.ConfidenceThreshold = 0.5
	s.Detector.FallbackConfidence = 0.85
	s.Detector.Timeout = 15 * time.Second
	s.ImageStore.Provider = "memory"
	s.JobQueue.Size = 256
	s.JobQueue.Workers = 1
	return s
}

func TestValidateSettingsAccepted(t *testing.T) {
	require.NoError(t, validateSettings(validTestSettings()))
}

func TestValidateSettingsRejections(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"no database", func(s *Settings) { s.Output.SQLite.Enabled = false }},
		{"both databases", func(s *Settings) { s.Output.MySQL.Enabled = true }},
		{"sqlite without path", func(s *Settings) { s.Output.SQLite.Path = "" }},
		{"threshold above one", func(s *Settings) { s.Detector.ConfidenceThreshold = 1.5 }},
		{"negative fallback confidence", func(s *Settings) { s.Detector.FallbackConfidence = -0.1 }},
		{"zero timeout", func(s *Settings) { s.Detector.Timeout = 0 }},
		{"unknown image store", func(s *Settings) { s.ImageStore.Provider = "ftp" }},
		{"zero queue size", func(s *Settings) { s.JobQueue.Size = 0 }},
		{"zero workers", func(s *Settings) { s.JobQueue.Workers = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := validTestSettings()
			tc.mutate(s)
			assert.Error(t, validateSettings(s))
		})
	}
}
