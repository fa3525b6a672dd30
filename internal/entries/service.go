package entries

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/datastore"
	"github.com/dalanapp/dalan-go/internal/detection"
	"github.com/dalanapp/dalan-go/internal/detector"
	"github.com/dalanapp/dalan-go/internal/errors"
	"github.com/dalanapp/dalan-go/internal/imagestore"
	"github.com/dalanapp/dalan-go/internal/jobqueue"
	"github.com/dalanapp/dalan-go/internal/logging"
	"github.com/dalanapp/dalan-go/internal/observability"
	"github.com/dalanapp/dalan-go/internal/observability/metrics"
)

var logger *slog.Logger

func init() {
	var err error
	logFilePath := filepath.Join("logs", "entries.log")
	logger, _, err = logging.NewFileLogger(logFilePath, "entries", slog.LevelInfo)
	if err != nil {
		logger = logging.ForService("entries")
	}
}

// Service owns the entry lifecycle. Detection runs are best effort during
// creation and authoritative when replayed from the job queue.
type Service struct {
	ds       datastore.Interface
	store    imagestore.Store
	detector detector.Detector
	queue    *jobqueue.Queue
	settings *conf.Settings
	metrics  *observability.Metrics
}

// New builds the service. Metrics may be nil in tests.
func New(ds datastore.Interface, store imagestore.Store, det detector.Detector, queue *jobqueue.Queue, settings *conf.Settings, m *observability.Metrics) *Service {
	return &Service{
		ds:       ds,
		store:    store,
		detector: det,
		queue:    queue,
		settings: settings,
		metrics:  m,
	}
}

// Create validates and persists a new entry, then tries to classify it
// inline within the configured inference budget. Inline failure never fails
// the request: the entry stays pending and the queued backup job completes
// it later. A backup job is enqueued even after inline success so a crash
// between detection and persistence is repaired.
func (s *Service) Create(ctx context.Context, userID string, in NewEntry, imageData []byte) (*View, error) {
	if err := validateNewEntry(&in); err != nil {
		s.recordOperation("create", "invalid")
		return nil, err
	}

	imageURL, err := s.store.Put(ctx, imagestore.KindOriginal, userID, imageData)
	if err != nil {
		logger.Error("image upload failed, using placeholder URL",
			"user_id", userID,
			"error", err)
		imageURL = s.settings.ImageStore.PlaceholderURL
		s.recordUpload(string(imagestore.KindOriginal), "error")
	} else {
		s.recordUpload(string(imagestore.KindOriginal), "success")
	}

	now := time.Now()
	entry := &datastore.Entry{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Longitude:   in.Longitude,
		Latitude:    in.Latitude,
		Severity:    in.Severity,
		PrimaryType: detection.TypeUnknown,
		ImageURL:    imageURL,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.ds.SaveEntry(entry); err != nil {
		s.recordOperation("create", "error")
		return nil, err
	}

	// The entry row exists, so detection must not be aborted by a caller
	// disconnect. Only the inference budget bounds the inline attempt.
	detectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.Detector.Timeout)
	defer cancel()
	if _, err := s.RunDetection(detectCtx, entry.ID, imageData); err != nil {
		logger.Warn("inline detection failed, entry stays pending",
			"entry_id", entry.ID,
			"error", err)
	}

	if err := s.queue.Enqueue(jobqueue.Job{EntryID: entry.ID, ImageURL: imageURL, UserID: userID}); err != nil {
		logger.Error("failed to enqueue backup detection job",
			"entry_id", entry.ID,
			"error", err)
	}

	s.recordOperation("create", "success")
	return s.MergedView(ctx, entry.ID)
}

// RunDetection executes the full pipeline for one entry: detect, reduce,
// annotate, persist. Results replace any previous detection rows for the
// entry inside one transaction, so replays converge to the same state.
// When the model is unavailable a placeholder classification is persisted
// and OutcomeFallback is returned.
func (s *Service) RunDetection(ctx context.Context, entryID string, imageData []byte) (Outcome, error) {
	entry, err := s.ds.GetEntry(entryID)
	if err != nil {
		return "", err
	}

	start := time.Now()
	raw, err := s.detector.Detect(ctx, imageData)
	if err != nil {
		if errors.Is(err, errors.ErrDetectionUnavailable) {
			return s.applyFallback(entryID, start)
		}
		s.recordRun(metrics.OutcomeError, time.Since(start))
		return "", err
	}

	summary := detection.Reduce(raw)
	primaryType := detection.PrimaryType(summary)

	annotatedURL := ""
	if len(raw) > 0 {
		annotatedURL = s.annotateAndUpload(ctx, entry.UserID, imageData, raw)
	}

	if err := s.persistResults(entryID, raw, summary, primaryType, annotatedURL); err != nil {
		s.recordRun(metrics.OutcomeError, time.Since(start))
		return "", err
	}

	s.recordRun(metrics.OutcomeCompleted, time.Since(start))
	if s.metrics != nil {
		s.metrics.Detection.RecordCracksFound(summary.TotalCracks)
	}
	logger.Info("detection completed",
		"entry_id", entryID,
		"total_cracks", summary.TotalCracks,
		"primary_type", primaryType)
	return OutcomeCompleted, nil
}

// applyFallback persists a placeholder classification so the entry never
// stays unclassified just because the model was down.
func (s *Service) applyFallback(entryID string, start time.Time) (Outcome, error) {
	label := detection.FallbackTypes[rand.IntN(len(detection.FallbackTypes))]
	summary := detection.FallbackSummary(label, s.settings.Detector.FallbackConfidence)

	if err := s.persistResults(entryID, nil, summary, label, ""); err != nil {
		s.recordRun(metrics.OutcomeError, time.Since(start))
		return "", err
	}

	s.recordRun(metrics.OutcomeFallback, time.Since(start))
	logger.Warn("detection unavailable, fallback classification applied",
		"entry_id", entryID,
		"label", label)
	return OutcomeFallback, nil
}

func (s *Service) annotateAndUpload(ctx context.Context, userID string, imageData []byte, raw []detection.RawDetection) string {
	annotated, err := detection.Annotate(imageData, raw)
	if err != nil {
		logger.Warn("annotation failed, entry keeps original image only", "error", err)
		return ""
	}

	url, err := s.store.Put(ctx, imagestore.KindAnnotated, userID, annotated)
	if err != nil {
		logger.Warn("annotated image upload failed", "error", err)
		s.recordUpload(string(imagestore.KindAnnotated), "error")
		return ""
	}
	s.recordUpload(string(imagestore.KindAnnotated), "success")
	return url
}

func (s *Service) persistResults(entryID string, raw []detection.RawDetection, summary detection.Summary, primaryType, annotatedURL string) error {
	now := time.Now()

	rows := make([]datastore.Detection, 0, len(raw))
	for i := range raw {
		rows = append(rows, datastore.Detection{
			ID:         uuid.New().String(),
			EntryID:    entryID,
			CrackType:  raw[i].Label,
			Confidence: raw[i].Confidence,
			X1:         raw[i].X1,
			Y1:         raw[i].Y1,
			X2:         raw[i].X2,
			Y2:         raw[i].Y2,
			CreatedAt:  now,
		})
	}

	summaryRow := &datastore.DetectionSummary{
		ID:          uuid.New().String(),
		EntryID:     entryID,
		TotalCracks: summary.TotalCracks,
		CrackTypes:  summary.CrackTypes,
		CreatedAt:   now,
	}

	if err := s.ds.ReplaceDetectionResults(entryID, rows, summaryRow); err != nil {
		return err
	}

	fields := map[string]any{
		"primary_type": primaryType,
		"updated_at":   now,
	}
	if annotatedURL != "" {
		fields["annotated_image_url"] = annotatedURL
	}
	return s.ds.UpdateEntry(entryID, fields)
}

// MergedView returns the entry joined with its summary. A missing summary is
// a normal pending state, not an error.
func (s *Service) MergedView(_ context.Context, entryID string) (*View, error) {
	entry, err := s.ds.GetEntry(entryID)
	if err != nil {
		return nil, err
	}

	summary, err := s.ds.GetDetectionSummary(entryID)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if summary != nil {
		status = StatusCompleted
	}
	return &View{Entry: entry, Summary: summary, Status: status}, nil
}

// List returns entries matching the filter, newest first.
func (s *Service) List(_ context.Context, filter datastore.EntryFilter) ([]datastore.Entry, error) {
	entries, err := s.ds.GetAllEntries(filter)
	if err != nil {
		s.recordOperation("list", "error")
		return nil, err
	}
	s.recordOperation("list", "success")
	return entries, nil
}

// Get returns the merged view of one entry.
func (s *Service) Get(ctx context.Context, entryID string) (*View, error) {
	view, err := s.MergedView(ctx, entryID)
	if err != nil {
		s.recordOperation("get", "error")
		return nil, err
	}
	s.recordOperation("get", "success")
	return view, nil
}

// Update applies a partial update after an ownership check. The detection
// pipeline fields are not touchable through this path.
func (s *Service) Update(ctx context.Context, entryID, userID string, in UpdateEntry) (*View, error) {
	if err := validateUpdate(&in); err != nil {
		s.recordOperation("update", "invalid")
		return nil, err
	}

	entry, err := s.ds.GetEntry(entryID)
	if err != nil {
		s.recordOperation("update", "error")
		return nil, err
	}
	if entry.UserID != userID {
		s.recordOperation("update", "forbidden")
		return nil, forbidden(entryID, userID)
	}

	fields := map[string]any{"updated_at": time.Now()}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Location != nil {
		fields["location"] = *in.Location
	}
	if in.Longitude != nil {
		fields["longitude"] = *in.Longitude
	}
	if in.Latitude != nil {
		fields["latitude"] = *in.Latitude
	}
	if in.Severity != nil {
		fields["severity"] = *in.Severity
	}

	if err := s.ds.UpdateEntry(entryID, fields); err != nil {
		s.recordOperation("update", "error")
		return nil, err
	}

	s.recordOperation("update", "success")
	return s.MergedView(ctx, entryID)
}

// Delete removes an entry and its detection rows after an ownership check.
func (s *Service) Delete(_ context.Context, entryID, userID string) error {
	entry, err := s.ds.GetEntry(entryID)
	if err != nil {
		s.recordOperation("delete", "error")
		return err
	}
	if entry.UserID != userID {
		s.recordOperation("delete", "forbidden")
		return forbidden(entryID, userID)
	}

	if err := s.ds.DeleteEntry(entryID); err != nil {
		s.recordOperation("delete", "error")
		return err
	}
	s.recordOperation("delete", "success")
	return nil
}

// ProcessJob replays detection for a queued job. Entries deleted while the
// job waited surface as ErrNotFound, which the consumer treats as a skip.
// Entries already classified are left alone.
func (s *Service) ProcessJob(ctx context.Context, job jobqueue.Job) error {
	entry, err := s.ds.GetEntry(job.EntryID)
	if err != nil {
		return err
	}

	if entry.PrimaryType != detection.TypeUnknown {
		logger.Debug("entry already classified, skipping queued job",
			"entry_id", job.EntryID,
			"primary_type", entry.PrimaryType)
		return nil
	}

	imageData, err := s.store.Get(ctx, job.ImageURL)
	if err != nil {
		return err
	}

	_, err = s.RunDetection(ctx, job.EntryID, imageData)
	return err
}

func forbidden(entryID, userID string) error {
	return errors.New(errors.ErrForbidden).
		Component("entries").
		Category(errors.CategoryAuth).
		Context("entry_id", entryID).
		Context("user_id", userID).
		Build()
}

func (s *Service) recordOperation(operation, status string) {
	if s.metrics != nil {
		s.metrics.Entries.RecordOperation(operation, status)
	}
}

func (s *Service) recordUpload(kind, status string) {
	if s.metrics != nil {
		s.metrics.Entries.RecordUpload(kind, status)
	}
}

func (s *Service) recordRun(outcome string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.Detection.RecordRun(outcome, duration)
	}
}
