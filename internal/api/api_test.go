package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalanapp/dalan-go/internal/auth"
	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/datastore"
	"github.com/dalanapp/dalan-go/internal/detection"
	"github.com/dalanapp/dalan-go/internal/entries"
	"github.com/dalanapp/dalan-go/internal/imagestore"
	"github.com/dalanapp/dalan-go/internal/jobqueue"
)

type fakeDetector struct {
	dets []detection.RawDetection
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte) ([]detection.RawDetection, error) {
	return f.dets, nil
}

func testController(t *testing.T, dets []detection.RawDetection) *Controller {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "dalan-go-test"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "api-test.db")
	settings.Detector.Timeout = 2 * time.Second
	settings.Detector.FallbackConfidence = 0.85
	settings.ImageStore.PlaceholderURL = "https://placehold.co/400x300/cccccc/666666/png?text=Upload+Failed"

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	svc := entries.New(
		store,
		imagestore.NewMemoryStore(),
		&fakeDetector{dets: dets},
		jobqueue.NewQueue(16, nil),
		settings,
		nil,
	)

	provider := auth.NewStaticProvider(map[string]*auth.User{
		"token-1": {ID: "user-1"},
		"token-2": {ID: "user-2"},
	})

	e := echo.New()
	controller := New(e, settings, svc, WithAuthProvider(provider))
	t.Cleanup(controller.Shutdown)
	return controller
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: 140, G: 140, B: 140, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func multipartEntry(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func createEntry(t *testing.T, controller *Controller, token string) EntryResponse {
	t.Helper()

	body, contentType := multipartEntry(t, map[string]string{
		"title":       "Crack on Main St",
		"description": "Across the left lane",
		"location":    "Main St 12",
		"coordinates": "[71.43, 51.09]",
		"severity":    "major",
	}, testJPEG(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateEntryEndpoint(t *testing.T) {
	controller := testController(t, []detection.RawDetection{
		{Label: "alligator", Confidence: 0.80, X1: 10, Y1: 10, X2: 60, Y2: 60},
		{Label: "alligator", Confidence: 0.90, X1: 80, Y1: 80, X2: 140, Y2: 140},
		{Label: "pothole", Confidence: 0.70, X1: 160, Y1: 30, X2: 220, Y2: 90},
	})

	resp := createEntry(t, controller, "token-1")

	assert.Equal(t, "Crack on Main St", resp.Title)
	assert.Equal(t, [2]float64{71.43, 51.09}, resp.Coordinates)
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, "alligator", resp.PrimaryType)
	require.NotNil(t, resp.DetectionInfo)
	assert.Equal(t, entries.StatusCompleted, resp.DetectionInfo.Status)
	assert.Equal(t, 3, resp.DetectionInfo.TotalCracks)
	// Confidence is reported as a percentage with one decimal.
	assert.InDelta(t, 85.0, resp.DetectionInfo.CrackTypes["alligator"].AvgConfidence, 1e-9)
	assert.InDelta(t, 70.0, resp.DetectionInfo.CrackTypes["pothole"].AvgConfidence, 1e-9)
}

func TestCreateEntryRequiresAuth(t *testing.T) {
	controller := testController(t, nil)

	body, contentType := multipartEntry(t, map[string]string{"title": "x"}, testJPEG(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEntryValidation(t *testing.T) {
	controller := testController(t, nil)

	testCases := []struct {
		name   string
		fields map[string]string
		image  []byte
	}{
		{
			"missing image",
			map[string]string{"title": "t", "severity": "minor", "coordinates": "[0, 0]"},
			nil,
		},
		{
			"bad severity",
			map[string]string{"title": "t", "severity": "huge", "coordinates": "[0, 0]"},
			[]byte("img"),
		},
		{
			"malformed coordinates",
			map[string]string{"title": "t", "severity": "minor", "coordinates": "51.09"},
			[]byte("img"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := multipartEntry(t, tc.fields, tc.image)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			req.Header.Set("Authorization", "Bearer token-1")
			rec := httptest.NewRecorder()
			controller.Echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Len(t, errResp.CorrelationID, 8)
		})
	}
}

func TestGetEntryEndpoint(t *testing.T) {
	controller := testController(t, []detection.RawDetection{})
	created := createEntry(t, controller, "token-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/"+created.ID, http.NoBody)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, detection.TypeNoCracks, resp.PrimaryType)
	require.NotNil(t, resp.DetectionInfo)
	assert.Equal(t, 0, resp.DetectionInfo.TotalCracks)
}

func TestGetEntryNotFound(t *testing.T) {
	controller := testController(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/missing", http.NoBody)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEntriesWithFilters(t *testing.T) {
	controller := testController(t, nil)
	createEntry(t, controller, "token-1")
	createEntry(t, controller, "token-2")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries?user_id=user-1", http.NoBody)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "user-1", list[0].UserID)
	require.NotNil(t, list[0].DetectionInfo)
	assert.Equal(t, entries.StatusCompleted, list[0].DetectionInfo.Status)
}

func TestUpdateEntryEndpoint(t *testing.T) {
	controller := testController(t, nil)
	created := createEntry(t, controller, "token-1")

	payload := `{"title": "Patched", "severity": "minor"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/entries/"+created.ID, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Patched", resp.Title)
	assert.Equal(t, "minor", resp.Severity)
}

func TestUpdateEntryWrongOwner(t *testing.T) {
	controller := testController(t, nil)
	created := createEntry(t, controller, "token-1")

	payload := `{"title": "Hijacked"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/entries/"+created.ID, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer token-2")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteEntryEndpoint(t *testing.T) {
	controller := testController(t, nil)
	created := createEntry(t, controller, "token-1")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/entries/"+created.ID, http.NoBody)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/entries/"+created.ID, http.NoBody)
	req.Header.Set("Authorization", "Bearer token-1")
	rec = httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	controller := testController(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
	rec := httptest.NewRecorder()
	controller.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestToPercent(t *testing.T) {
	assert.InDelta(t, 85.0, toPercent(0.85), 1e-9)
	assert.InDelta(t, 61.8, toPercent(0.6180339887), 1e-9)
	assert.InDelta(t, 0.0, toPercent(0), 1e-9)
	assert.InDelta(t, 100.0, toPercent(1), 1e-9)
	assert.InDelta(t, 66.7, toPercent(2.0/3.0), 1e-9)
}
