package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dalanapp/dalan-go/internal/auth"
	"github.com/dalanapp/dalan-go/internal/datastore"
	"github.com/dalanapp/dalan-go/internal/entries"
	"github.com/dalanapp/dalan-go/internal/errors"
)

// maxImageSize bounds uploaded photos to 10 MiB.
const maxImageSize = 10 << 20

// ListEntries handles GET /api/v1/entries.
func (c *Controller) ListEntries(ctx echo.Context) error {
	filter := datastore.EntryFilter{
		UserID:    ctx.QueryParam("user_id"),
		Severity:  ctx.QueryParam("severity"),
		CrackType: ctx.QueryParam("type"),
	}

	list, err := c.Service.List(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list entries")
	}

	responses := make([]EntryResponse, 0, len(list))
	for i := range list {
		resp := formatEntry(&list[i])
		resp.DetectionInfo = &DetectionInfo{Status: entryStatus(&list[i])}
		responses = append(responses, resp)
	}
	return ctx.JSON(http.StatusOK, responses)
}

// GetEntry handles GET /api/v1/entries/:id.
func (c *Controller) GetEntry(ctx echo.Context) error {
	view, err := c.Service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to get entry")
	}
	return ctx.JSON(http.StatusOK, formatView(view))
}

// CreateEntry handles POST /api/v1/entries. The request is multipart form
// data with the photo in the "image" field and coordinates as a JSON
// "[longitude, latitude]" pair.
func (c *Controller) CreateEntry(ctx echo.Context) error {
	in := entries.NewEntry{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		Location:    ctx.FormValue("location"),
		Severity:    ctx.FormValue("severity"),
	}

	if coords := ctx.FormValue("coordinates"); coords != "" {
		lon, lat, err := parseCoordinates(coords)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid coordinates", http.StatusBadRequest)
		}
		in.Longitude = lon
		in.Latitude = lat
	}

	imageData, err := readImageFile(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid image upload", http.StatusBadRequest)
	}

	view, err := c.Service.Create(ctx.Request().Context(), c.currentUserID(ctx), in, imageData)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to create entry")
	}

	c.apiLogger.Info("entry created",
		"entry_id", view.Entry.ID,
		"user_id", view.Entry.UserID,
		"status", view.Status)
	return ctx.JSON(http.StatusCreated, formatView(view))
}

// updateRequest is the JSON body of PUT /api/v1/entries/:id. Absent fields
// are left untouched.
type updateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
	Severity    *string  `json:"severity"`
}

// UpdateEntry handles PUT /api/v1/entries/:id.
func (c *Controller) UpdateEntry(ctx echo.Context) error {
	var req updateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	view, err := c.Service.Update(ctx.Request().Context(), ctx.Param("id"), c.currentUserID(ctx), entries.UpdateEntry{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Longitude:   req.Longitude,
		Latitude:    req.Latitude,
		Severity:    req.Severity,
	})
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to update entry")
	}
	return ctx.JSON(http.StatusOK, formatView(view))
}

// DeleteEntry handles DELETE /api/v1/entries/:id.
func (c *Controller) DeleteEntry(ctx echo.Context) error {
	if err := c.Service.Delete(ctx.Request().Context(), ctx.Param("id"), c.currentUserID(ctx)); err != nil {
		return c.handleServiceError(ctx, err, "Failed to delete entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// currentUserID returns the authenticated user's id. Without auth middleware
// the caller-provided user_id form or query value is trusted, which is only
// acceptable for local development.
func (c *Controller) currentUserID(ctx echo.Context) string {
	if user := auth.CurrentUser(ctx); user != nil {
		return user.ID
	}
	if id := ctx.FormValue("user_id"); id != "" {
		return id
	}
	return ctx.QueryParam("user_id")
}

// handleServiceError maps service errors onto HTTP status codes.
func (c *Controller) handleServiceError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return c.HandleError(ctx, err, "Entry not found", http.StatusNotFound)
	case errors.Is(err, errors.ErrForbidden):
		return c.HandleError(ctx, err, "Entry belongs to another user", http.StatusForbidden)
	case isValidationError(err):
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	var enhanced *errors.EnhancedError
	return errors.As(err, &enhanced) && enhanced.Category == errors.CategoryValidation
}

// parseCoordinates parses a JSON "[longitude, latitude]" pair.
func parseCoordinates(s string) (lon, lat float64, err error) {
	var pair []float64
	if err := json.Unmarshal([]byte(s), &pair); err != nil {
		return 0, 0, fmt.Errorf("coordinates must be a JSON [longitude, latitude] pair: %w", err)
	}
	if len(pair) != 2 {
		return 0, 0, fmt.Errorf("coordinates must contain exactly two values, got %d", len(pair))
	}
	return pair[0], pair[1], nil
}

func readImageFile(ctx echo.Context) ([]byte, error) {
	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("image file is required: %w", err)
	}
	if fileHeader.Size > maxImageSize {
		return nil, fmt.Errorf("image exceeds the %d byte limit", maxImageSize)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, maxImageSize))
}
