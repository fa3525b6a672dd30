package entries

import (
	"slices"
	"strings"

	"github.com/dalanapp/dalan-go/internal/errors"
)

func validateNewEntry(in *NewEntry) error {
	if strings.TrimSpace(in.Title) == "" {
		return validationError("title is required", "title", in.Title)
	}
	if !slices.Contains(ValidSeverities, in.Severity) {
		return validationError("severity must be one of: "+strings.Join(ValidSeverities, ", "), "severity", in.Severity)
	}
	if err := validateCoordinates(in.Longitude, in.Latitude); err != nil {
		return err
	}
	return nil
}

func validateUpdate(in *UpdateEntry) error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return validationError("title cannot be empty", "title", *in.Title)
	}
	if in.Severity != nil && !slices.Contains(ValidSeverities, *in.Severity) {
		return validationError("severity must be one of: "+strings.Join(ValidSeverities, ", "), "severity", *in.Severity)
	}
	if in.Longitude != nil {
		if err := validateCoordinates(*in.Longitude, 0); err != nil {
			return err
		}
	}
	if in.Latitude != nil {
		if err := validateCoordinates(0, *in.Latitude); err != nil {
			return err
		}
	}
	return nil
}

func validateCoordinates(lon, lat float64) error {
	if lon < -180 || lon > 180 {
		return validationError("longitude must be within [-180, 180]", "longitude", lon)
	}
	if lat < -90 || lat > 90 {
		return validationError("latitude must be within [-90, 90]", "latitude", lat)
	}
	return nil
}

func validationError(msg, field string, value any) error {
	return errors.Newf("%s", msg).
		Component("entries").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", value).
		Build()
}
