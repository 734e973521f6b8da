// Package form fills and submits the package pickup form in a headless browser.
package form

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"parcel-form-autofill/internal/models"
)

// ErrSubmission wraps any navigation, lookup, fill, click or screenshot failure
var ErrSubmission = errors.New("form submission failed")

// Field locators on the form page
const (
	FirstNamePlaceholder = "First"
	LastNamePlaceholder  = "Last"
	RoomNumberLabel      = "Room Number"
	TrackingNoLabel      = "Tracking No"
	SubmitButtonName     = "Submit"
)

// Submitter drives one form submission per call and returns the screenshot path
type Submitter interface {
	Submit(formURL string, pkg models.PackageInfo, user map[string]string, traceID string) (string, error)
}

// New returns the Submitter for the configured browser engine
func New(settings *models.Settings) (Submitter, error) {
	switch settings.Browser.Engine {
	case models.EngineRod, "":
		return NewRodSubmitter(settings.Browser, settings.ScreenshotDir), nil
	case models.EngineChromedp:
		return NewChromedpSubmitter(settings.Browser, settings.ScreenshotDir), nil
	}
	return nil, fmt.Errorf("unknown browser engine %q", settings.Browser.Engine)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ScreenshotName returns the file name used for the screenshot of trackingID
func ScreenshotName(trackingID string) string {
	return "submission_" + unsafeFileChars.ReplaceAllString(trackingID, "_") + ".png"
}

// ScreenshotPath joins dir and ScreenshotName
func ScreenshotPath(dir, trackingID string) string {
	return filepath.Join(dir, ScreenshotName(trackingID))
}

// fieldValues pairs each locator with the value typed into it, in fill order
func fieldValues(pkg models.PackageInfo, user map[string]string) []field {
	return []field{
		{name: "first name", xpath: PlaceholderXPath(FirstNamePlaceholder), value: user[models.UserFirstName]},
		{name: "last name", xpath: PlaceholderXPath(LastNamePlaceholder), value: user[models.UserLastName]},
		{name: "room number", xpath: LabelXPath(RoomNumberLabel), value: user[models.UserRoomNumber]},
		{name: "tracking number", xpath: LabelXPath(TrackingNoLabel), value: pkg.TrackingID},
	}
}

type field struct {
	name  string
	xpath string
	value string
}

func submissionError(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSubmission, step, err)
}
