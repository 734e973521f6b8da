package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"parcel-form-autofill/internal/models"

	"gopkg.in/yaml.v2"
)

// Defaults applied to any setting left empty
const (
	DefaultMailBox = "INBOX"
)

// DefaultSettings returns the settings used when no file is present
func DefaultSettings() *models.Settings {
	s := &models.Settings{}
	applyDefaults(s)
	return s
}

// LoadSettings reads the YAML settings file at filepath. A missing file yields the defaults.
func LoadSettings(filepath string) (*models.Settings, error) {
	configFile, err := os.ReadFile(filepath)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}

	var settings models.Settings
	if err := yaml.Unmarshal(configFile, &settings); err != nil {
		return nil, err
	}

	applyDefaults(&settings)
	if err := validate(&settings); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", filepath, err)
	}

	return &settings, nil
}

func applyDefaults(s *models.Settings) {
	if s.MailBox == "" {
		s.MailBox = DefaultMailBox
	}
	if s.ImapTimeout == 0 {
		s.ImapTimeout = 30 * time.Second
	}
	if s.ScreenshotDir == "" {
		s.ScreenshotDir = "."
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "json"
	}
	if s.Browser.Engine == "" {
		s.Browser.Engine = models.EngineRod
	}
	if s.Browser.ActionTimeout == 0 {
		s.Browser.ActionTimeout = 30 * time.Second
	}
	if s.Browser.PostSubmitWait == "" {
		s.Browser.PostSubmitWait = models.WaitNetworkIdle
	}
	if s.Browser.SettleDelay == 0 {
		s.Browser.SettleDelay = time.Second
	}
}

func validate(s *models.Settings) error {
	switch s.Browser.Engine {
	case models.EngineRod, models.EngineChromedp:
	default:
		return fmt.Errorf("unknown browser engine %q", s.Browser.Engine)
	}
	if _, err := models.ParseWaitCondition(string(s.Browser.PostSubmitWait)); err != nil {
		return err
	}
	if s.ImapTimeout < 0 || s.Browser.ActionTimeout < 0 || s.Browser.SettleDelay < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch s.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", s.Log.Format)
	}
	return nil
}
