package models

import "time"

// User info keys expected by the package form
const (
	UserFirstName  = "FIRST_NAME"
	UserLastName   = "LAST_NAME"
	UserRoomNumber = "ROOM_NUMBER"
)

// Config holds the required runtime values read from the environment
type Config struct {
	ImapServer    string
	EmailAddress  string
	EmailPassword string
	SenderAddress string
	FormURL       string
	FirstName     string
	LastName      string
	RoomNumber    string
}

// UserInfo returns the identity fields keyed by form field name
func (c Config) UserInfo() map[string]string {
	return map[string]string{
		UserFirstName:  c.FirstName,
		UserLastName:   c.LastName,
		UserRoomNumber: c.RoomNumber,
	}
}

// Settings represents the optional YAML tuning file
type Settings struct {
	MailBox       string          `yaml:"mailbox"`
	ImapTimeout   time.Duration   `yaml:"imapTimeout"`
	ScreenshotDir string          `yaml:"screenshotDir"`
	Log           LogSettings     `yaml:"log"`
	Browser       BrowserSettings `yaml:"browser"`
}

// LogSettings configures the logrus logger
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BrowserSettings configures the headless browser used for submissions
type BrowserSettings struct {
	Engine         string        `yaml:"engine"`
	Headless       *bool         `yaml:"headless"`
	NoSandbox      *bool         `yaml:"noSandbox"`
	Bin            string        `yaml:"bin"`
	ActionTimeout  time.Duration `yaml:"actionTimeout"`
	PostSubmitWait WaitCondition `yaml:"postSubmitWait"`
	SettleDelay    time.Duration `yaml:"settleDelay"`
}

// IsHeadless reports whether the browser runs without a window (default true)
func (b BrowserSettings) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// IsNoSandbox reports whether the Chrome sandbox is disabled (default true)
func (b BrowserSettings) IsNoSandbox() bool {
	return b.NoSandbox == nil || *b.NoSandbox
}
