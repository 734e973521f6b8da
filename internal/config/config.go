package config

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"parcel-form-autofill/internal/models"

	"github.com/joho/godotenv"
)

// Environment variable names, all required
const (
	EnvImapServer    = "IMAP_SERVER"
	EnvEmailAddress  = "EMAIL_ADDRESS"
	EnvEmailPassword = "EMAIL_APP_PASSWORD"
	EnvSenderAddress = "SENDER_ADDRESS"
	EnvFormURL       = "FORM_URL"
	EnvFirstName     = "FIRST_NAME"
	EnvLastName      = "LAST_NAME"
	EnvRoomNumber    = "ROOM_NUMBER"
)

// MissingError lists every required variable that was absent or empty
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration values: " + strings.Join(e.Keys, ", ")
}

// LookupFunc has the signature of os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Load reads the optional dotenv file, then builds the Config from the process environment.
// Variables already set in the environment take precedence over the file.
func Load(envFile string) (*models.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return LoadFromLookup(os.LookupEnv)
}

// LoadFromLookup builds the Config from lookup and reports all missing keys at once
func LoadFromLookup(lookup LookupFunc) (*models.Config, error) {
	var cfg models.Config
	fields := map[string]*string{
		EnvImapServer:    &cfg.ImapServer,
		EnvEmailAddress:  &cfg.EmailAddress,
		EnvEmailPassword: &cfg.EmailPassword,
		EnvSenderAddress: &cfg.SenderAddress,
		EnvFormURL:       &cfg.FormURL,
		EnvFirstName:     &cfg.FirstName,
		EnvLastName:      &cfg.LastName,
		EnvRoomNumber:    &cfg.RoomNumber,
	}

	var missing []string
	for key, dst := range fields {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, key)
			continue
		}
		*dst = value
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingError{Keys: missing}
	}

	return &cfg, nil
}
