package emailprocessor

import (
	"errors"
	"fmt"

	"parcel-form-autofill/internal/form"
	imapclient "parcel-form-autofill/internal/imap"
	"parcel-form-autofill/internal/logging"
	"parcel-form-autofill/internal/mailparse"
	"parcel-form-autofill/internal/models"
	"parcel-form-autofill/internal/tracking"

	"github.com/sirupsen/logrus"
)

var (
	ErrParse            = errors.New("failed to parse message")
	ErrNoHTML           = errors.New("message has no HTML body")
	ErrNoTrackingNumber = errors.New("no tracking number in message")
)

type Processor struct {
	imapClient imapclient.Client
	submitter  form.Submitter
	config     *models.Config
	dryRun     bool
}

// NewProcessor creates a new Processor instance with the provided IMAP client and form submitter
func NewProcessor(imapClient imapclient.Client, submitter form.Submitter, cfg *models.Config, dryRun bool) *Processor {
	return &Processor{
		imapClient: imapClient,
		submitter:  submitter,
		config:     cfg,
		dryRun:     dryRun,
	}
}

// ProcessEmail runs the complete workflow for one message:
// fetch → parse → tracking number → submit form → mark as seen.
// The message is left unread whenever an error is returned.
func (p *Processor) ProcessEmail(uid uint32) error {
	// Fetch message from IMAP without touching \Seen
	msg, err := p.imapClient.FetchMessage(uid)
	if err != nil {
		return err
	}

	email, err := mailparse.Parse(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	locallog := logging.ForMessage(email.TraceID, uid)
	locallog.Infof("Processing message from %s: %q", email.From, email.Subject)

	if email.HTMLBody == "" {
		return ErrNoHTML
	}

	pkg, ok := tracking.Parse(email.HTMLBody)
	if !ok {
		return ErrNoTrackingNumber
	}
	locallog = locallog.WithField("tracking_id", pkg.TrackingID)

	if p.dryRun {
		locallog.Info("Dry run: form not submitted, message left unread")
		return nil
	}

	path, err := p.submitter.Submit(p.config.FormURL, *pkg, p.config.UserInfo(), email.TraceID)
	if err != nil {
		return err
	}
	locallog.WithField("screenshot", path).Info("Form submitted")

	// Mark as seen only once the submission went through
	if err := p.imapClient.MarkSeen(uid); err != nil {
		return err
	}

	return nil
}

// logSkip records why a message was left unread
func logSkip(uid uint32, err error) {
	entry := logging.Log.WithFields(logrus.Fields{"uid": uid})
	switch {
	case errors.Is(err, ErrNoHTML), errors.Is(err, ErrNoTrackingNumber):
		entry.Infof("Skipping message: %v", err)
	default:
		entry.WithError(err).Error("Skipping message")
	}
}
