package emailprocessor

import (
	"parcel-form-autofill/internal/form"
	imapclient "parcel-form-autofill/internal/imap"
	"parcel-form-autofill/internal/logging"
	"parcel-form-autofill/internal/models"
)

// Options tune a single run
type Options struct {
	DryRun bool
}

// Summary counts what happened to the messages found by the search
type Summary struct {
	Found     int
	Submitted int
	Skipped   int
}

// Run performs one pass over the mailbox: connect, log in, select, search, process
// each message in search order, and always close the session at the end.
// Connection, login, select and search failures abort the run; per-message
// failures are logged and the message is skipped.
func Run(cfg *models.Config, settings *models.Settings, client imapclient.Client, submitter form.Submitter, opts Options) (*Summary, error) {
	summary := &Summary{}

	defer func() {
		if err := client.Close(); err != nil {
			logging.Log.WithError(err).Debug("Ignoring error while closing mailbox")
		}
	}()

	if err := client.Connect(cfg.ImapServer); err != nil {
		return summary, err
	}

	if err := client.Login(cfg.EmailAddress, cfg.EmailPassword); err != nil {
		return summary, err
	}

	if err := client.SelectMailbox(settings.MailBox); err != nil {
		return summary, err
	}

	uids, err := client.ListUnseenFrom(cfg.SenderAddress)
	if err != nil {
		return summary, err
	}
	summary.Found = len(uids)

	if len(uids) == 0 {
		logging.Log.Info("No unread package notifications found.")
		return summary, nil
	}
	logging.Log.Infof("Found %d unread package notification(s)", len(uids))

	processor := NewProcessor(client, submitter, cfg, opts.DryRun)
	for _, uid := range uids {
		if err := processor.ProcessEmail(uid); err != nil {
			logSkip(uid, err)
			summary.Skipped++
			continue
		}
		if !opts.DryRun {
			summary.Submitted++
		}
	}

	return summary, nil
}
