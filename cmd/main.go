package main

import (
	"os"

	"parcel-form-autofill/internal/config"
	"parcel-form-autofill/internal/emailprocessor"
	"parcel-form-autofill/internal/form"
	imapclient "parcel-form-autofill/internal/imap"
	"parcel-form-autofill/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	configFile string
	envFile    string
	logLevel   string
	dryRun     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "parcel-form-autofill",
		Short:         "Submit the package pickup form for every unread parcel notification",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	cmd.Flags().StringVar(&f.configFile, "config", "config.yaml", "path to the optional YAML settings file")
	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "path to the optional .env file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the settings file")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "parse notifications without submitting the form or marking messages read")

	return cmd
}

// run performs a single pass; any returned error is fatal
func run(f *flags) error {
	settings, err := config.LoadSettings(f.configFile)
	if err != nil {
		return err
	}

	level := settings.Log.Level
	if f.logLevel != "" {
		level = f.logLevel
	}
	if err := logging.Configure(level, settings.Log.Format); err != nil {
		return err
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		return err
	}

	logging.Log.WithFields(logrus.Fields{
		"sender":  cfg.SenderAddress,
		"mailbox": settings.MailBox,
		"engine":  settings.Browser.Engine,
		"dry_run": f.dryRun,
	}).Info("Checking for package notifications")

	form.CleanupStale()
	submitter, err := form.New(settings)
	if err != nil {
		return err
	}

	client := imapclient.NewStandardClient(imapclient.WithTimeout(settings.ImapTimeout))
	summary, err := emailprocessor.Run(cfg, settings, client, submitter, emailprocessor.Options{DryRun: f.dryRun})
	if err != nil {
		return err
	}

	logging.Log.WithFields(logrus.Fields{
		"found":     summary.Found,
		"submitted": summary.Submitted,
		"skipped":   summary.Skipped,
	}).Info("Run complete")
	return nil
}
