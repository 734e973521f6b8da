package form

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"parcel-form-autofill/internal/logging"
	"parcel-form-autofill/internal/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/sirupsen/logrus"
)

// Temp browser profiles are created with this prefix
const profilePattern = "parcel-form-*"

// Quiet period after which the network counts as idle
const networkIdleQuiet = 500 * time.Millisecond

// Resolves once the DOMContentLoaded event has fired
const domContentLoadedJS = `new Promise(r => document.readyState !== 'loading' ? r(true) : document.addEventListener('DOMContentLoaded', () => r(true), { once: true }))`

var activeSessions atomic.Int32

type RodSubmitter struct {
	settings      models.BrowserSettings
	screenshotDir string
}

// NewRodSubmitter creates a Submitter backed by go-rod
func NewRodSubmitter(settings models.BrowserSettings, screenshotDir string) *RodSubmitter {
	return &RodSubmitter{
		settings:      settings,
		screenshotDir: screenshotDir,
	}
}

// Submit launches a fresh browser with a throwaway profile, fills the form and screenshots the result.
func (rs *RodSubmitter) Submit(formURL string, pkg models.PackageInfo, user map[string]string, traceID string) (string, error) {
	activeSessions.Add(1)
	defer activeSessions.Add(-1)

	locallog := logging.Log.WithFields(logrus.Fields{"trace_id": traceID, "tracking_id": pkg.TrackingID})

	tmpDir, err := os.MkdirTemp("", profilePattern)
	if err != nil {
		return "", submissionError("create browser profile", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			locallog.WithError(err).Warn("failed to remove temp user data dir")
		}
	}()

	l := launcher.New().
		Headless(rs.settings.IsHeadless()).
		NoSandbox(rs.settings.IsNoSandbox()).
		UserDataDir(tmpDir)
	if rs.settings.Bin != "" {
		l = l.Bin(rs.settings.Bin)
	}
	defer l.Kill()

	u, err := l.Launch()
	if err != nil {
		return "", submissionError("launch browser", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return "", submissionError("connect browser", err)
	}
	defer func() { _ = browser.Close() }()

	path := ScreenshotPath(rs.screenshotDir, pkg.TrackingID)
	step := "open page"
	err = rod.Try(func() {
		page := browser.MustPage()
		defer func() { _ = page.Close() }()

		locallog.Infof("Opening form %s", formURL)
		nav := page.Timeout(rs.settings.ActionTimeout)
		wait := nav.WaitRequestIdle(networkIdleQuiet, nil, nil, nil)
		nav.MustNavigate(formURL)
		wait()
		mustNotExpire(nav)

		for _, f := range fieldValues(pkg, user) {
			step = "fill " + f.name
			page.Timeout(rs.settings.ActionTimeout).
				MustElementX(f.xpath).
				MustSelectAllText().
				MustInput(f.value)
		}

		step = "click submit"
		button := page.Timeout(rs.settings.ActionTimeout).MustElementX(ButtonXPath(SubmitButtonName))
		submitted := page.Timeout(rs.settings.ActionTimeout)
		waitSubmitted := rs.waitAfterSubmit(submitted)
		button.MustClick()
		waitSubmitted()
		mustNotExpire(submitted)
		time.Sleep(rs.settings.SettleDelay)

		step = "screenshot"
		page.MustScreenshot(path)
	})
	if err != nil {
		var tryErr *rod.TryError
		if errors.As(err, &tryErr) {
			err = tryErr.Unwrap()
		}
		return "", submissionError(step, err)
	}

	locallog.Infof("Screenshot saved to %s", path)
	return path, nil
}

// waitAfterSubmit must be called before the click so request tracking starts early enough
func (rs *RodSubmitter) waitAfterSubmit(page *rod.Page) func() {
	if rs.settings.PostSubmitWait == models.WaitDOMContentLoaded {
		return func() {
			page.MustEval("() => " + domContentLoadedJS)
		}
	}
	return page.WaitRequestIdle(networkIdleQuiet, nil, nil, nil)
}

// mustNotExpire panics when a wait on page gave up because its timeout elapsed
func mustNotExpire(page *rod.Page) {
	if err := page.GetContext().Err(); err != nil {
		panic(err)
	}
}

// CleanupStale removes browser profiles left behind by runs that were killed mid-submission
func CleanupStale() {
	if activeSessions.Load() > 0 {
		logging.Log.Info("Skipping temp profile cleanup: active browser sessions detected")
		return
	}

	pattern := filepath.Join(os.TempDir(), profilePattern)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logging.Log.WithError(err).Warn("Failed to glob temp directories")
		return
	}

	for _, dir := range matches {
		if err := os.RemoveAll(dir); err != nil {
			logging.Log.WithError(err).Warnf("Failed to remove temp dir: %s", dir)
		} else {
			logging.Log.Infof("Cleaned up temp dir: %s", dir)
		}
	}
}

// GetActiveSessionCount returns the current number of active browser sessions (for testing)
func GetActiveSessionCount() int32 {
	return activeSessions.Load()
}
