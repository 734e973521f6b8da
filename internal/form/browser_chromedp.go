package form

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"parcel-form-autofill/internal/logging"
	"parcel-form-autofill/internal/models"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromedpSubmitter performs the same submission as RodSubmitter through chromedp
type ChromedpSubmitter struct {
	settings      models.BrowserSettings
	screenshotDir string
}

// NewChromedpSubmitter creates a Submitter backed by chromedp
func NewChromedpSubmitter(settings models.BrowserSettings, screenshotDir string) *ChromedpSubmitter {
	return &ChromedpSubmitter{
		settings:      settings,
		screenshotDir: screenshotDir,
	}
}

// Submit launches Chrome with a throwaway profile, fills the form and screenshots the result.
func (cs *ChromedpSubmitter) Submit(formURL string, pkg models.PackageInfo, user map[string]string, traceID string) (string, error) {
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

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), cs.allocatorOptions(tmpDir)...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	tracker := newRequestTracker()
	chromedp.ListenTarget(ctx, tracker.handle)

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return "", submissionError("launch browser", err)
	}

	locallog.Infof("Opening form %s", formURL)
	if err := chromedp.Run(ctx,
		cs.timed(chromedp.Navigate(formURL)),
		cs.timed(tracker.waitIdle(networkIdleQuiet)),
	); err != nil {
		return "", submissionError("open page", err)
	}

	for _, f := range fieldValues(pkg, user) {
		if err := chromedp.Run(ctx, cs.timed(chromedp.Tasks{
			chromedp.WaitVisible(f.xpath, chromedp.BySearch),
			chromedp.Clear(f.xpath, chromedp.BySearch),
			chromedp.SendKeys(f.xpath, f.value, chromedp.BySearch),
		})); err != nil {
			return "", submissionError("fill "+f.name, err)
		}
	}

	tracker.reset()
	if err := chromedp.Run(ctx,
		cs.timed(chromedp.Click(ButtonXPath(SubmitButtonName), chromedp.BySearch, chromedp.NodeVisible)),
		cs.timed(cs.waitAfterSubmit(tracker)),
		chromedp.Sleep(cs.settings.SettleDelay),
	); err != nil {
		return "", submissionError("click submit", err)
	}

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", submissionError("screenshot", err)
	}

	path := ScreenshotPath(cs.screenshotDir, pkg.TrackingID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", submissionError("screenshot", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", submissionError("screenshot", err)
	}

	locallog.Infof("Screenshot saved to %s", path)
	return path, nil
}

func (cs *ChromedpSubmitter) allocatorOptions(userDataDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserDataDir(userDataDir))
	if !cs.settings.IsHeadless() {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cs.settings.IsNoSandbox() {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cs.settings.Bin != "" {
		opts = append(opts, chromedp.ExecPath(cs.settings.Bin))
	}
	return opts
}

func (cs *ChromedpSubmitter) waitAfterSubmit(tracker *requestTracker) chromedp.Action {
	if cs.settings.PostSubmitWait == models.WaitDOMContentLoaded {
		var ready bool
		return chromedp.Evaluate(domContentLoadedJS, &ready, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		})
	}
	return tracker.waitIdle(networkIdleQuiet)
}

// timed bounds a single action by the configured action timeout
func (cs *ChromedpSubmitter) timed(action chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if cs.settings.ActionTimeout <= 0 {
			return action.Do(ctx)
		}
		tctx, cancel := context.WithTimeout(ctx, cs.settings.ActionTimeout)
		defer cancel()
		return action.Do(tctx)
	})
}

// requestTracker counts in-flight requests from network events
type requestTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
}

func newRequestTracker() *requestTracker {
	return &requestTracker{
		inflight:   make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
	}
}

// Long-lived or non-blocking resource types never count as pending
var ignoredResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeWebSocket:   true,
	network.ResourceTypeEventSource: true,
	network.ResourceTypeMedia:       true,
	network.ResourceTypeImage:       true,
	network.ResourceTypeFont:        true,
}

func (t *requestTracker) handle(ev interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if ignoredResourceTypes[e.Type] {
			return
		}
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.lastChange = time.Now()
}

func (t *requestTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastChange = time.Now()
}

func (t *requestTracker) idleFor(quiet time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && now.Sub(t.lastChange) >= quiet
}

// waitIdle resolves once no request has been pending for quiet
func (t *requestTracker) waitIdle(quiet time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			if t.idleFor(quiet, time.Now()) {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}
