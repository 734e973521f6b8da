package form

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parcel-form-autofill/internal/models"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotName(t *testing.T) {
	tests := []struct {
		trackingID string
		expected   string
	}{
		{"XYZ789", "submission_XYZ789.png"},
		{"1Z999AA10123456784", "submission_1Z999AA10123456784.png"},
		{"AB-12.3_x", "submission_AB-12.3_x.png"},
		{"../../etc/passwd", "submission_.._.._etc_passwd.png"},
		{`a\b c`, "submission_a_b_c.png"},
		{"", "submission_.png"},
	}

	for _, tt := range tests {
		t.Run(tt.trackingID, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScreenshotName(tt.trackingID))
			assert.Equal(t, ScreenshotName(tt.trackingID), ScreenshotName(tt.trackingID))
		})
	}
}

func TestScreenshotPath(t *testing.T) {
	assert.Equal(t, filepath.Join("shots", "submission_XYZ789.png"), ScreenshotPath("shots", "XYZ789"))
	assert.Equal(t, "submission_XYZ789.png", ScreenshotPath(".", "XYZ789"))
	assert.Equal(t, filepath.Join("shots", "submission_a_b.png"), ScreenshotPath("shots", "a/b"))
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Submit", "'Submit'"},
		{"it's", `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat('it', "'", 's "x"')`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, xpathLiteral(tt.in))
		})
	}
}

func TestPlaceholderXPath(t *testing.T) {
	assert.Equal(t,
		"//*[self::input or self::textarea or self::select][@placeholder='First']",
		PlaceholderXPath(FirstNamePlaceholder))
}

func TestLabelXPath(t *testing.T) {
	xp := LabelXPath(RoomNumberLabel)

	branches := strings.Split(xp, " | ")
	require.Len(t, branches, 4)
	assert.Contains(t, branches[0], "//label[")
	assert.Contains(t, branches[0], "/@for]")
	assert.True(t, strings.HasPrefix(branches[1], "//label["))
	assert.Contains(t, branches[2], "@aria-label")
	assert.Contains(t, branches[3], "@aria-labelledby")

	// Matching is on the lowercased label text
	assert.Contains(t, xp, "'room number'")
	assert.NotContains(t, xp, "'Room Number'")
}

func TestButtonXPath(t *testing.T) {
	xp := ButtonXPath(SubmitButtonName)

	assert.Contains(t, xp, "//button[")
	assert.Contains(t, xp, "//*[@role='button']")
	assert.Contains(t, xp, "@type='submit' or @type='button'")
	assert.Contains(t, xp, "'submit'")
}

func TestFieldValues(t *testing.T) {
	user := map[string]string{
		models.UserFirstName:  "Ada",
		models.UserLastName:   "Lovelace",
		models.UserRoomNumber: "B12",
	}

	fields := fieldValues(models.PackageInfo{TrackingID: "XYZ789"}, user)

	require.Len(t, fields, 4)
	var values []string
	for _, f := range fields {
		values = append(values, f.value)
	}
	assert.Equal(t, []string{"Ada", "Lovelace", "B12", "XYZ789"}, values)
	assert.Equal(t, PlaceholderXPath("First"), fields[0].xpath)
	assert.Equal(t, LabelXPath("Tracking No"), fields[3].xpath)
}

func TestSubmissionError(t *testing.T) {
	cause := errors.New("element not found")
	err := submissionError("fill room number", cause)

	assert.ErrorIs(t, err, ErrSubmission)
	assert.Contains(t, err.Error(), "fill room number")
	assert.Contains(t, err.Error(), "element not found")
}

func TestNew(t *testing.T) {
	tests := []struct {
		engine   string
		expected interface{}
	}{
		{"", &RodSubmitter{}},
		{models.EngineRod, &RodSubmitter{}},
		{models.EngineChromedp, &ChromedpSubmitter{}},
	}

	for _, tt := range tests {
		t.Run("engine="+tt.engine, func(t *testing.T) {
			s, err := New(&models.Settings{Browser: models.BrowserSettings{Engine: tt.engine}})
			require.NoError(t, err)
			assert.IsType(t, tt.expected, s)
		})
	}

	_, err := New(&models.Settings{Browser: models.BrowserSettings{Engine: "firefox"}})
	assert.Error(t, err)
}

func TestRequestTracker(t *testing.T) {
	tr := newRequestTracker()
	start := tr.lastChange

	assert.False(t, tr.idleFor(time.Second, start), "quiet period not elapsed yet")
	assert.True(t, tr.idleFor(time.Second, start.Add(time.Second)))

	tr.handle(&network.EventRequestWillBeSent{RequestID: "1", Type: network.ResourceTypeDocument})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "2", Type: network.ResourceTypeXHR})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "3", Type: network.ResourceTypeWebSocket})
	assert.Len(t, tr.inflight, 2)
	assert.False(t, tr.idleFor(0, time.Now().Add(time.Hour)))

	tr.handle(&network.EventLoadingFinished{RequestID: "1"})
	tr.handle(&network.EventLoadingFailed{RequestID: "2"})
	assert.Empty(t, tr.inflight)

	last := tr.lastChange
	assert.False(t, tr.idleFor(500*time.Millisecond, last.Add(100*time.Millisecond)))
	assert.True(t, tr.idleFor(500*time.Millisecond, last.Add(500*time.Millisecond)))

	// Unrelated events leave the clock alone
	tr.handle(&network.EventResponseReceived{RequestID: "4"})
	assert.Equal(t, last, tr.lastChange)
}

func TestCleanupStale(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	stale := filepath.Join(tmp, "parcel-form-123")
	other := filepath.Join(tmp, "unrelated")
	require.NoError(t, os.Mkdir(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "Cookies"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(other, 0o755))

	// Kept while a browser session is running
	activeSessions.Add(1)
	assert.Equal(t, int32(1), GetActiveSessionCount())
	CleanupStale()
	assert.DirExists(t, stale)
	activeSessions.Add(-1)

	assert.Equal(t, int32(0), GetActiveSessionCount())
	CleanupStale()
	assert.NoDirExists(t, stale)
	assert.DirExists(t, other)
}
