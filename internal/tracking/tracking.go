// Package tracking finds the tracking number in a delivery notification body.
package tracking

import (
	"strings"

	"parcel-form-autofill/internal/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Marker is the label text, compared case-insensitively, that precedes the tracking number
const Marker = "TRACKING NO:"

// Parse returns the tracking number that follows the first bold label containing Marker.
// The boolean is false when there is no such label or nothing but whitespace follows it.
func Parse(body string) (*models.PackageInfo, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, false
	}

	label := doc.Find("strong, b").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToUpper(s.Text()), Marker)
	}).First()
	if label.Length() == 0 {
		return nil, false
	}

	trackingID := strings.TrimSpace(nodeText(label.Get(0).NextSibling))
	if trackingID == "" {
		return nil, false
	}

	return &models.PackageInfo{TrackingID: trackingID}, true
}

func nodeText(n *html.Node) string {
	switch {
	case n == nil:
		return ""
	case n.Type == html.TextNode:
		return n.Data
	default:
		return goquery.NewDocumentFromNode(n).Text()
	}
}
