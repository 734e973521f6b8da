package models

import "fmt"

// WaitCondition is the page state awaited after the form is submitted
type WaitCondition string

const (
	WaitNetworkIdle      WaitCondition = "networkidle"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
)

// Browser engines
const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// ParseWaitCondition validates a wait condition name
func ParseWaitCondition(s string) (WaitCondition, error) {
	switch WaitCondition(s) {
	case WaitNetworkIdle, WaitDOMContentLoaded:
		return WaitCondition(s), nil
	}
	return "", fmt.Errorf("unknown wait condition %q (want %q or %q)", s, WaitNetworkIdle, WaitDOMContentLoaded)
}
