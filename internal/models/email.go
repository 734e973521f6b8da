package models

import "time"

// Email represents a normalized parsed email message
type Email struct {
	UID          uint32
	From         string
	Subject      string
	HTMLBody     string
	InternalDate time.Time
	TraceID      string
}

// PackageInfo holds what is extracted from a delivery notification
type PackageInfo struct {
	TrackingID string
}
