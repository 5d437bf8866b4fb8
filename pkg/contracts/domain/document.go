package domain

import "time"

// RateDocument is a fetched source PDF before extraction: the raw bytes
// plus where and when they came from. ContentHash is the hex SHA-256 of
// Raw, computed at download time so callers can deduplicate without
// rereading the body.
type RateDocument struct {
	Period      Period
	SourceURL   string
	ItemURL     string
	Raw         []byte
	ContentHash string
	FetchedAt   time.Time
}

// Size reports the raw document size in bytes.
func (d *RateDocument) Size() int {
	return len(d.Raw)
}
