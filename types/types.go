// Package types defines the data structures used in the URL registry service.
package types

import "time"

// ClickEvent is a single successful resolution of a short code.
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"sourceOrigin"`
	Location  string    `json:"coarseLocation"`
}

// ClickMeta carries the caller-supplied context recorded with a click.
type ClickMeta struct {
	Source   string
	Location string
}

// ShortLink is the record owned by the registry for one short code.
type ShortLink struct {
	ID           string       `json:"id"`
	OriginalURL  string       `json:"originalUrl"`
	ShortCode    string       `json:"shortCode"`
	IsCustomCode bool         `json:"isCustomCode"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	ClickCount   int64        `json:"clickCount"`
	Clicks       []ClickEvent `json:"clickLog"`
}

// IsExpired reports whether the link is past its expiry at the given instant.
func (l ShortLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Clone returns a copy that shares no mutable state with l.
func (l ShortLink) Clone() ShortLink {
	clone := l
	clone.Clicks = make([]ClickEvent, len(l.Clicks))
	copy(clone.Clicks, l.Clicks)
	return clone
}

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	OriginalURL     string `json:"originalUrl" validate:"required"`
	CustomCode      string `json:"customCode,omitempty"`
	ValidityMinutes *int   `json:"validityMinutes,omitempty"`
}

// BatchShortenRequest creates several short links in one call.
type BatchShortenRequest struct {
	URLs []ShortenRequest `json:"urls" validate:"required,min=1,dive"`
}

// LinkResponse is the public view of a ShortLink.
type LinkResponse struct {
	ID           string    `json:"id"`
	ShortCode    string    `json:"shortCode"`
	ShortURL     string    `json:"shortUrl"`
	OriginalURL  string    `json:"originalUrl"`
	IsCustomCode bool      `json:"isCustomCode"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Expired      bool      `json:"expired"`
	ClickCount   int64     `json:"clickCount"`
}

// LinkStatsResponse is a LinkResponse with the full click log.
type LinkStatsResponse struct {
	LinkResponse
	Clicks []ClickEvent `json:"clickLog"`
}

// BatchResult is the outcome of one item of a batch request.
type BatchResult struct {
	OriginalURL string        `json:"originalUrl"`
	Link        *LinkResponse `json:"link,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// BatchShortenResponse is the response body of a batch request.
type BatchShortenResponse struct {
	Created int           `json:"created"`
	Failed  int           `json:"failed"`
	Results []BatchResult `json:"results"`
}

// StatsResponse summarises every link held by the registry.
type StatsResponse struct {
	TotalLinks   int            `json:"totalLinks"`
	ActiveLinks  int            `json:"activeLinks"`
	ExpiredLinks int            `json:"expiredLinks"`
	TotalClicks  int64          `json:"totalClicks"`
	Links        []LinkResponse `json:"links"`
}

// PurgeResponse reports how many records a purge removed.
type PurgeResponse struct {
	Removed int `json:"removed"`
}
