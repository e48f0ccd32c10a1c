package models

import "time"

// BatchEvent is published after a batch completes.
type BatchEvent struct {
	ID             string    `json:"id"`
	CallerIdentity string    `json:"caller_identity"`
	Privileged     bool      `json:"privileged"`
	ImageCount     int       `json:"image_count"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	ArchiveURL     string    `json:"archive_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

const (
	StatusHealthy       = "healthy"
	StatusNotConfigured = "not configured"
)
