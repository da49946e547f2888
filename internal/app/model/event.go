package model

import "time"

// BookmarkCreatedEvent is published after a bookmark row has been inserted.
type BookmarkCreatedEvent struct {
	ID         string    `json:"id"`
	BookmarkID string    `json:"bookmark_id"`
	UserID     string    `json:"user_id"`
	ThumbURLs  []string  `json:"thumb_urls"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	BookmarkStreamName     = "BOOKMARKS"
	BookmarkCreatedSubject = "bookmarks.created"
	ThumbWarmerConsumer    = "thumb-warmer"
	BookmarkStreamMaxBytes = 1024 * 1024 * 50 // 50MB
)
