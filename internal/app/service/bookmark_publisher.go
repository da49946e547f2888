package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerMark/internal/app/model"
)

// BookmarkPublisher publishes bookmark events to NATS JetStream.
type BookmarkPublisher struct {
	js nats.JetStreamContext
}

// NewBookmarkPublisher creates a new bookmark event publisher.
func NewBookmarkPublisher(js nats.JetStreamContext) *BookmarkPublisher {
	return &BookmarkPublisher{js: js}
}

// EnsureBookmarkStream creates the bookmark stream when it does not exist yet.
func EnsureBookmarkStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(model.BookmarkStreamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     model.BookmarkStreamName,
		Subjects: []string{model.BookmarkCreatedSubject},
		MaxBytes: model.BookmarkStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishCreated announces b together with the thumbnails derived for it.
func (p *BookmarkPublisher) PublishCreated(ctx context.Context, b *model.Bookmark) error {
	event := model.BookmarkCreatedEvent{
		ID:         uuid.New().String(),
		BookmarkID: b.ID,
		UserID:     b.UserID,
		ThumbURLs:  thumbURLs(b),
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.BookmarkCreatedSubject, data, nats.Context(ctx))
	return err
}

func thumbURLs(b *model.Bookmark) []string {
	var urls []string
	for _, u := range []*string{b.OGImageURLThumb, b.FaviconURLThumb} {
		if u != nil && *u != "" {
			urls = append(urls, *u)
		}
	}
	return urls
}
