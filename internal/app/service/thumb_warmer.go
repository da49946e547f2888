package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerMark/internal/app/model"
	infralogger "github.com/sifan077/PowerMark/internal/infra/logger"
	"go.uber.org/zap"
)

const warmMaxDeliver = 5

// ThumbWarmer consumes bookmark events and requests each derived thumbnail
// once, so the image proxy has it cached before the first listing renders.
type ThumbWarmer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	client   *retryablehttp.Client
	baseURL  string
	stopChan chan struct{}
}

// NewThumbWarmer creates a warmer hitting the proxy under baseURL.
func NewThumbWarmer(js nats.JetStreamContext, logger *zap.Logger, baseURL string) *ThumbWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = infralogger.NewLeveled(logger.Named("warm"))
	client.HTTPClient.Timeout = 20 * time.Second

	return &ThumbWarmer{
		js:       js,
		logger:   logger,
		client:   client,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		stopChan: make(chan struct{}),
	}
}

// Start creates the durable consumer if needed and begins consuming.
func (w *ThumbWarmer) Start() error {
	if err := EnsureBookmarkStream(w.js); err != nil {
		return err
	}

	_, err := w.js.ConsumerInfo(model.BookmarkStreamName, model.ThumbWarmerConsumer)
	if err != nil {
		_, err = w.js.AddConsumer(model.BookmarkStreamName, &nats.ConsumerConfig{
			Durable:    model.ThumbWarmerConsumer,
			AckPolicy:  nats.AckExplicitPolicy,
			MaxDeliver: warmMaxDeliver,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := w.js.PullSubscribe(model.BookmarkCreatedSubject, model.ThumbWarmerConsumer)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go w.consume(sub)
	return nil
}

// Stop ends the consume loop after the current batch.
func (w *ThumbWarmer) Stop() {
	close(w.stopChan)
}

func (w *ThumbWarmer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		select {
		case <-w.stopChan:
			w.logger.Info("thumbnail warmer stopped")
			_ = sub.Unsubscribe()
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				w.logger.Info("thumbnail warmer subscription closed", zap.Error(err))
				return
			}
			w.logger.Error("failed to fetch messages", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			var event model.BookmarkCreatedEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				w.logger.Error("failed to unmarshal bookmark event", zap.Error(err))
				_ = msg.Term()
				continue
			}

			if err := w.Warm(ctx, event); err != nil {
				w.logger.Warn("failed to warm thumbnails",
					zap.String("bookmark_id", event.BookmarkID),
					zap.Error(err))
				_ = msg.Nak()
				continue
			}

			w.logger.Debug("thumbnails warmed",
				zap.String("bookmark_id", event.BookmarkID),
				zap.Int("count", len(event.ThumbURLs)),
			)
			_ = msg.Ack()
		}
	}
}

// Warm requests every thumbnail of event from the proxy and discards the bodies.
func (w *ThumbWarmer) Warm(ctx context.Context, event model.BookmarkCreatedEvent) error {
	for _, thumb := range event.ThumbURLs {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+thumb, nil)
		if err != nil {
			return fmt.Errorf("build warm request: %w", err)
		}
		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("warm %s: %w", thumb, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("warm %s: status %d", thumb, resp.StatusCode)
		}
	}
	return nil
}
