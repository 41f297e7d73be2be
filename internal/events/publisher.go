// Package events publishes story lifecycle events to NATS so downstream
// consumers (analytics, notifications) can react to processing and chat
// activity. Publishing is best-effort and optional; a nil publisher is a
// no-op.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
)

const (
	SubjectStoryProcessed = "memoria.story.processed"
	SubjectStoryChat      = "memoria.story.chat"
)

// StoryProcessedEvent is emitted after a story has been deconstructed and
// indexed.
type StoryProcessedEvent struct {
	StoryID      string    `json:"story_id"`
	Title        string    `json:"title"`
	UsedFallback bool      `json:"used_fallback"`
	Timestamp    time.Time `json:"timestamp"`
}

// StoryChatEvent is emitted after each persona response.
type StoryChatEvent struct {
	StoryID   string    `json:"story_id"`
	Intent    string    `json:"intent"` // "continuation" or "question"
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes events to NATS.
type Publisher struct {
	conn   *nats.Conn
	logger *log.Logger
}

// NewPublisher connects to NATS with reconnect handling.
func NewPublisher(url string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Default()
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish marshals the event and publishes it on the subject. A nil
// publisher silently drops the event.
func (p *Publisher) Publish(subject string, data any) error {
	if p == nil || p.conn == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

// StoryProcessed publishes a story-processed event.
func (p *Publisher) StoryProcessed(storyID, title string, usedFallback bool) {
	if err := p.Publish(SubjectStoryProcessed, StoryProcessedEvent{
		StoryID:      storyID,
		Title:        title,
		UsedFallback: usedFallback,
		Timestamp:    time.Now().UTC(),
	}); err != nil && p != nil {
		p.logger.Warn("failed to publish story processed event", "story_id", storyID, "error", err)
	}
}

// StoryChat publishes a story-chat event.
func (p *Publisher) StoryChat(storyID, intent string) {
	if err := p.Publish(SubjectStoryChat, StoryChatEvent{
		StoryID:   storyID,
		Intent:    intent,
		Timestamp: time.Now().UTC(),
	}); err != nil && p != nil {
		p.logger.Warn("failed to publish story chat event", "story_id", storyID, "error", err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
