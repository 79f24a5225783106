// Package notifications publishes domain events to real-time listeners.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	EventChatMessage    = "chat_message"
	EventChatDeleted    = "chat_message_deleted"
	EventCommentCreated = "comment_created"
	EventCommentDeleted = "comment_deleted"
	EventPostPublished  = "post_published"
)

// BroadcastTopic receives site-wide events such as newly published posts.
const BroadcastTopic = "notifications:broadcast"

// Event is the envelope delivered to listeners.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, At: time.Now().UTC()}
}

// Broadcaster delivers events to whoever listens on a topic. Delivery is best effort.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// ChatTopic is the topic for messages in a chat channel.
func ChatTopic(channel string) string {
	return "chat:channel:" + channel
}

// CommentsTopic is the topic for comment activity on a post.
func CommentsTopic(postID string) string {
	return "post:" + postID + ":comments"
}

// RedisBroadcaster publishes events into Redis channels. A nil client turns it into a no-op.
type RedisBroadcaster struct {
	rdb *redis.Client
}

// NewRedisBroadcaster creates a new RedisBroadcaster instance using the provided Redis client.
func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

// Publish encodes event as JSON and publishes it on topic.
func (n *RedisBroadcaster) Publish(ctx context.Context, topic string, event Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		observability.BroadcastsPublished.WithLabelValues(event.Type, "error").Inc()
		return err
	}
	observability.BroadcastsPublished.WithLabelValues(event.Type, "ok").Inc()
	return nil
}

// Subscribe listens on the given channel patterns and calls onMessage for each message
// until ctx is done. A panicking handler is logged and does not stop the loop.
func (n *RedisBroadcaster) Subscribe(
	ctx context.Context, onMessage func(channel string, payload string), patterns ...string,
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %v: %w", patterns, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in notifications subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
