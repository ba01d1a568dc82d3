// Package broadcaster publishes realtime ingestion progress over Google
// Cloud Pub/Sub, implementing service.Broadcaster.
package broadcaster

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/connexus-ai/docforge/internal/service"
)

// PubSubBroadcaster emits JSON progress events on a topic-per-channel
// basis, caching topic handles for the lifetime of the process.
type PubSubBroadcaster struct {
	client *pubsub.Client
	topics sync.Map // channel name (string) -> *pubsub.Topic
}

// New creates a PubSubBroadcaster backed by client.
func New(client *pubsub.Client) *PubSubBroadcaster {
	return &PubSubBroadcaster{client: client}
}

var _ service.Broadcaster = (*PubSubBroadcaster)(nil)

// publishTimeout bounds each publish, including waiting for the server ack.
const publishTimeout = 10 * time.Second

// Emit publishes payload as JSON on the channel resolved from scope and
// resourceType. All failures are logged and swallowed: a broadcast is a
// best-effort progress notification, never a correctness dependency.
func (b *PubSubBroadcaster) Emit(ctx context.Context, scope service.Scope, resourceType string, payload map[string]any) {
	channel := scope.ChannelName(resourceType)
	b.publish(ctx, channel, payload)
}

// EmitUsage publishes a file-size delta on the workflow's usage channel.
func (b *PubSubBroadcaster) EmitUsage(ctx context.Context, workflowID string, newFileSize int64) {
	channel := workflowID + "-usage"
	b.publish(ctx, channel, map[string]any{"newFileSize": newFileSize})
}

func (b *PubSubBroadcaster) publish(ctx context.Context, channel string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("broadcaster: failed to marshal payload", "channel", channel, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	topic := b.topicFor(channel)
	result := topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		slog.Warn("broadcaster: publish failed", "channel", channel, "error", err)
	}
}

func (b *PubSubBroadcaster) topicFor(channel string) *pubsub.Topic {
	if t, ok := b.topics.Load(channel); ok {
		return t.(*pubsub.Topic)
	}
	t := b.client.Topic(channel)
	actual, _ := b.topics.LoadOrStore(channel, t)
	return actual.(*pubsub.Topic)
}

// Close stops every cached topic, flushing any buffered publishes. Call
// once at process shutdown.
func (b *PubSubBroadcaster) Close() {
	b.topics.Range(func(_, v any) bool {
		v.(*pubsub.Topic).Stop()
		return true
	})
}
