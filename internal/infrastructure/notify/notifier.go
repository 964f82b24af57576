// Package notify implements D3: a best-effort fire-and-forget
// completion notification published to Redis, mirroring the teacher's
// processed-queue idiom but repurposed for notification rather than
// work dispatch (work is already done by the time this fires).
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const completedListKey = "tus:completed"

// CompletionEvent is the JSON payload pushed for every finalized
// logical file, solo or multipart.
type CompletionEvent struct {
	Filename        string    `json:"filename"`
	DestinationPath string    `json:"destination_path"`
	Size            int64     `json:"size"`
	SHA256          string    `json:"sha256"`
	MultipartID     string    `json:"multipart_id,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

type Notifier struct {
	client *redis.Client
}

func New(addr string) *Notifier {
	return &Notifier{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Publish pushes event onto the completed-uploads list. Failures are
// logged, never returned — a down Redis must never fail an upload that
// has already succeeded.
func (n *Notifier) Publish(ctx context.Context, event CompletionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: encode completion event: %v", err)
		return
	}

	if err := n.client.LPush(ctx, completedListKey, data).Err(); err != nil {
		log.Printf("notify: publish completion event: %v", err)
	}
}

// Listen blocks, popping completion events one at a time and passing
// them to handle, until ctx is canceled. Intended to run in its own
// goroutine for deployments that want to react to completions (e.g. a
// separate indexing process); the server itself does not depend on a
// listener being present.
func (n *Notifier) Listen(ctx context.Context, handle func(CompletionEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := n.client.BRPop(ctx, time.Second, completedListKey).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				log.Printf("notify: listen BRPop failed: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}

		var event CompletionEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			log.Printf("notify: decode completion event: %v", err)
			continue
		}
		handle(event)
	}
}

func (n *Notifier) Close() error {
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
