package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Processing stages reported in progress events
const (
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
)

// ProgressEvent is one step of a running ingest job. Consumers receive
// events from the channel passed in Options; delivery blocks until the
// consumer reads or the job context ends, so a consumer controls pacing.
type ProgressEvent struct {
	JobID   uuid.UUID `json:"job_id"`
	Stage   string    `json:"stage"`
	Current int       `json:"current"`
	Total   int       `json:"total"`
	Label   string    `json:"label"`
}

// emit delivers an event, giving up when the context ends. A nil channel
// disables progress reporting.
func emit(ctx context.Context, ch chan<- ProgressEvent, ev ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
