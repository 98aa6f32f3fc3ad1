package consumer

import (
	"context"
	"time"

	"github.com/drblury/avroflow/internal/runtime/logging"
	"github.com/drblury/avroflow/internal/runtime/metadata"
)

// BatchContext describes one polled batch to hooks.
type BatchContext struct {
	// ID is the ULID assigned to the batch when it was polled.
	ID    string
	Topic string
	// Size is the number of messages in the batch.
	Size      int
	Context   context.Context
	StartedAt time.Time
	// Duration is only set in OnBatchDone and OnBatchSkipped.
	Duration time.Duration
}

// RecordContext describes one decoded record to hooks.
type RecordContext struct {
	BatchID     string
	Topic       string
	MessageUUID string
	// Index is the position of the record within its batch.
	Index     int
	Metadata  metadata.Metadata
	Context   context.Context
	StartedAt time.Time
	// Duration is only set in OnRecordDone and OnRecordError.
	Duration time.Duration
	// Skipped is set in OnRecordDone when the record was passed through
	// without normalization.
	Skipped bool
	// Document is the rendered template, set in OnRecordDone.
	Document string
}

// Hooks are callbacks around batch and record handling. Nil hooks are not
// called.
type Hooks struct {
	// OnSubscribed is called once the subscription to topic is live, before
	// the first poll.
	OnSubscribed func(topic string)

	OnBatchStart func(ctx BatchContext)
	OnBatchDone  func(ctx BatchContext)
	// OnBatchSkipped is called when a message of the batch failed to decode
	// and the whole batch was dropped.
	OnBatchSkipped func(ctx BatchContext, err error)

	OnRecordStart func(ctx RecordContext)
	OnRecordDone  func(ctx RecordContext)
	OnRecordError func(ctx RecordContext, err error)
}

// Merge combines two Hooks. The hooks from other run after the hooks from h.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnSubscribed:   chain(h.OnSubscribed, other.OnSubscribed),
		OnBatchStart:   chain(h.OnBatchStart, other.OnBatchStart),
		OnBatchDone:    chain(h.OnBatchDone, other.OnBatchDone),
		OnBatchSkipped: chainErr(h.OnBatchSkipped, other.OnBatchSkipped),
		OnRecordStart:  chain(h.OnRecordStart, other.OnRecordStart),
		OnRecordDone:   chain(h.OnRecordDone, other.OnRecordDone),
		OnRecordError:  chainErr(h.OnRecordError, other.OnRecordError),
	}
}

func chain[T any](a, b func(T)) func(T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx T) {
		a(ctx)
		b(ctx)
	}
}

func chainErr[T any](a, b func(T, error)) func(T, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx T, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks logs batch and record lifecycle events at debug level.
func LoggingHooks(logger logging.ServiceLogger) Hooks {
	return Hooks{
		OnBatchStart: func(ctx BatchContext) {
			logger.Debug("Batch started", logging.LogFields{
				"batch_id": ctx.ID,
				"topic":    ctx.Topic,
				"size":     ctx.Size,
			})
		},
		OnBatchDone: func(ctx BatchContext) {
			logger.Debug("Batch completed", logging.LogFields{
				"batch_id":    ctx.ID,
				"topic":       ctx.Topic,
				"size":        ctx.Size,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnRecordDone: func(ctx RecordContext) {
			fields := logging.LogFields{
				"batch_id":     ctx.BatchID,
				"message_uuid": ctx.MessageUUID,
				"index":        ctx.Index,
				"skipped":      ctx.Skipped,
				"duration_ms":  ctx.Duration.Milliseconds(),
			}
			if producedAt, ok := ctx.Metadata.ProducedAt(); ok {
				fields["lag_ms"] = ctx.StartedAt.Sub(producedAt).Milliseconds()
			}
			logger.Debug("Record completed", fields)
		},
	}
}
