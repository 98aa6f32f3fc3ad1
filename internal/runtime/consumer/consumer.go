// Package consumer runs the ingestion loop: it polls batches of Avro
// messages from a subscriber, decodes them and hands every profile to the
// pipeline.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	"github.com/drblury/avroflow/internal/runtime/ids"
	"github.com/drblury/avroflow/internal/runtime/logging"
	"github.com/drblury/avroflow/internal/runtime/metadata"
	"github.com/drblury/avroflow/internal/runtime/metrics"
	"github.com/drblury/avroflow/internal/runtime/pipeline"
	"github.com/drblury/avroflow/internal/runtime/record"
)

const tracerName = "github.com/drblury/avroflow/consumer"

// Poll limits used when Options leaves them zero.
const (
	DefaultBatchSize   = 300
	DefaultPollTimeout = 5 * time.Second
)

// Decoder turns raw message payloads into profiles. It fails as a whole when
// any payload is malformed.
type Decoder interface {
	DecodeAll(payloads [][]byte) ([]record.Profile, error)
}

// Processor handles one decoded profile.
type Processor interface {
	ProcessResult(ctx context.Context, profile record.Profile) (pipeline.Result, error)
}

// Options wires the collaborators of a Consumer.
type Options struct {
	Subscriber message.Subscriber
	Topic      string
	Decoder    Decoder
	Processor  Processor
	Logger     logging.ServiceLogger

	// Metrics defaults to metrics.Nop.
	Metrics metrics.Recorder
	Hooks   Hooks
	Tracer  trace.Tracer

	BatchSize   int
	PollTimeout time.Duration
}

// Consumer polls Topic in batches until its context is cancelled.
type Consumer struct {
	subscriber  message.Subscriber
	topic       string
	decoder     Decoder
	processor   Processor
	logger      logging.ServiceLogger
	metrics     metrics.Recorder
	hooks       Hooks
	tracer      trace.Tracer
	batchSize   int
	pollTimeout time.Duration
}

// Batch is a group of messages polled together. Its messages are already
// acknowledged.
type Batch struct {
	ID       string
	Messages []*message.Message
	PolledAt time.Time
}

// BatchStats summarizes what happened to one batch.
type BatchStats struct {
	Received       int
	Processed      int
	PassedThrough  int
	Failed         int
	RenderFailures int
	// DecodeErr is set when the batch was skipped.
	DecodeErr error
}

// New validates opts and builds a Consumer.
func New(opts Options) (*Consumer, error) {
	if opts.Subscriber == nil {
		return nil, errspkg.ErrSubscriberRequired
	}
	if opts.Topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if opts.Decoder == nil {
		return nil, errspkg.ErrDecoderRequired
	}
	if opts.Processor == nil {
		return nil, errspkg.ErrProcessorRequired
	}
	if opts.Logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.PollTimeout < 0 {
		return nil, fmt.Errorf("poll timeout must be positive, got %s", opts.PollTimeout)
	}

	c := &Consumer{
		subscriber:  opts.Subscriber,
		topic:       opts.Topic,
		decoder:     opts.Decoder,
		processor:   opts.Processor,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		hooks:       opts.Hooks,
		tracer:      opts.Tracer,
		batchSize:   opts.BatchSize,
		pollTimeout: opts.PollTimeout,
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.batchSize == 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.pollTimeout == 0 {
		c.pollTimeout = DefaultPollTimeout
	}
	return c, nil
}

// Run subscribes to the topic and handles batches until ctx is cancelled or
// the subscription closes. Cancellation is not an error.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %q: %w", c.topic, err)
	}

	c.logger.Info("Consumer started", logging.LogFields{
		"topic":        c.topic,
		"batch_size":   c.batchSize,
		"poll_timeout": c.pollTimeout.String(),
	})
	if c.hooks.OnSubscribed != nil {
		c.hooks.OnSubscribed(c.topic)
	}

	for {
		batch, open := c.Poll(ctx, msgs)
		if len(batch.Messages) > 0 {
			c.HandleBatch(ctx, batch)
		}
		if !open {
			c.logger.Info("Consumer stopped", logging.LogFields{"topic": c.topic})
			return nil
		}
	}
}

// Poll collects up to the batch size of messages from msgs, waiting at most
// the poll timeout. Every message is acked as soon as it is collected. The
// second result is false once ctx is done or msgs is closed.
func (c *Consumer) Poll(ctx context.Context, msgs <-chan *message.Message) (Batch, bool) {
	batch := Batch{ID: ids.CreateULID(), PolledAt: time.Now()}

	timer := time.NewTimer(c.pollTimeout)
	defer timer.Stop()

	for len(batch.Messages) < c.batchSize {
		select {
		case <-ctx.Done():
			return batch, false
		case <-timer.C:
			return batch, true
		case msg, ok := <-msgs:
			if !ok {
				return batch, false
			}
			msg.Ack()
			batch.Messages = append(batch.Messages, msg)
		}
	}
	return batch, true
}

// HandleBatch decodes the batch and processes its profiles in order. A decode
// failure drops the whole batch. A record that fails validation is logged
// and skipped.
func (c *Consumer) HandleBatch(ctx context.Context, batch Batch) BatchStats {
	ctx, span := c.tracer.Start(ctx, "consumer.HandleBatch", trace.WithAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.String("messaging.destination", c.topic),
		attribute.Int("batch.size", len(batch.Messages)),
	))
	defer span.End()

	stats := BatchStats{Received: len(batch.Messages)}
	bctx := BatchContext{
		ID:        batch.ID,
		Topic:     c.topic,
		Size:      len(batch.Messages),
		Context:   ctx,
		StartedAt: time.Now(),
	}

	c.logger.Info("Received messages", logging.LogFields{
		"batch_id": batch.ID,
		"topic":    c.topic,
		"count":    len(batch.Messages),
	})
	c.metrics.MessagesReceived(c.topic, len(batch.Messages))
	if c.hooks.OnBatchStart != nil {
		c.hooks.OnBatchStart(bctx)
	}

	payloads := make([][]byte, len(batch.Messages))
	for i, msg := range batch.Messages {
		payloads[i] = msg.Payload
	}

	profiles, err := c.decoder.DecodeAll(payloads)
	if err != nil {
		stats.DecodeErr = err
		c.logger.Error("Failed to decode batch, skipping", err, logging.LogFields{
			"batch_id": batch.ID,
			"topic":    c.topic,
			"size":     len(batch.Messages),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		c.metrics.BatchSkipped(c.topic, len(batch.Messages))
		if c.hooks.OnBatchSkipped != nil {
			bctx.Duration = time.Since(bctx.StartedAt)
			c.hooks.OnBatchSkipped(bctx, err)
		}
		return stats
	}

	for i, profile := range profiles {
		msg := batch.Messages[i]
		rctx := RecordContext{
			BatchID:     batch.ID,
			Topic:       c.topic,
			MessageUUID: msg.UUID,
			Index:       i,
			Metadata:    metadata.FromWatermill(msg.Metadata),
			Context:     ctx,
			StartedAt:   time.Now(),
		}
		c.handleRecord(ctx, rctx, profile, &stats)
	}

	span.SetAttributes(
		attribute.Int("batch.processed", stats.Processed),
		attribute.Int("batch.failed", stats.Failed),
	)
	if c.hooks.OnBatchDone != nil {
		bctx.Duration = time.Since(bctx.StartedAt)
		c.hooks.OnBatchDone(bctx)
	}
	return stats
}

func (c *Consumer) handleRecord(ctx context.Context, rctx RecordContext, profile record.Profile, stats *BatchStats) {
	if c.hooks.OnRecordStart != nil {
		c.hooks.OnRecordStart(rctx)
	}

	res, err := c.processor.ProcessResult(ctx, profile)
	rctx.Duration = time.Since(rctx.StartedAt)

	if err != nil {
		stats.Failed++
		fields := logging.LogFields{
			"batch_id":     rctx.BatchID,
			"message_uuid": rctx.MessageUUID,
			"profile_id":   profile.ID,
		}
		if errors.Is(err, errspkg.ErrInvalidInput) {
			c.logger.Error("Invalid record, skipping", err, fields)
		} else {
			c.logger.Error("Failed to process record", err, fields)
		}
		c.metrics.RecordFailed(c.topic, err, rctx.Duration)
		if c.hooks.OnRecordError != nil {
			c.hooks.OnRecordError(rctx, err)
		}
		return
	}

	outcome := metrics.OutcomeProcessed
	if res.Skipped() {
		outcome = metrics.OutcomePassThrough
		stats.PassedThrough++
	} else {
		stats.Processed++
	}
	if res.RenderErr != nil {
		stats.RenderFailures++
		c.metrics.RenderFailed(c.topic)
	}
	c.metrics.RecordDone(c.topic, outcome, rctx.Duration)

	if c.hooks.OnRecordDone != nil {
		rctx.Skipped = res.Skipped()
		rctx.Document = res.Document
		c.hooks.OnRecordDone(rctx)
	}
}
