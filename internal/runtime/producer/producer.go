// Package producer publishes profile events as Avro messages. It feeds local
// brokers and tests with the same wire format the consumer expects.
package producer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	idspkg "github.com/drblury/avroflow/internal/runtime/ids"
	"github.com/drblury/avroflow/internal/runtime/jsoncodec"
	"github.com/drblury/avroflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/avroflow/internal/runtime/metadata"
	"github.com/drblury/avroflow/internal/runtime/record"
)

// Encoder turns a profile into its wire bytes.
type Encoder interface {
	Encode(profile record.Profile) ([]byte, error)
}

// NewMessage encodes profile into a Watermill message carrying the standard
// avroflow metadata. Caller metadata is applied first and never overrides the
// reserved keys.
func NewMessage(enc Encoder, profile record.Profile, metadata metadatapkg.Metadata) (*message.Message, error) {
	if enc == nil {
		return nil, errspkg.ErrEncoderRequired
	}

	payload, err := enc.Encode(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile %d: %w", profile.ID, err)
	}

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadata)
	msg.Metadata[metadatapkg.KeyContentType] = metadatapkg.ContentTypeAvro
	msg.Metadata[metadatapkg.KeyProfileID] = strconv.Itoa(int(profile.ID))
	msg.Metadata[metadatapkg.KeyProducedAt] = time.Now().UTC().Format(time.RFC3339Nano)
	return msg, nil
}

// Publish encodes profile and publishes it to topic.
func Publish(ctx context.Context, publisher message.Publisher, topic string, enc Encoder, profile record.Profile, metadata metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewMessage(enc, profile, metadata)
	if err != nil {
		return err
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}

// Options wires a Producer.
type Options struct {
	Publisher message.Publisher
	Topic     string
	Encoder   Encoder
	Logger    logging.ServiceLogger
	// Fingerprint is attached to every message under
	// metadata.KeySchemaFingerprint when set.
	Fingerprint string
}

// Producer publishes profiles to one topic.
type Producer struct {
	publisher message.Publisher
	topic     string
	encoder   Encoder
	logger    logging.ServiceLogger
	metadata  metadatapkg.Metadata
}

// New validates opts and builds a Producer.
func New(opts Options) (*Producer, error) {
	if opts.Publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if opts.Topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if opts.Encoder == nil {
		return nil, errspkg.ErrEncoderRequired
	}
	if opts.Logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	md := metadatapkg.Metadata{}
	if opts.Fingerprint != "" {
		md = md.With(metadatapkg.KeySchemaFingerprint, opts.Fingerprint)
	}
	return &Producer{
		publisher: opts.Publisher,
		topic:     opts.Topic,
		encoder:   opts.Encoder,
		logger:    opts.Logger,
		metadata:  md,
	}, nil
}

// Publish sends profiles in order and stops at the first failure.
func (p *Producer) Publish(ctx context.Context, profiles ...record.Profile) error {
	for i, profile := range profiles {
		if err := Publish(ctx, p.publisher, p.topic, p.encoder, profile, p.metadata); err != nil {
			p.logger.Error("Failed to publish profile", err, logging.LogFields{
				"topic":      p.topic,
				"profile_id": profile.ID,
				"index":      i,
			})
			return err
		}
		p.logger.Info("Published profile", logging.LogFields{
			"topic":      p.topic,
			"profile_id": profile.ID,
		})
	}
	return nil
}

// ReadProfiles parses a JSON document holding one profile or an array of
// them. Unknown fields are rejected.
func ReadProfiles(r io.Reader) ([]record.Profile, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("read profiles: empty input")
	}

	if raw[0] == '[' {
		var profiles []record.Profile
		if err := jsoncodec.UnmarshalStrict(raw, &profiles); err != nil {
			return nil, fmt.Errorf("parse profiles: %w", err)
		}
		return profiles, nil
	}

	var profile record.Profile
	if err := jsoncodec.UnmarshalStrict(raw, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return []record.Profile{profile}, nil
}
