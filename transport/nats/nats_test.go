package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/avroflow/transport"
)

type stubConfig struct {
	url      string
	group    string
	clientID string
}

func (c stubConfig) GetPubSubSystem() string       { return TransportName }
func (c stubConfig) GetKafkaBrokers() []string     { return nil }
func (c stubConfig) GetKafkaConsumerGroup() string { return c.group }
func (c stubConfig) GetKafkaClientID() string      { return c.clientID }
func (c stubConfig) GetRabbitMQURL() string        { return "" }
func (c stubConfig) GetNATSURL() string            { return c.url }

type stubPublisher struct{ closed bool }

func (p *stubPublisher) Publish(string, ...*message.Message) error { return nil }
func (p *stubPublisher) Close() error                              { p.closed = true; return nil }

type stubSubscriber struct{}

func (stubSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (stubSubscriber) Close() error { return nil }

type captured struct {
	pub nats.PublisherConfig
	sub nats.SubscriberConfig
}

func stubFactories(t *testing.T, pubErr, subErr error) (*stubPublisher, *captured) {
	t.Helper()
	origPub, origSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() { PublisherFactory, SubscriberFactory = origPub, origSub })

	pub := &stubPublisher{}
	got := &captured{}
	PublisherFactory = func(cfg nats.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		got.pub = cfg
		if pubErr != nil {
			return nil, pubErr
		}
		return pub, nil
	}
	SubscriberFactory = func(cfg nats.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		got.sub = cfg
		if subErr != nil {
			return nil, subErr
		}
		return stubSubscriber{}, nil
	}
	return pub, got
}

func TestRegister(t *testing.T) {
	orig := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = orig })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()
	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, transport.NATSCapabilities, caps)
	assert.True(t, caps.Lossy(), "core NATS drops messages nobody is subscribed to")
	assert.Equal(t, caps, Capabilities())
}

func TestBuildUsesQueueGroupWithoutJetStream(t *testing.T) {
	_, got := stubFactories(t, nil, nil)

	tr, err := Build(context.Background(), stubConfig{url: "nats://localhost:4222", group: "test_group"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.Equal(t, stubSubscriber{}, tr.Subscriber)

	assert.Equal(t, "nats://localhost:4222", got.pub.URL)
	assert.True(t, got.pub.JetStream.Disabled)
	assert.Equal(t, "nats://localhost:4222", got.sub.URL)
	assert.Equal(t, "test_group", got.sub.QueueGroupPrefix)
	assert.True(t, got.sub.JetStream.Disabled)
	assert.Len(t, got.sub.NatsOptions, 2)
}

func TestClientName(t *testing.T) {
	assert.Equal(t, "avroflow", clientName(""))
	assert.Equal(t, "ingest-1", clientName("ingest-1"))
}

func TestBuildFailures(t *testing.T) {
	t.Run("publisher", func(t *testing.T) {
		stubFactories(t, errors.New("no servers"), nil)
		_, err := Build(context.Background(), stubConfig{url: "nats://localhost:4222"}, watermill.NopLogger{})
		assert.EqualError(t, err, "nats: publisher: no servers")
	})

	t.Run("subscriber closes publisher", func(t *testing.T) {
		pub, _ := stubFactories(t, nil, errors.New("authorization violation"))
		_, err := Build(context.Background(), stubConfig{url: "nats://localhost:4222"}, watermill.NopLogger{})
		assert.EqualError(t, err, "nats: subscriber: authorization violation")
		assert.True(t, pub.closed)
	})
}
