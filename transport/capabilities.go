package transport

// Capabilities describes what a transport backend guarantees to the
// ingestion loop.
type Capabilities struct {
	// Name is the registered transport name.
	Name string `json:"name"`

	// SupportsOrdering indicates messages of one partition or queue arrive in
	// publish order.
	SupportsOrdering bool `json:"supports_ordering"`

	// SupportsConsumerGroups indicates several consumers can share a topic,
	// each message going to one member of the group.
	SupportsConsumerGroups bool `json:"supports_consumer_groups"`

	// SupportsAck indicates the backend tracks acknowledgements. Without it
	// acking a message is a no-op.
	SupportsAck bool `json:"supports_ack"`

	// Durable indicates messages outlive the process that published them.
	Durable bool `json:"durable"`

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64 `json:"max_message_size"`
}

// Lossy reports whether messages published while no consumer is running are
// lost.
func (c Capabilities) Lossy() bool {
	return !c.Durable
}

// Accepts reports whether a payload of size bytes fits the backend limit.
func (c Capabilities) Accepts(size int) bool {
	return c.MaxMessageSize == 0 || int64(size) <= c.MaxMessageSize
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
	}

	// KafkaCapabilities for Apache Kafka.
	KafkaCapabilities = Capabilities{
		Name:                   "kafka",
		SupportsOrdering:       true,
		SupportsConsumerGroups: true,
		SupportsAck:            true,
		Durable:                true,
		MaxMessageSize:         1048576, // broker default message.max.bytes
	}

	// RabbitMQCapabilities for RabbitMQ/AMQP with durable queues.
	RabbitMQCapabilities = Capabilities{
		Name:                   "rabbitmq",
		SupportsOrdering:       true,
		SupportsConsumerGroups: true,
		SupportsAck:            true,
		Durable:                true,
	}

	// NATSCapabilities for NATS Core.
	NATSCapabilities = Capabilities{
		Name:                   "nats",
		SupportsConsumerGroups: true,
		MaxMessageSize:         1048576, // server default max_payload
	}
)

// GetCapabilities returns the capabilities registered for a transport name.
// Unknown names yield a zero Capabilities carrying only the name.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
