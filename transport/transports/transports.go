// Package transports registers every built-in transport with the default
// registry. Import it for its side effect.
package transports

import (
	"github.com/drblury/avroflow/transport/channel"
	"github.com/drblury/avroflow/transport/kafka"
	"github.com/drblury/avroflow/transport/nats"
	"github.com/drblury/avroflow/transport/rabbitmq"
)

func init() {
	RegisterAll()
}

// RegisterAll registers the kafka, channel, nats and rabbitmq transports.
func RegisterAll() {
	kafka.Register()
	channel.Register()
	nats.Register()
	rabbitmq.Register()
}
