package transports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drblury/avroflow/transport"
)

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{"kafka", "channel", "nats", "rabbitmq"} {
		assert.True(t, transport.DefaultRegistry.Has(name), name)
		assert.Equal(t, name, transport.GetCapabilities(name).Name)
	}
}

func TestRegisterAllIsIdempotent(t *testing.T) {
	RegisterAll()
	RegisterAll()
	assert.Equal(t, []string{"channel", "kafka", "nats", "rabbitmq"}, transport.DefaultRegistry.Names())
}
