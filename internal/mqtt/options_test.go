package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/combinedd/internal/config"
)

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBroker{Host: "broker.local", Port: 8883, TLS: true, ClientID: "combinedd"},
		Auth:   config.MQTTAuth{Username: "u", Password: "p"},
		Reconnect: config.MQTTReconnect{
			InitialDelay: config.Duration(time.Second),
			MaxDelay:     config.Duration(time.Minute),
		},
	}

	opts := buildClientOptions(cfg)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "ssl://broker.local:8883", opts.Servers[0].String())
	assert.Equal(t, "combinedd", opts.ClientID)
	assert.Equal(t, "u", opts.Username)
	assert.NotNil(t, opts.TLSConfig)
	assert.False(t, opts.Order, "command handlers must not hold up outgoing publishes")
}
