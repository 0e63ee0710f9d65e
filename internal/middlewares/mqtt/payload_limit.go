package mqtt_middleware

import (
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// PayloadLimitMiddleware drops incoming messages larger than maxBytes.
type PayloadLimitMiddleware struct {
	next     MQTTMiddleware
	maxBytes int
	logger   zerolog.Logger
}

// NewPayloadLimitMiddleware creates a PayloadLimitMiddleware. A limit of 0 disables it.
func NewPayloadLimitMiddleware(maxBytes int, logger zerolog.Logger) *PayloadLimitMiddleware {
	return &PayloadLimitMiddleware{maxBytes: maxBytes, logger: logger}
}

func (m *PayloadLimitMiddleware) SetNext(next MQTTMiddleware) { m.next = next }

func (m *PayloadLimitMiddleware) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	return m.next.Publish(topic, qos, retained, payload)
}

func (m *PayloadLimitMiddleware) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	if m.maxBytes <= 0 {
		return m.next.Subscribe(topic, qos, callback)
	}
	wrapped := func(client mqttLib.Client, msg mqttLib.Message) {
		if n := len(msg.Payload()); n > m.maxBytes {
			m.logger.Warn().
				Str("topic", msg.Topic()).
				Int("size", n).
				Int("limit", m.maxBytes).
				Msg("Dropping oversized message")
			return
		}
		callback(client, msg)
	}
	return m.next.Subscribe(topic, qos, wrapped)
}

func (m *PayloadLimitMiddleware) Unsubscribe(topics ...string) error {
	return m.next.Unsubscribe(topics...)
}
