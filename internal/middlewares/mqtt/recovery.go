package mqtt_middleware

import (
	"runtime/debug"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// RecoveryMiddleware stops a panicking message handler from taking down the
// paho router goroutine.
type RecoveryMiddleware struct {
	next   MQTTMiddleware
	logger zerolog.Logger
}

// NewRecoveryMiddleware creates a RecoveryMiddleware.
func NewRecoveryMiddleware(logger zerolog.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

func (m *RecoveryMiddleware) SetNext(next MQTTMiddleware) { m.next = next }

func (m *RecoveryMiddleware) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	return m.next.Publish(topic, qos, retained, payload)
}

func (m *RecoveryMiddleware) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	wrapped := func(client mqttLib.Client, msg mqttLib.Message) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Interface("panic", r).
					Str("topic", msg.Topic()).
					Bytes("stack", debug.Stack()).
					Msg("Recovered from panic in message handler")
			}
		}()
		callback(client, msg)
	}
	return m.next.Subscribe(topic, qos, wrapped)
}

func (m *RecoveryMiddleware) Unsubscribe(topics ...string) error {
	return m.next.Unsubscribe(topics...)
}
