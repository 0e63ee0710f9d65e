package mqtt_middleware

import (
	"errors"
	"testing"

	"github.com/benmeehan/rssi-collector/internal/mocks"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// captureSubscribe records the callback handed to the underlying client.
func captureSubscribe(client *mocks.MockMQTTClient, topic string, err error) *mqttLib.MessageHandler {
	var captured mqttLib.MessageHandler
	client.On("Subscribe", topic, byte(1), mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(mqttLib.MessageHandler)
		}).
		Return(mocks.NewCompletedToken(err))
	return &captured
}

func TestChainedMQTTClient_NoMiddlewares(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "t", byte(0), false, []byte("x")).Return(mocks.NewCompletedToken(nil))
	client.On("Unsubscribe", []string{"t"}).Return(mocks.NewCompletedToken(errors.New("nope")))

	chain := NewChainedMQTTClient(client, nil)
	assert.NoError(t, chain.Publish("t", 0, false, []byte("x")))
	assert.EqualError(t, chain.Unsubscribe("t"), "nope")
	client.AssertExpectations(t)
}

func TestChainedMQTTClient_PayloadLimit(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	captured := captureSubscribe(client, "beacons/+/rssi", nil)

	chain := NewChainedMQTTClient(client, []MQTTMiddleware{
		NewRecoveryMiddleware(zerolog.Nop()),
		NewPayloadLimitMiddleware(4, zerolog.Nop()),
	})

	var got [][]byte
	require.NoError(t, chain.Subscribe("beacons/+/rssi", 1, func(_ mqttLib.Client, msg mqttLib.Message) {
		got = append(got, msg.Payload())
	}))
	require.NotNil(t, *captured)

	(*captured)(nil, mocks.NewMockMessage("beacons/AA/rssi", []byte("-60")))
	(*captured)(nil, mocks.NewMockMessage("beacons/AA/rssi", []byte("user1:-60")))

	assert.Equal(t, [][]byte{[]byte("-60")}, got)
}

func TestChainedMQTTClient_RecoversPanics(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	captured := captureSubscribe(client, "t", nil)

	chain := NewChainedMQTTClient(client, []MQTTMiddleware{NewRecoveryMiddleware(zerolog.Nop())})
	require.NoError(t, chain.Subscribe("t", 1, func(mqttLib.Client, mqttLib.Message) {
		panic("boom")
	}))

	assert.NotPanics(t, func() {
		(*captured)(nil, mocks.NewMockMessage("t", []byte("1")))
	})
}

func TestChainedMQTTClient_SubscribeError(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	captureSubscribe(client, "t", errors.New("not authorized"))

	chain := NewChainedMQTTClient(client, []MQTTMiddleware{NewPayloadLimitMiddleware(0, zerolog.Nop())})
	err := chain.Subscribe("t", 1, func(mqttLib.Client, mqttLib.Message) {})
	assert.EqualError(t, err, "not authorized")
}
