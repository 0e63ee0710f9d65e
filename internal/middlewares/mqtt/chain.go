package mqtt_middleware

import (
	"github.com/benmeehan/rssi-collector/pkg/mqtt"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
)

// ChainedMQTTClient wraps an MQTT client with a middleware chain.
type ChainedMQTTClient struct {
	middlewares []MQTTMiddleware
	direct      *directMQTTClient
}

// NewChainedMQTTClient creates a new chained MQTT client. Middlewares run in
// the given order, the first one sees every call first.
func NewChainedMQTTClient(mqttClient mqtt.MQTTClient, middlewares []MQTTMiddleware) *ChainedMQTTClient {
	direct := &directMQTTClient{mqttClient: mqttClient}
	for i := 0; i < len(middlewares)-1; i++ {
		middlewares[i].SetNext(middlewares[i+1])
	}
	if len(middlewares) > 0 {
		middlewares[len(middlewares)-1].SetNext(direct)
	}
	return &ChainedMQTTClient{
		middlewares: middlewares,
		direct:      direct,
	}
}

func (c *ChainedMQTTClient) head() MQTTMiddleware {
	if len(c.middlewares) == 0 {
		return c.direct
	}
	return c.middlewares[0]
}

// Publish sends a message through the middleware chain.
func (c *ChainedMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	return c.head().Publish(topic, qos, retained, payload)
}

// Subscribe subscribes through the middleware chain.
func (c *ChainedMQTTClient) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	return c.head().Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes through the middleware chain.
func (c *ChainedMQTTClient) Unsubscribe(topics ...string) error {
	return c.head().Unsubscribe(topics...)
}

// SetNext implements the MQTTMiddleware interface (no-op for the chain entry point).
func (c *ChainedMQTTClient) SetNext(next MQTTMiddleware) {}

// directMQTTClient is the chain terminator that delegates to the MQTT client.
type directMQTTClient struct {
	mqttClient mqtt.MQTTClient
}

func (d *directMQTTClient) SetNext(_ MQTTMiddleware) {}

func (d *directMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	token := d.mqttClient.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (d *directMQTTClient) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	token := d.mqttClient.Subscribe(topic, qos, callback)
	token.Wait()
	return token.Error()
}

func (d *directMQTTClient) Unsubscribe(topics ...string) error {
	token := d.mqttClient.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}
