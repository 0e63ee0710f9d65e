package mqtt_middleware

import mqttLib "github.com/eclipse/paho.mqtt.golang"

// MQTTMiddleware defines a link of the MQTT client chain. Each link may
// decorate the subscription callback before handing it to the next one.
type MQTTMiddleware interface {
	SetNext(next MQTTMiddleware)
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error
	Unsubscribe(topics ...string) error
}
