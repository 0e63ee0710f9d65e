package service_registry

import (
	"github.com/benmeehan/rssi-collector/internal/constants"
	mqtt_middleware "github.com/benmeehan/rssi-collector/internal/middlewares/mqtt"
	"github.com/benmeehan/rssi-collector/internal/utils"
	"github.com/benmeehan/rssi-collector/pkg/mqtt"
)

// InitializeMiddlewares builds the MQTT middleware chain in front of the
// broker connection.
func (sr *ServiceRegistry) InitializeMiddlewares(config *utils.Config, mqttClient mqtt.MQTTClient) *mqtt_middleware.ChainedMQTTClient {
	var middlewares []mqtt_middleware.MQTTMiddleware

	middlewaresInOrder := []struct {
		name        string
		enabled     bool
		constructor func() mqtt_middleware.MQTTMiddleware
	}{
		{
			name:    constants.RecoveryMiddleware,
			enabled: true,
			constructor: func() mqtt_middleware.MQTTMiddleware {
				return mqtt_middleware.NewRecoveryMiddleware(sr.Logger)
			},
		},
		{
			name:    constants.PayloadLimitMiddleware,
			enabled: config.MQTT.MaxPayloadBytes > 0,
			constructor: func() mqtt_middleware.MQTTMiddleware {
				return mqtt_middleware.NewPayloadLimitMiddleware(config.MQTT.MaxPayloadBytes, sr.Logger)
			},
		},
	}

	for _, mw := range middlewaresInOrder {
		if !mw.enabled {
			sr.Logger.Debug().Str("middleware", mw.name).Msg("Middleware is disabled, skipping")
			continue
		}
		middlewares = append(middlewares, mw.constructor())
		sr.Logger.Info().Str("middleware", mw.name).Msg("Middleware initialized")
	}

	chainedClient := mqtt_middleware.NewChainedMQTTClient(mqttClient, middlewares)
	sr.Logger.Info().Int("middleware_count", len(middlewares)).Msg("Middleware chain initialized")
	return chainedClient
}
