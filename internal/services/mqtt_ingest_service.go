package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/utils"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MessageSubscriber is the subscription side of the MQTT middleware chain.
type MessageSubscriber interface {
	Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTIngestService receives beacon notifications from an MQTT broker.
// With a "+" in the topic the beacon MAC is taken from the topic, otherwise
// each payload must be a gateway line "MAC,payload".
type MQTTIngestService struct {
	topic   string
	qos     int
	workers int

	subscriber MessageSubscriber
	ingestor   *Ingestor
	logger     zerolog.Logger

	mu      sync.Mutex
	pool    *utils.WorkerPool
	running bool
}

// NewMQTTIngestService creates a new MQTTIngestService.
func NewMQTTIngestService(topic string, qos, workers int, subscriber MessageSubscriber, ingestor *Ingestor, logger zerolog.Logger) *MQTTIngestService {
	return &MQTTIngestService{
		topic:      topic,
		qos:        qos,
		workers:    workers,
		subscriber: subscriber,
		ingestor:   ingestor,
		logger:     logger.With().Str("service", "mqtt_ingest").Logger(),
	}
}

// Start subscribes to the beacon topic.
func (s *MQTTIngestService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("MQTTIngestService is already running")
		return errors.New("mqtt ingest service is already running")
	}

	s.pool = utils.NewWorkerPool(s.workers, s.workers*64, utils.WithPanicHandler(func(r interface{}, stack []byte) {
		s.logger.Error().
			Interface("panic", r).
			Bytes("stack", stack).
			Msg("Recovered from panic while handling notification")
	}))
	if err := s.subscriber.Subscribe(s.topic, byte(s.qos), s.onMessage); err != nil {
		s.pool.Shutdown()
		s.pool = nil
		s.logger.Error().Err(err).Str("topic", s.topic).Msg("Failed to subscribe to beacon topic")
		return err
	}

	s.running = true
	s.logger.Info().
		Str("topic", s.topic).
		Int("qos", s.qos).
		Int("workers", s.workers).
		Msg("MQTTIngestService started")
	return nil
}

// Stop unsubscribes and drains queued messages.
func (s *MQTTIngestService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("MQTTIngestService is not running")
		return errors.New("mqtt ingest service is not running")
	}
	pool := s.pool
	s.pool = nil
	s.running = false
	s.mu.Unlock()

	err := s.subscriber.Unsubscribe(s.topic)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", s.topic).Msg("Failed to unsubscribe from beacon topic")
	}
	pool.Shutdown()

	s.logger.Info().Msg("MQTTIngestService stopped")
	return err
}

func (s *MQTTIngestService) onMessage(_ mqttLib.Client, msg mqttLib.Message) {
	n, ok := s.toNotification(msg.Topic(), msg.Payload())
	if !ok {
		return
	}

	s.mu.Lock()
	pool := s.pool
	s.mu.Unlock()
	if pool == nil {
		return
	}

	if !pool.TrySubmit(func() { _ = s.ingestor.Handle(n) }) {
		s.logger.Warn().Str("topic", msg.Topic()).Msg("Ingest queue unavailable, dropping notification")
	}
}

func (s *MQTTIngestService) toNotification(topic string, payload []byte) (models.Notification, bool) {
	n := models.Notification{Source: "mqtt", ReceivedAt: time.Now()}

	if strings.Contains(s.topic, "+") {
		mac, ok := macFromTopic(s.topic, topic)
		if !ok {
			s.logger.Warn().Str("topic", topic).Msg("Cannot determine beacon from topic")
			return n, false
		}
		n.MAC = mac
		n.Payload = append([]byte(nil), payload...)
		return n, true
	}

	mac, rest, err := parseGatewayLine(string(payload))
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("Cannot parse gateway message")
		return n, false
	}
	n.MAC = mac
	n.Payload = []byte(rest)
	return n, true
}
