package services

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// PortOpener opens the gateway link.
type PortOpener func(name string, baud int) (io.ReadCloser, error)

// OpenSerialPort opens a serial device with tarm/serial.
func OpenSerialPort(name string, baud int) (io.ReadCloser, error) {
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}

// SerialIngestService reads "MAC,payload" lines from a BLE gateway attached
// over a serial port and reopens the port after any failure.
type SerialIngestService struct {
	port           string
	baudRate       int
	reconnectDelay time.Duration
	open           PortOpener

	ingestor *Ingestor
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSerialIngestService creates a SerialIngestService. A nil opener uses OpenSerialPort.
func NewSerialIngestService(port string, baudRate int, reconnectDelay time.Duration, open PortOpener, ingestor *Ingestor, logger zerolog.Logger) *SerialIngestService {
	if open == nil {
		open = OpenSerialPort
	}
	return &SerialIngestService{
		port:           port,
		baudRate:       baudRate,
		reconnectDelay: reconnectDelay,
		open:           open,
		ingestor:       ingestor,
		logger:         logger.With().Str("service", "serial_ingest").Str("port", port).Logger(),
	}
}

// Start launches the read loop in a separate goroutine.
func (s *SerialIngestService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("SerialIngestService is already running")
		return errors.New("serial ingest service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	ctx := s.ctx

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	s.logger.Info().Int("baud_rate", s.baudRate).Msg("SerialIngestService started")
	return nil
}

// Stop closes the port and waits for the read loop to exit.
func (s *SerialIngestService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("SerialIngestService is not running")
		return errors.New("serial ingest service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("SerialIngestService stopped")
	return nil
}

func (s *SerialIngestService) run(ctx context.Context) {
	for {
		if err := s.readOnce(ctx); err != nil {
			s.logger.Error().Err(err).Dur("retry_in", s.reconnectDelay).Msg("Gateway link failed, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

// readOnce opens the port and consumes lines until it fails or the service stops.
func (s *SerialIngestService) readOnce(ctx context.Context) error {
	s.logger.Info().Msg("Connecting to gateway")
	port, err := s.open(s.port, s.baudRate)
	if err != nil {
		return err
	}

	// Closing the port unblocks the scanner on shutdown.
	done := make(chan struct{})
	defer close(done)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
		case <-done:
		}
		port.Close()
	}()

	s.logger.Info().Msg("Connected and listening")

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		mac, payload, err := parseGatewayLine(scanner.Text())
		if err != nil {
			s.logger.Debug().Err(err).Msg("Skipping gateway line")
			continue
		}
		_ = s.ingestor.Handle(models.Notification{
			MAC:        mac,
			Payload:    []byte(payload),
			Source:     "serial",
			ReceivedAt: time.Now(),
		})
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}
