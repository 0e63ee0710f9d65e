package utils

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "http:\n  listen_addr: \":8080\"\n")

	cfg, err := LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.Second, cfg.HTTP.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Beacons.StaleAfter)
	assert.Equal(t, -59.0, cfg.Beacons.TxPower)
	assert.Equal(t, "fingerprints.json", cfg.Storage.FingerprintsFile)
	assert.Equal(t, "beacons/+/rssi", cfg.MQTT.Topic)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadConfig_Durations(t *testing.T) {
	path := writeConfig(t, `
beacons:
  config_file: b.json
  stale_after: 10s
serial:
  enabled: true
  port: /dev/ttyUSB0
  reconnect_delay: 2s
`)
	cfg, err := LoadConfig(path, file.NewFileService())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Beacons.StaleAfter)
	assert.Equal(t, 2*time.Second, cfg.Serial.ReconnectDelay)
	assert.Equal(t, "b.json", cfg.Beacons.ConfigFile)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  enabled: true\n")
	_, err := LoadConfig(path, file.NewFileService())
	assert.Error(t, err)

	path = writeConfig(t, "logging:\n  level: loud\n")
	_, err = LoadConfig(path, file.NewFileService())
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), file.NewFileService())
	assert.Error(t, err)
}

func TestSliceToSet(t *testing.T) {
	set := SliceToSet([]string{"a", "b", "a"})
	assert.Len(t, set, 2)
	_, ok := set["b"]
	assert.True(t, ok)
}

func TestWorkerPool_RunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(3, 10)
	var n atomic.Int32
	for i := 0; i < 20; i++ {
		assert.True(t, pool.Submit(func() { n.Add(1) }))
	}
	pool.Shutdown()
	assert.Equal(t, int32(20), n.Load())

	assert.False(t, pool.Submit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}))
	pool.Shutdown()
}

func TestWorkerPool_TrySubmitFull(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})

	require.True(t, pool.Submit(func() { close(started); <-block }))
	<-started
	require.True(t, pool.TrySubmit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}))

	close(block)
	pool.Shutdown()
}

func TestWorkerPool_RecoversPanickingJob(t *testing.T) {
	var recovered atomic.Value
	pool := NewWorkerPool(1, 4, WithPanicHandler(func(r interface{}, stack []byte) {
		recovered.Store(r)
		assert.NotEmpty(t, stack)
	}))

	var n atomic.Int32
	require.True(t, pool.Submit(func() { panic("bad notification") }))
	require.True(t, pool.Submit(func() { n.Add(1) }))
	pool.Shutdown()

	assert.Equal(t, "bad notification", recovered.Load())
	assert.Equal(t, int32(1), n.Load())
}
