package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/mocks"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/state_managers"
	"github.com/benmeehan/rssi-collector/pkg/beacon"
	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/benmeehan/rssi-collector/pkg/identity"
	"github.com/benmeehan/rssi-collector/pkg/s3"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type event struct {
	Type string
	Data interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeBroadcaster) Broadcast(eventType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{Type: eventType, Data: data})
}

func (f *fakeBroadcaster) ClientCount() int { return 2 }

func (f *fakeBroadcaster) Events() []event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event(nil), f.events...)
}

type fakeStation struct{}

func (fakeStation) LoadStationInfo() error { return nil }
func (fakeStation) GetStationID() string   { return "station-1" }
func (fakeStation) GetStationIdentity() *identity.Identity {
	return &identity.Identity{ID: "station-1", Name: "lab"}
}

func testRegistry() *beacon.Registry {
	return beacon.NewRegistry([]beacon.Beacon{
		{MAC: "AA:00:00:00:00:01", Toado: "0,0"},
		{MAC: "AA:00:00:00:00:02", Toado: "10,0"},
		{MAC: "AA:00:00:00:00:03", Toado: "0,10"},
	})
}

type fixture struct {
	registry     *beacon.Registry
	readings     *state_managers.RSSIStateManager
	fingerprints *state_managers.FingerprintStateManager
	broadcaster  *fakeBroadcaster
	ingestor     *Ingestor
	collector    *Collector
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := testRegistry()
	readings := state_managers.NewRSSIStateManager(registry)
	fingerprints := state_managers.NewFingerprintStateManager(
		filepath.Join(t.TempDir(), "fingerprints.json"), file.NewFileService(), zerolog.Nop())
	require.NoError(t, fingerprints.LoadState())

	b := &fakeBroadcaster{}
	f := &fixture{
		registry:     registry,
		readings:     readings,
		fingerprints: fingerprints,
		broadcaster:  b,
		ingestor:     NewIngestor(registry, readings, b, zerolog.Nop()),
		collector:    NewCollector(registry, readings, fingerprints, fakeStation{}, nil, b, CollectorOptions{}, zerolog.Nop()),
		now:          time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local),
	}
	f.collector.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) ingest(t *testing.T, mac, payload string, age time.Duration) {
	t.Helper()
	require.NoError(t, f.ingestor.Handle(models.Notification{
		MAC:        mac,
		Payload:    []byte(payload),
		Source:     "test",
		ReceivedAt: f.now.Add(-age),
	}))
}

func TestIngestor_Handle(t *testing.T) {
	f := newFixture(t)

	f.ingest(t, "aa:00:00:00:00:01", "-61", time.Second)
	f.ingest(t, "AA:00:00:00:00:02", "user7:-72", time.Second)

	snap := f.readings.Snapshot(f.now)
	assert.Equal(t, -61, snap["beacon1"].RSSI)
	assert.Equal(t, -72, snap["beacon2"].RSSI)

	events := f.broadcaster.Events()
	require.Len(t, events, 2)
	assert.Equal(t, constants.EventRSSIUpdate, events[0].Type)
	update := events[0].Data.(models.RSSIUpdate)
	assert.Equal(t, "AA:00:00:00:00:01", update.BeaconMAC)
	assert.Equal(t, "beacon1", update.BeaconName)
	assert.Equal(t, "0,0", update.Location)
	assert.Equal(t, f.now.Add(-time.Second).Format("15:04:05"), update.Timestamp)

	users := f.ingestor.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "user7", users[0].UserID)
	assert.Equal(t, 1, users[0].Beacons)
	assert.Equal(t, 3, users[0].Of)
	assert.Equal(t, map[string]int{"beacon2": -72}, users[0].Readings)

	f.ingestor.ResetUsers()
	assert.Empty(t, f.ingestor.Users())
}

func TestIngestor_DropsOutOfOrderNotification(t *testing.T) {
	f := newFixture(t)

	f.ingest(t, "AA:00:00:00:00:01", "-50", 0)
	f.ingest(t, "AA:00:00:00:00:01", "-90", 2*time.Second)

	assert.Equal(t, -50, f.readings.Snapshot(f.now)["beacon1"].RSSI)
	assert.Len(t, f.broadcaster.Events(), 1)
}

func TestIngestor_HandleRejectsBadPayload(t *testing.T) {
	f := newFixture(t)

	err := f.ingestor.Handle(models.Notification{MAC: "AA:00:00:00:00:01", Payload: []byte("loud")})
	assert.ErrorIs(t, err, beacon.ErrInvalidPayload)

	err = f.ingestor.Handle(models.Notification{Payload: []byte("-50")})
	assert.ErrorIs(t, err, beacon.ErrInvalidPayload)

	assert.True(t, f.readings.Empty())
	assert.Empty(t, f.broadcaster.Events())
}

func TestIngestor_UnknownBeaconNamedByMAC(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "CC:00:00:00:00:09", "-80", 0)

	events := f.broadcaster.Events()
	require.Len(t, events, 1)
	update := events[0].Data.(models.RSSIUpdate)
	assert.Equal(t, "CC:00:00:00:00:09", update.BeaconName)
	assert.Equal(t, beacon.UnknownLocation, update.Location)
}

func TestCollector_SaveFingerprint(t *testing.T) {
	f := newFixture(t)

	_, err := f.collector.SaveFingerprint(1, 2)
	assert.ErrorIs(t, err, ErrNoReadings)

	f.ingest(t, "AA:00:00:00:00:01", "-60", 5*time.Second)
	f.ingest(t, "AA:00:00:00:00:02", "-70", 45*time.Second)

	fp, err := f.collector.SaveFingerprint(1.5, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, fp.ID)
	assert.Equal(t, models.Point{X: 1.5, Y: 2}, fp.Location)
	assert.Equal(t, "2026-03-04 05:06:07", fp.Timestamp)
	assert.Equal(t, "station-1", fp.StationID)
	assert.Equal(t, map[string]models.BeaconReading{
		"beacon1": {MAC: "AA:00:00:00:00:01", RSSI: -60},
	}, fp.Readings)
	assert.Len(t, f.collector.Fingerprints(), 1)

	events := f.broadcaster.Events()
	assert.Equal(t, constants.EventSaved, events[len(events)-1].Type)
}

func TestCollector_SaveFingerprintAllStale(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", time.Minute)

	_, err := f.collector.SaveFingerprint(0, 0)
	require.ErrorIs(t, err, ErrNoRecentReadings)
	assert.Contains(t, err.Error(), "AA:00:00:00:00:01")
	assert.Equal(t, 0, f.fingerprints.Count())
}

func TestCollector_ClearFingerprints(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)
	_, err := f.collector.SaveFingerprint(0, 0)
	require.NoError(t, err)

	require.NoError(t, f.collector.ClearFingerprints())
	assert.Empty(t, f.collector.Fingerprints())

	events := f.broadcaster.Events()
	assert.Equal(t, constants.EventCleared, events[len(events)-1].Type)
}

func TestCollector_Export(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)
	_, err := f.collector.SaveFingerprint(3, 4)
	require.NoError(t, err)

	doc, name := f.collector.Export()
	assert.Equal(t, "fingerprints_20260304_050607.json", name)
	assert.Equal(t, 1, doc.ExportInfo.TotalFingerprints)
	assert.Equal(t, constants.ExportFormatVersion, doc.ExportInfo.FormatVersion)
	assert.Len(t, doc.ExportInfo.BeaconConfiguration, 3)
	assert.Equal(t, "station-1", doc.ExportInfo.StationID)

	data, name, err := f.collector.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, "fingerprints_20260304_050607.json", name)
	assert.Contains(t, string(data), `"total_fingerprints": 1`)
	assert.Contains(t, string(data), `"beacon_configuration"`)
}

func TestCollector_Import(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)
	_, err := f.collector.SaveFingerprint(0, 0)
	require.NoError(t, err)

	doc := models.Export{
		ExportInfo: models.ExportInfo{FormatVersion: "1.0.0"},
		Fingerprints: []models.Fingerprint{
			{Location: models.Point{X: 1, Y: 1}},
			{ID: "keep", Location: models.Point{X: 2, Y: 2}},
		},
	}

	res, err := f.collector.Import(doc, "")
	require.NoError(t, err)
	assert.Equal(t, models.ImportResult{Status: "success", Mode: "append", Imported: 2, Total: 3}, res)
	for _, fp := range f.collector.Fingerprints() {
		assert.NotEmpty(t, fp.ID)
	}

	res, err = f.collector.Import(doc, constants.ImportModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "keep", f.collector.Fingerprints()[1].ID)
}

func TestCollector_ImportRejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.collector.Import(models.Export{}, "merge")
	assert.ErrorIs(t, err, ErrInvalidImportMode)

	_, err = f.collector.Import(models.Export{ExportInfo: models.ExportInfo{FormatVersion: "2.0.0"}}, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = f.collector.Import(models.Export{ExportInfo: models.ExportInfo{FormatVersion: "not-a-version"}}, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	res, err := f.collector.Import(models.Export{Fingerprints: []models.Fingerprint{{}}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
}

func TestCollector_EstimatePosition(t *testing.T) {
	f := newFixture(t)

	// Readings matching a user at about (3, 4): distances 5, ~8.06, ~6.71.
	// RSSI = -59 - 20*log10(d)
	f.ingest(t, "AA:00:00:00:00:01", "-73", 0)
	f.ingest(t, "AA:00:00:00:00:02", "-77", 0)
	f.ingest(t, "AA:00:00:00:00:03", "-75", 0)

	pos, err := f.collector.EstimatePosition()
	require.NoError(t, err)
	assert.Equal(t, 3, pos.BeaconsUsed)
	assert.Equal(t, 100.0, pos.Confidence)
	assert.InDelta(t, 3, pos.X, 1.5)
	assert.InDelta(t, 4, pos.Y, 1.5)
	require.Len(t, pos.ClosestBeacons, 3)
	assert.Equal(t, "beacon1", pos.ClosestBeacons[0].Name)
	assert.LessOrEqual(t, pos.ClosestBeacons[0].Distance, pos.ClosestBeacons[1].Distance)
	assert.LessOrEqual(t, pos.ClosestBeacons[1].Distance, pos.ClosestBeacons[2].Distance)
}

func TestCollector_EstimatePositionNeedsThreeBeacons(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)
	f.ingest(t, "AA:00:00:00:00:02", "-60", 0)
	f.ingest(t, "AA:00:00:00:00:03", "-60", time.Minute)

	_, err := f.collector.EstimatePosition()
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestCollector_StatusAndDebug(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)

	status := f.collector.Status()
	assert.Equal(t, "Server is running", status.Status)
	assert.Equal(t, 3, status.BeaconsConfigured)

	info := f.collector.Debug(context.Background())
	assert.Equal(t, 3, info.BeaconsConfigured)
	assert.Equal(t, 1, info.BeaconsWithData)
	assert.Equal(t, 2, info.ConnectedClients)
	assert.Equal(t, "station-1", info.StationID)
	assert.Nil(t, info.System)
	assert.Equal(t, -60, info.CurrentRSSI["AA:00:00:00:00:01"].RSSI)
}

func TestParseGatewayLine(t *testing.T) {
	tests := []struct {
		line    string
		mac     string
		payload string
		wantErr bool
	}{
		{line: "aa:bb:cc:dd:ee:ff,-60", mac: "AA:BB:CC:DD:EE:FF", payload: "-60"},
		{line: "AA:BB:CC:DD:EE:FF user1:-70\r\n", mac: "AA:BB:CC:DD:EE:FF", payload: "user1:-70"},
		{line: "", wantErr: true},
		{line: "AA:BB:CC:DD:EE:FF", wantErr: true},
		{line: "AA:BB:CC:DD:EE:FF,", wantErr: true},
		{line: ",-60", wantErr: true},
	}

	for _, tt := range tests {
		mac, payload, err := parseGatewayLine(tt.line)
		if tt.wantErr {
			assert.ErrorIs(t, err, beacon.ErrInvalidPayload, tt.line)
			continue
		}
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.mac, mac)
		assert.Equal(t, tt.payload, payload)
	}
}

func TestMacFromTopic(t *testing.T) {
	mac, ok := macFromTopic("beacons/+/rssi", "beacons/aa:bb/rssi")
	assert.True(t, ok)
	assert.Equal(t, "AA:BB", mac)

	_, ok = macFromTopic("beacons/+/rssi", "beacons/aa:bb/rssi/extra")
	assert.False(t, ok)

	_, ok = macFromTopic("beacons/rssi", "beacons/rssi")
	assert.False(t, ok)
}

type mockSubscriber struct {
	mock.Mock
	handler mqttLib.MessageHandler
}

func (m *mockSubscriber) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	m.handler = callback
	args := m.Called(topic, qos)
	return args.Error(0)
}

func (m *mockSubscriber) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestMQTTIngestService_TopicWildcard(t *testing.T) {
	f := newFixture(t)

	sub := &mockSubscriber{}
	sub.On("Subscribe", "beacons/+/rssi", byte(1)).Return(nil)
	sub.On("Unsubscribe", []string{"beacons/+/rssi"}).Return(nil)

	svc := NewMQTTIngestService("beacons/+/rssi", 1, 2, sub, f.ingestor, zerolog.Nop())
	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start())

	sub.handler(nil, mocks.NewMockMessage("beacons/aa:00:00:00:00:01/rssi", []byte("-66")))
	sub.handler(nil, mocks.NewMockMessage("beacons/rssi", []byte("-66")))

	require.NoError(t, svc.Stop())
	assert.Error(t, svc.Stop())

	assert.Equal(t, 1, f.readings.Len())
	assert.Equal(t, -66, f.readings.All()["AA:00:00:00:00:01"].RSSI)
	sub.AssertExpectations(t)
}

func TestMQTTIngestService_GatewayLines(t *testing.T) {
	f := newFixture(t)

	sub := &mockSubscriber{}
	sub.On("Subscribe", "gateway/out", byte(0)).Return(nil)
	sub.On("Unsubscribe", []string{"gateway/out"}).Return(nil)

	svc := NewMQTTIngestService("gateway/out", 0, 1, sub, f.ingestor, zerolog.Nop())
	require.NoError(t, svc.Start())

	sub.handler(nil, mocks.NewMockMessage("gateway/out", []byte("AA:00:00:00:00:02,u1:-71")))
	sub.handler(nil, mocks.NewMockMessage("gateway/out", []byte("garbage")))

	require.NoError(t, svc.Stop())
	assert.Equal(t, -71, f.readings.All()["AA:00:00:00:00:02"].RSSI)
	require.Len(t, f.ingestor.Users(), 1)
}

func TestMQTTIngestService_SubscribeFailure(t *testing.T) {
	f := newFixture(t)

	sub := &mockSubscriber{}
	sub.On("Subscribe", "beacons/+/rssi", byte(0)).Return(errors.New("not connected"))

	svc := NewMQTTIngestService("beacons/+/rssi", 0, 1, sub, f.ingestor, zerolog.Nop())
	assert.EqualError(t, svc.Start(), "not connected")
	assert.Error(t, svc.Stop())
}

type fakePort struct {
	io.Reader
	closed chan struct{}
	once   sync.Once
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// blockingReader serves data and then blocks until the port is closed.
type blockingReader struct {
	data   *strings.Reader
	closed chan struct{}
}

func (r *blockingReader) Read(b []byte) (int, error) {
	if r.data.Len() > 0 {
		return r.data.Read(b)
	}
	<-r.closed
	return 0, io.EOF
}

func TestSerialIngestService_ReadsAndReconnects(t *testing.T) {
	f := newFixture(t)

	var (
		mu    sync.Mutex
		opens int
	)
	opener := func(name string, baud int) (io.ReadCloser, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		assert.Equal(t, "/dev/ttyUSB0", name)
		assert.Equal(t, 115200, baud)

		switch opens {
		case 1:
			return nil, errors.New("no such device")
		case 2:
			return io.NopCloser(strings.NewReader("AA:00:00:00:00:01,-61\nbad line\n")), nil
		default:
			closed := make(chan struct{})
			return &fakePort{
				Reader: &blockingReader{data: strings.NewReader("AA:00:00:00:00:03,-63\n"), closed: closed},
				closed: closed,
			}, nil
		}
	}

	svc := NewSerialIngestService("/dev/ttyUSB0", 115200, 10*time.Millisecond, opener, f.ingestor, zerolog.Nop())
	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start())

	assert.Eventually(t, func() bool { return f.readings.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop())
	assert.Error(t, svc.Stop())

	all := f.readings.All()
	assert.Equal(t, -61, all["AA:00:00:00:00:01"].RSSI)
	assert.Equal(t, -63, all["AA:00:00:00:00:03"].RSSI)

	mu.Lock()
	assert.Equal(t, 3, opens)
	mu.Unlock()
}

// Ports that fail at once keep the reconnect loop spinning while Stop runs.
func TestSerialIngestService_StopDuringReconnect(t *testing.T) {
	f := newFixture(t)

	opener := func(string, int) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	}

	svc := NewSerialIngestService("/dev/ttyUSB0", 115200, time.Microsecond, opener, f.ingestor, zerolog.Nop())
	for i := 0; i < 200; i++ {
		require.NoError(t, svc.Start())
		require.NoError(t, svc.Stop())
	}
}

func TestSummaryService(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "u1:-60", 0)

	svc := NewSummaryService(10*time.Millisecond, f.readings, f.ingestor, zerolog.Nop())
	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start())
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, svc.Stop())
	assert.Error(t, svc.Stop())

	assert.Error(t, NewSummaryService(0, f.readings, f.ingestor, zerolog.Nop()).Start())
}

func TestBackupService_Backup(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)
	_, err := f.collector.SaveFingerprint(1, 1)
	require.NoError(t, err)

	storage := &mocks.MockObjectStorage{}
	storage.On("Connect", mock.Anything, "minio:9000", "ak", "sk", false).Return(nil).Once()
	storage.On("UploadObject", mock.Anything, "fingerprints", "station-1/fingerprints_20260304_050607.json",
		mock.Anything, mock.AnythingOfType("int64"), "application/json").
		Return(s3.UploadInfo{Bucket: "fingerprints", Key: "station-1/fingerprints_20260304_050607.json", Size: 10}, nil)

	svc := NewBackupService(BackupOptions{
		Endpoint:  "minio:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "fingerprints",
	}, storage, f.collector, zerolog.Nop())

	require.NoError(t, svc.Start())
	info, err := svc.Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "station-1/fingerprints_20260304_050607.json", info.Key)
	require.NoError(t, svc.Stop())

	storage.AssertExpectations(t)
}

func TestBackupService_ConnectFailure(t *testing.T) {
	f := newFixture(t)

	storage := &mocks.MockObjectStorage{}
	storage.On("Connect", mock.Anything, "minio:9000", "", "", true).Return(errors.New("refused"))

	svc := NewBackupService(BackupOptions{Endpoint: "minio:9000", UseSSL: true, Bucket: "b"}, storage, f.collector, zerolog.Nop())
	assert.EqualError(t, svc.Start(), "refused")
	assert.Error(t, svc.Stop())

	_, err := svc.Backup(context.Background())
	assert.EqualError(t, err, "refused")
	storage.AssertNotCalled(t, "UploadObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBackupService_PeriodicSkipsUnchanged(t *testing.T) {
	f := newFixture(t)

	storage := &mocks.MockObjectStorage{}
	storage.On("Connect", mock.Anything, "minio:9000", "", "", false).Return(nil)
	storage.On("UploadObject", mock.Anything, "b", mock.Anything, mock.Anything, mock.Anything, "application/json").
		Return(s3.UploadInfo{Key: "k"}, nil)

	svc := NewBackupService(BackupOptions{Endpoint: "minio:9000", Bucket: "b", Interval: 10 * time.Millisecond},
		storage, f.collector, zerolog.Nop())
	require.NoError(t, svc.Start())
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, svc.Stop())

	storage.AssertNumberOfCalls(t, "UploadObject", 1)
}

func TestBackupService_PeriodicDetectsReplacedFingerprints(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "AA:00:00:00:00:01", "-60", 0)
	_, err := f.collector.SaveFingerprint(1, 1)
	require.NoError(t, err)

	var uploads atomic.Int32
	storage := &mocks.MockObjectStorage{}
	storage.On("Connect", mock.Anything, "minio:9000", "", "", false).Return(nil)
	storage.On("UploadObject", mock.Anything, "b", mock.Anything, mock.Anything, mock.Anything, "application/json").
		Run(func(mock.Arguments) { uploads.Add(1) }).
		Return(s3.UploadInfo{Key: "k"}, nil)

	svc := NewBackupService(BackupOptions{Endpoint: "minio:9000", Bucket: "b", Interval: 10 * time.Millisecond},
		storage, f.collector, zerolog.Nop())
	require.NoError(t, svc.Start())
	defer func() { _ = svc.Stop() }()

	assert.Eventually(t, func() bool { return uploads.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Same count, different content.
	require.NoError(t, f.collector.ClearFingerprints())
	_, err = f.collector.SaveFingerprint(2, 2)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return uploads.Load() == 2 }, time.Second, 5*time.Millisecond)
}
