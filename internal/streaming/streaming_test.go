package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomguard/internal/domain/models"
	"ransomguard/pkg/logger"
)

func testEvent(risk models.RiskLevel, prediction string, scanID int64) *ScanEvent {
	return &ScanEvent{
		ID:         "evt",
		Type:       EventTypeScanCompleted,
		ScanID:     scanID,
		Prediction: prediction,
		RiskLevel:  risk,
	}
}

func TestSubscription_Matches(t *testing.T) {
	tests := []struct {
		name  string
		sub   Subscription
		event *ScanEvent
		want  bool
	}{
		{"empty matches all", Subscription{}, testEvent(models.RiskLevelLow, "Benign", 1), true},
		{"below min risk", Subscription{MinRisk: models.RiskLevelMedium}, testEvent(models.RiskLevelLow, "Benign", 1), false},
		{"at min risk", Subscription{MinRisk: models.RiskLevelMedium}, testEvent(models.RiskLevelMedium, "Malware", 1), true},
		{"above min risk", Subscription{MinRisk: "medium"}, testEvent(models.RiskLevelHigh, "Malware", 1), true},
		{"unknown min risk ignored", Subscription{MinRisk: "extreme"}, testEvent(models.RiskLevelLow, "Benign", 1), true},
		{"prediction match", Subscription{Predictions: []string{"malware"}}, testEvent(models.RiskLevelHigh, "Malware", 1), true},
		{"prediction miss", Subscription{Predictions: []string{"Malware"}}, testEvent(models.RiskLevelHigh, "Benign", 1), false},
		{"persisted only", Subscription{PersistedOnly: true}, testEvent(models.RiskLevelHigh, "Malware", 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.Matches(tt.event))
		})
	}
}

func TestScanSubject(t *testing.T) {
	assert.Equal(t, "scans.high.malware", scanSubject("scans", testEvent(models.RiskLevelHigh, "Malware", 1)))
	assert.Equal(t, "scans.low.benign", scanSubject("scans", testEvent(models.RiskLevelLow, "Benign", 1)))
	assert.Equal(t, "scans.unknown.unknown", scanSubject("scans", testEvent("", "", 1)))
	assert.Equal(t, "scans.medium.trojan_gen", scanSubject("scans", testEvent(models.RiskLevelMedium, "Trojan.Gen", 1)))
}

func TestNewScanEvent(t *testing.T) {
	scan := &models.ScanResult{
		ID:                 7,
		FileName:           "invoice.exe",
		Prediction:         models.LabelMalware,
		Confidence:         93,
		MalwareProbability: 93,
		RiskLevel:          models.RiskLevelHigh,
		Recommendation:     models.RecommendationQuarantine,
	}

	event := NewScanEvent(scan, "abc123")
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventTypeScanCompleted, event.Type)
	assert.Equal(t, int64(7), event.ScanID)
	assert.Equal(t, "invoice.exe", event.FileName)
	assert.Equal(t, models.RiskLevelHigh, event.RiskLevel)
	assert.Equal(t, "abc123", event.ModelVersion)
}

func TestEventBus_LocalDelivery(t *testing.T) {
	bus := NewEventBus(nil, logger.NewNop())
	defer bus.Close()

	all, unsubAll := bus.Subscribe(nil)
	defer unsubAll()
	high, unsubHigh := bus.Subscribe(&Subscription{MinRisk: models.RiskLevelHigh})
	defer unsubHigh()
	assert.Equal(t, 2, bus.SubscriberCount())
	assert.False(t, bus.NATSConnected())

	require.NoError(t, bus.Publish(context.Background(), testEvent(models.RiskLevelLow, "Benign", 1)))
	require.NoError(t, bus.Publish(context.Background(), testEvent(models.RiskLevelHigh, "Malware", 2)))

	got := <-all
	assert.Equal(t, int64(1), got.ScanID)
	got = <-all
	assert.Equal(t, int64(2), got.ScanID)

	got = <-high
	assert.Equal(t, int64(2), got.ScanID)
	assert.Empty(t, high)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(nil, logger.NewNop())

	ch, unsubscribe := bus.Subscribe(nil)
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, bus.SubscriberCount())

	bus.Close()
	late, _ := bus.Subscribe(nil)
	_, ok = <-late
	assert.False(t, ok)
}

func TestEventBusPublisher(t *testing.T) {
	bus := NewEventBus(nil, logger.NewNop())
	defer bus.Close()
	pub := NewEventBusPublisher(bus)

	ch, unsubscribe := bus.Subscribe(nil)
	defer unsubscribe()

	verdict := &models.Verdict{Prediction: "Benign", RiskLevel: models.RiskLevelLow}
	require.NoError(t, pub.PublishQuickScan(context.Background(), "benign", verdict, "v1"))

	event := <-ch
	assert.Equal(t, EventTypeQuickScan, event.Type)
	assert.Equal(t, "benign", event.FileName)
	assert.Zero(t, event.ScanID)

	// without NATS reload events go nowhere, but never fail
	assert.NoError(t, pub.PublishModelReload(context.Background(), "v2", 18, nil))
	assert.NoError(t, NewEventBusPublisher(nil).PublishScan(context.Background(), &models.ScanResult{}, ""))
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	bus := NewEventBus(nil, logger.NewNop())
	hub := NewWebSocketHub(bus, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?min_risk=medium"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, testEvent(models.RiskLevelLow, "Benign", 1)))
	require.NoError(t, bus.Publish(ctx, testEvent(models.RiskLevelHigh, "Malware", 2)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, string(EventTypeScanCompleted), msg.Type)

	var event ScanEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, int64(2), event.ScanID)
	assert.Equal(t, models.RiskLevelHigh, event.RiskLevel)

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
