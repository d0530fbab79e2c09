package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pressuredash/internal/config"
	"pressuredash/internal/modules/pressure/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// StatsMessage is the payload published for every new snapshot.
type StatsMessage struct {
	SnapshotID   string      `json:"snapshot_id"`
	Sensor       string      `json:"sensor"`
	FetchedAt    time.Time   `json:"fetched_at"`
	ReadingCount int         `json:"reading_count"`
	Stats        types.Stats `json:"stats"`
}

// Publisher publishes snapshot statistics to an MQTT broker.
type Publisher struct {
	client      mqtt.Client
	cfg         config.Config
	logger      *slog.Logger
	mu          sync.RWMutex
	connected   bool
	topicPrefix string

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		cfg:         cfg,
		logger:      logger,
		topicPrefix: cfg.MQTTTopicPrefix,
		stopCh:      make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the initial connection and respects ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// StatsTopic returns the topic stats of sensor are published to.
func StatsTopic(prefix, sensor string) string {
	if prefix == "" {
		return fmt.Sprintf("%s/stats", sensor)
	}
	return fmt.Sprintf("%s/%s/stats", prefix, sensor)
}

// NewStatsMessage builds the published payload of snap.
func NewStatsMessage(snap *types.Snapshot) StatsMessage {
	return StatsMessage{
		SnapshotID:   snap.ID,
		Sensor:       snap.Sensor,
		FetchedAt:    snap.FetchedAt,
		ReadingCount: len(snap.Readings),
		Stats:        snap.Stats,
	}
}

// PublishSnapshot publishes the stats of snap as a retained message, so
// late subscribers get the latest summary right away.
func (p *Publisher) PublishSnapshot(snap *types.Snapshot) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	topic := StatsTopic(p.topicPrefix, snap.Sensor)
	data, err := json.Marshal(NewStatsMessage(snap))
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	token := p.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish stats: %w", token.Error())
	}

	p.logger.Debug("published stats", "topic", topic, "snapshot_id", snap.ID)
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. Safe to call more than once; Connect
// fails afterwards.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
