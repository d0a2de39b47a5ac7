package push

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"assetwatch/asset"
	"assetwatch/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client maintains a persistent MQTT connection to the workspace event
// broker, subscribes to the configured topic filter, and converts JSON
// messages into Events on a buffered channel. Sends never block: when the
// consumer falls behind, events are dropped and counted.
type Client struct {
	broker    string
	port      int
	topic     string
	client    mqtt.Client
	deduper   *Deduper
	eventChan chan Event
	shutdown  chan struct{}

	lastMessageAt atomic.Int64
	parseErrors   atomic.Uint64
	deduped       atomic.Uint64
	drops         atomic.Uint64
}

// NewClient creates a push client; Connect starts the subscription.
func NewClient(cfg config.PushConfig) *Client {
	return &Client{
		broker:    cfg.Broker,
		port:      cfg.Port,
		topic:     cfg.Topic,
		deduper:   NewDeduper(time.Duration(cfg.DedupeSeconds) * time.Second),
		eventChan: make(chan Event, 1000),
		shutdown:  make(chan struct{}),
	}
}

// Connect establishes the broker connection with auto-reconnect.
func (c *Client) Connect() error {
	opts := mqtt.NewClientOptions()
	brokerURL := fmt.Sprintf("tcp://%s:%d", c.broker, c.port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("assetwatch-%d", time.Now().Unix()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = mqtt.NewClient(opts)
	c.deduper.Start()

	log.Printf("Push: connecting to event broker at %s...", brokerURL)
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("push: connect: %w", token.Error())
	}
	return nil
}

func (c *Client) onConnect(client mqtt.Client) {
	log.Printf("Push: connected, subscribing to topic: %s", c.topic)
	token := client.Subscribe(c.topic, 0, c.messageHandler)
	if token.Wait() && token.Error() != nil {
		log.Printf("Push: subscribe failed: %v", token.Error())
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("Push: connection lost: %v (auto-reconnect active)", err)
}

func (c *Client) messageHandler(client mqtt.Client, msg mqtt.Message) {
	c.lastMessageAt.Store(time.Now().UnixNano())
	event, ok := c.decode(msg.Payload())
	if !ok {
		return
	}
	if !c.deduper.ShouldAccept(event, time.Now().UTC()) {
		c.deduped.Add(1)
		return
	}
	select {
	case c.eventChan <- event:
	default:
		c.drops.Add(1)
	}
}

func (c *Client) decode(payload []byte) (Event, bool) {
	var we wireEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		c.parseErrors.Add(1)
		log.Printf("Push: failed to parse event: %v", err)
		return Event{}, false
	}
	if len(we.Key) == 0 || we.Type == "" {
		c.parseErrors.Add(1)
		return Event{}, false
	}
	event := Event{
		Key:   asset.Key(we.Key),
		Type:  EventType(we.Type),
		RunID: we.RunID,
	}
	if we.Unix > 0 {
		event.Time = time.Unix(we.Unix, 0).UTC()
	} else {
		event.Time = time.Now().UTC()
	}
	return event, true
}

// Events returns the channel of accepted events.
func (c *Client) Events() <-chan Event {
	return c.eventChan
}

// IsConnected reports broker connectivity.
func (c *Client) IsConnected() bool {
	return c != nil && c.client != nil && c.client.IsConnected()
}

// HealthSnapshot summarizes client activity for the health monitor.
type HealthSnapshot struct {
	Connected     bool
	LastMessageAt time.Time
	ParseErrors   uint64
	Deduped       uint64
	Drops         uint64
	QueueLen      int
	QueueCap      int
}

// Health returns a copy of the client's counters.
func (c *Client) Health() HealthSnapshot {
	if c == nil {
		return HealthSnapshot{}
	}
	snap := HealthSnapshot{
		Connected:   c.IsConnected(),
		ParseErrors: c.parseErrors.Load(),
		Deduped:     c.deduped.Load(),
		Drops:       c.drops.Load(),
		QueueLen:    len(c.eventChan),
		QueueCap:    cap(c.eventChan),
	}
	if ns := c.lastMessageAt.Load(); ns > 0 {
		snap.LastMessageAt = time.Unix(0, ns).UTC()
	}
	return snap
}

// Stop unsubscribes and disconnects.
func (c *Client) Stop() {
	if c == nil {
		return
	}
	if c.client != nil && c.client.IsConnected() {
		c.client.Unsubscribe(c.topic)
		c.client.Disconnect(250)
	}
	c.deduper.Stop()
	close(c.shutdown)
}
