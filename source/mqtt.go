package source

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/danielorbach/go-component"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT connection defaults.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultSubscribeWait  = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	// disconnectQuiesce is the time, in milliseconds, paho waits for pending work
	// when disconnecting.
	disconnectQuiesce = 250
)

// ErrConnectionFailed is returned when the broker cannot be reached.
var ErrConnectionFailed = errors.New("source: mqtt connection failed")

// MQTTConfig configures the MQTT feeder.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the subscription filter, e.g. twins/+/+/+.
	Topic string
	QoS   byte
	// TopicPrefix, when set, lets raw payloads be published on
	// <prefix>/<entityId>/<componentName>/<propertyName>; the payload is then the
	// bare value.
	TopicPrefix string
}

// MQTT subscribes to a broker topic and records the readings it receives.
type MQTT struct {
	cfg    MQTTConfig
	client pahomqtt.Client
	rec    Recorder
	now    func() time.Time
	log    *slog.Logger
}

// NewMQTT returns an unconnected MQTT feeder recording into rec.
func NewMQTT(cfg MQTTConfig, rec Recorder) *MQTT {
	return &MQTT{cfg: cfg, rec: rec, now: time.Now, log: slog.Default()}
}

func (m *MQTT) clientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(m.cfg.Broker)
	opts.SetClientID(m.cfg.ClientID)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	// Subscriptions are not persisted with a clean session, so restore ours on
	// every (re)connect.
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		if token := c.Subscribe(m.cfg.Topic, m.cfg.QoS, m.onMessage); token.WaitTimeout(defaultSubscribeWait) && token.Error() != nil {
			m.log.Error("MQTT resubscribe failed", "topic", m.cfg.Topic, "error", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		m.log.Warn("MQTT connection lost", "error", err)
	})
	return opts
}

// Connect connects to the broker and subscribes to the configured topic.
func (m *MQTT) Connect() error {
	m.client = pahomqtt.NewClient(m.clientOptions())
	token := m.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// Close unsubscribes and disconnects.
func (m *MQTT) Close() {
	if m.client == nil || !m.client.IsConnected() {
		return
	}
	m.client.Unsubscribe(m.cfg.Topic).WaitTimeout(defaultSubscribeWait)
	m.client.Disconnect(disconnectQuiesce)
}

// Proc returns a component.Proc that connects, feeds readings until the
// component stops, and disconnects.
func (m *MQTT) Proc() component.Proc {
	return func(l *component.L) {
		m.log = component.Logger(l.Context()).With("broker", m.cfg.Broker, "topic", m.cfg.Topic)
		if err := m.Connect(); err != nil {
			l.Fatal(err)
		}
		defer m.Close()
		m.log.Info("MQTT feeder connected")
		<-l.GraceContext().Done()
	}
}

func (m *MQTT) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	// paho runs handlers on its own goroutines; a panic there would take the
	// process down.
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("MQTT handler panic", "topic", msg.Topic(), "panic", r)
		}
	}()
	if err := m.handle(msg.Topic(), msg.Payload()); err != nil {
		m.log.Warn("Dropping telemetry message", "topic", msg.Topic(), "error", err)
	}
}

// handle records the readings carried by one message.
func (m *MQTT) handle(topic string, payload []byte) error {
	if r, ok := m.topicReading(topic, payload); ok {
		return r.Record(m.rec, m.now())
	}
	readings, err := DecodeReadings(payload)
	if err != nil {
		return err
	}
	return recordAll(m.rec, readings, m.now())
}

// topicReading interprets a raw payload published under TopicPrefix.
func (m *MQTT) topicReading(topic string, payload []byte) (Reading, bool) {
	if m.cfg.TopicPrefix == "" {
		return Reading{}, false
	}
	rest, ok := strings.CutPrefix(topic, strings.TrimSuffix(m.cfg.TopicPrefix, "/")+"/")
	if !ok {
		return Reading{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return Reading{}, false
	}
	return Reading{
		EntityID:      parts[0],
		ComponentName: parts[1],
		PropertyName:  parts[2],
		Value:         parseRaw(strings.TrimSpace(string(payload))),
	}, true
}

// parseRaw turns a bare payload into a number, a boolean or a string.
func parseRaw(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
