package sensor

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	"WattCast/pkg/logger"
)

// MQTTConfig describes the broker and topic a smart meter publishes on.
type MQTTConfig struct {
	Broker     string
	Topic      string
	ClientID   string
	Username   string
	Password   string
	QoS        byte
	BufferSize int
	Timeout    time.Duration
}

// MQTT subscribes to a meter topic. The paho client reconnects on its own
// and resubscribes from the OnConnect handler.
type MQTT struct {
	client mqtt.Client
	cfg    MQTTConfig
	stream *stream
	log    *logger.Logger
}

func NewMQTT(cfg MQTTConfig, log *logger.Logger) (*MQTT, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	m := &MQTT{
		cfg:    cfg,
		stream: newStream(cfg.BufferSize),
		log:    log.With(logger.String("sensor", "mqtt"), logger.String("topic", cfg.Topic)),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			m.log.Warn("mqtt connection lost", logger.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", cfg.Broker, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return m, nil
}

func (m *MQTT) onConnect(c mqtt.Client) {
	token := c.Subscribe(m.cfg.Topic, m.cfg.QoS, m.onMessage)
	if token.WaitTimeout(m.cfg.Timeout) && token.Error() != nil {
		m.log.Error("mqtt subscribe failed", logger.Error(token.Error()))
		m.stream.fail(fmt.Errorf("mqtt subscribe %s: %w", m.cfg.Topic, token.Error()))
		return
	}
	m.log.Info("mqtt subscribed", logger.String("broker", m.cfg.Broker))
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	r, err := decodeReading(msg.Payload(), time.Now())
	if err != nil {
		m.log.Debug("mqtt message skipped", logger.Error(err))
		return
	}
	m.stream.push(r)
}

// Read returns the next reading published on the topic.
func (m *MQTT) Read(ctx context.Context) (models.Reading, error) {
	return m.stream.next(ctx)
}

func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		m.client.Unsubscribe(m.cfg.Topic).WaitTimeout(m.cfg.Timeout)
	}
	m.client.Disconnect(250)
	return nil
}

var _ domrepo.SensorSource = (*MQTT)(nil)
