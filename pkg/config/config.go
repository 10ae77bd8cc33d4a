package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stderr"`
		// Aggregated warn/error logs shipped to Kafka.
		Collector struct {
			Enabled  bool          `yaml:"enabled"`
			Topic    string        `yaml:"topic" default:"wattcast.logs"`
			Interval time.Duration `yaml:"interval" default:"30s"`
			MaxCount int           `yaml:"max_count" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`

	Loop struct {
		Interval     time.Duration `yaml:"interval" default:"5s" validate:"gt=0"`
		Threshold    float64       `yaml:"threshold" default:"1.5" validate:"gt=0"`
		HorizonHours float64       `yaml:"horizon_hours" default:"1" validate:"gt=0"`
		MinSamples   int           `yaml:"min_samples" default:"10" validate:"gte=2"`
		// 0 disables the bound.
		MaxSamples int           `yaml:"max_samples" default:"1440" validate:"gte=0"`
		MaxWindow  time.Duration `yaml:"max_window" default:"24h" validate:"gte=0"`
	} `yaml:"loop"`

	Sensor struct {
		Type    string        `yaml:"type" default:"simulated" validate:"oneof=simulated http websocket mqtt kafka"`
		Timeout time.Duration `yaml:"timeout" default:"5s" validate:"gt=0"`

		Simulated struct {
			Min  float64 `yaml:"min" default:"0.5" validate:"gte=0"`
			Max  float64 `yaml:"max" default:"2.0" validate:"gtfield=Min"`
			Seed int64   `yaml:"seed"`
		} `yaml:"simulated"`

		HTTP struct {
			URL     string            `yaml:"url"`
			Headers map[string]string `yaml:"headers"`
		} `yaml:"http"`

		WebSocket struct {
			URL            string        `yaml:"url"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"2s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
			BufferSize     int           `yaml:"buffer_size" default:"64" validate:"gt=0"`
		} `yaml:"websocket"`

		MQTT struct {
			Broker     string `yaml:"broker"`
			Topic      string `yaml:"topic" default:"home/meter/power"`
			ClientID   string `yaml:"client_id" default:"wattcast"`
			Username   string `yaml:"username"`
			Password   string `yaml:"password"`
			QoS        byte   `yaml:"qos" default:"1" validate:"lte=2"`
			BufferSize int    `yaml:"buffer_size" default:"64" validate:"gt=0"`
		} `yaml:"mqtt"`

		Kafka struct {
			Topic      string `yaml:"topic" default:"wattcast.readings"`
			GroupID    string `yaml:"group_id" default:"wattcast"`
			BufferSize int    `yaml:"buffer_size" default:"64" validate:"gt=0"`
		} `yaml:"kafka"`
	} `yaml:"sensor"`

	Sinks struct {
		Stdout     bool `yaml:"stdout" default:"true"`
		Kafka      bool `yaml:"kafka"`
		ClickHouse bool `yaml:"clickhouse"`
		Postgres   bool `yaml:"postgres"`
		Redis      bool `yaml:"redis"`
		Notify     bool `yaml:"notify"`
		// Buffered sinks retry failed emits in the background.
		BufferSize int `yaml:"buffer_size" default:"256" validate:"gt=0"`
	} `yaml:"sinks"`

	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       float64       `yaml:"rate_limit" default:"20"` // requests per second per client
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ReportTopic  string   `yaml:"report_topic" default:"wattcast.reports"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			MinBytes int           `yaml:"min_bytes" default:"1"`
			MaxBytes int           `yaml:"max_bytes" default:"1048576"`
			MaxWait  time.Duration `yaml:"max_wait" default:"500ms"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"wattcast"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		AsyncInsert bool          `yaml:"async_insert" default:"true"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Postgres struct {
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns" default:"4"`
	} `yaml:"postgres"`

	Redis struct {
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"wattcast"`
		TTL      time.Duration `yaml:"ttl" default:"1h"`
	} `yaml:"redis"`

	Notify struct {
		Title    string        `yaml:"title" default:"WattCast"`
		Cooldown time.Duration `yaml:"cooldown" default:"15m"`
	} `yaml:"notify"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// tags are static; a failure here is a programming error
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("WATTCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("WATTCAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("WATTCAST_SENSOR_TYPE"); v != "" {
		c.Sensor.Type = v
	}
	if v := getenv("WATTCAST_LOOP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WATTCAST_LOOP_INTERVAL: %w", err)
		}
		c.Loop.Interval = d
	}
	if v := getenv("WATTCAST_LOOP_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("WATTCAST_LOOP_THRESHOLD: %w", err)
		}
		c.Loop.Threshold = f
	}
	if v := getenv("WATTCAST_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("WATTCAST_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	return nil
}

// Validate checks struct tags and the cross-section rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	// bounds tighter than the readiness gate would never allow a forecast
	if c.Loop.MaxSamples > 0 && c.Loop.MaxSamples < c.Loop.MinSamples {
		return fmt.Errorf("loop.max_samples (%d) must be 0 or at least loop.min_samples (%d)", c.Loop.MaxSamples, c.Loop.MinSamples)
	}
	if need := c.Loop.Interval * time.Duration(c.Loop.MinSamples-1); c.Loop.MaxWindow > 0 && c.Loop.MaxWindow < need {
		return fmt.Errorf("loop.max_window (%s) must be 0 or at least %s to hold loop.min_samples readings", c.Loop.MaxWindow, need)
	}

	switch c.Sensor.Type {
	case "http":
		if c.Sensor.HTTP.URL == "" {
			return fmt.Errorf("sensor.http.url is required for sensor type http")
		}
	case "websocket":
		if c.Sensor.WebSocket.URL == "" {
			return fmt.Errorf("sensor.websocket.url is required for sensor type websocket")
		}
	case "mqtt":
		if c.Sensor.MQTT.Broker == "" {
			return fmt.Errorf("sensor.mqtt.broker is required for sensor type mqtt")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for sensor type kafka")
		}
	}

	if (c.Sinks.Kafka || c.Log.Collector.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when the kafka sink or log collector is enabled")
	}
	if c.Sinks.Postgres && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when the postgres sink is enabled")
	}
	return nil
}

// NeedsKafkaProducer reports whether any component publishes to Kafka.
func (c *Config) NeedsKafkaProducer() bool {
	return c.Sinks.Kafka || c.Log.Collector.Enabled
}
