package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Loop.Interval != 5*time.Second || c.Loop.Threshold != 1.5 || c.Loop.MinSamples != 10 {
		t.Fatalf("loop defaults %+v", c.Loop)
	}
	if c.Sensor.Type != "simulated" || !c.Sinks.Stdout || c.Metrics.Path != "/metrics" {
		t.Fatalf("unexpected defaults")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
loop:
  interval: 2s
  threshold: 2.5
sensor:
  type: http
  http:
    url: http://meter.local/power
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Loop.Interval != 2*time.Second || c.Loop.Threshold != 2.5 {
		t.Fatalf("loop %+v", c.Loop)
	}
	if c.Loop.HorizonHours != 1 {
		t.Fatalf("unset fields keep defaults, horizon=%v", c.Loop.HorizonHours)
	}
	if c.Sensor.HTTP.URL != "http://meter.local/power" {
		t.Fatalf("url %q", c.Sensor.HTTP.URL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"http without url", "sensor:\n  type: http\n", "sensor.http.url"},
		{"unknown sensor", "sensor:\n  type: serial\n", "Type"},
		{"kafka sink without brokers", "sinks:\n  kafka: true\n", "kafka.brokers"},
		{"postgres without dsn", "sinks:\n  postgres: true\n", "postgres.dsn"},
		{"non-positive threshold", "loop:\n  threshold: -1\n", "Threshold"},
		{"ring below readiness gate", "loop:\n  min_samples: 10\n  max_samples: 5\n", "loop.max_samples"},
		{"window too short for readiness gate", "loop:\n  interval: 1m\n  min_samples: 10\n  max_window: 5m\n", "loop.max_window"},
	}
	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want mention of %q", tc.name, err, tc.want)
		}
	}
}

func TestValidate_HistoryBoundsMatchingGate(t *testing.T) {
	c := Default()
	c.Loop.MinSamples = 10
	c.Loop.MaxSamples = 10
	c.Loop.Interval = time.Minute
	c.Loop.MaxWindow = 9 * time.Minute
	if err := c.Validate(); err != nil {
		t.Fatalf("bounds exactly at the gate must validate: %v", err)
	}
	c.Loop.MaxSamples = 0
	c.Loop.MaxWindow = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("unbounded history must validate: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"WATTCAST_LOOP_INTERVAL":  "250ms",
		"WATTCAST_LOOP_THRESHOLD": "3",
		"WATTCAST_KAFKA_BROKERS":  "a:9092,b:9092",
		"WATTCAST_SENSOR_TYPE":    "mqtt",
	}
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if c.Loop.Interval != 250*time.Millisecond || c.Loop.Threshold != 3 || len(c.Kafka.Brokers) != 2 || c.Sensor.Type != "mqtt" {
		t.Fatalf("env not applied: %+v", c.Loop)
	}

	bad := Default()
	err := bad.applyEnv(func(k string) string {
		if k == "WATTCAST_LOOP_INTERVAL" {
			return "soon"
		}
		return ""
	})
	if err == nil {
		t.Fatalf("expected parse error")
	}
}
