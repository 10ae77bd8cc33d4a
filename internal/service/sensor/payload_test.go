package sensor

import (
	"testing"
	"time"
)

func TestDecodeReading(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stamp := time.Date(2025, 3, 1, 11, 59, 30, 0, time.UTC)

	cases := []struct {
		name    string
		in      string
		wantTS  time.Time
		wantVal float64
		wantErr bool
	}{
		{"bare number", " 1.25\n", now, 1.25, false},
		{"value rfc3339", `{"timestamp":"2025-03-01T11:59:30Z","value":0.8}`, stamp, 0.8, false},
		{"power_kw unix seconds", `{"timestamp":1740830370,"power_kw":1.9}`, stamp, 1.9, false},
		{"unix millis string", `{"timestamp":"1740830370000","value":2}`, stamp, 2, false},
		{"no timestamp", `{"value":0.3}`, now, 0.3, false},
		{"null timestamp", `{"timestamp":null,"value":0.3}`, now, 0.3, false},
		{"negative passes decoding", `{"value":-1}`, now, -1, false},
		{"missing value", `{"timestamp":"2025-03-01T11:59:30Z"}`, time.Time{}, 0, true},
		{"bad timestamp", `{"timestamp":"yesterday","value":1}`, time.Time{}, 0, true},
		{"garbage", `kW=1.2`, time.Time{}, 0, true},
		{"empty", ``, time.Time{}, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := decodeReading([]byte(c.in), now)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !r.Timestamp.Equal(c.wantTS) || r.Value != c.wantVal {
				t.Fatalf("got %v %v, want %v %v", r.Timestamp, r.Value, c.wantTS, c.wantVal)
			}
		})
	}
}
