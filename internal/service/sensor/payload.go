package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"WattCast/internal/domain/models"
	"WattCast/pkg/util"
)

// meterPayload is the JSON shape accepted from remote meters. Either value
// or power_kw carries the reading; timestamp may be RFC3339 or unix
// seconds/millis and defaults to the receive time.
type meterPayload struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Value     *float64        `json:"value"`
	PowerKW   *float64        `json:"power_kw"`
}

// decodeReading parses a meter message. A bare number is accepted as a
// value stamped with now. Range checks are left to the history store.
func decodeReading(b []byte, now time.Time) (models.Reading, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return models.Reading{}, fmt.Errorf("empty payload")
	}
	if b[0] != '{' {
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return models.Reading{}, fmt.Errorf("decode payload: %w", err)
		}
		return models.Reading{Timestamp: now, Value: v}, nil
	}

	var p meterPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return models.Reading{}, fmt.Errorf("decode payload: %w", err)
	}

	r := models.Reading{Timestamp: now}
	switch {
	case p.Value != nil:
		r.Value = *p.Value
	case p.PowerKW != nil:
		r.Value = *p.PowerKW
	default:
		return models.Reading{}, fmt.Errorf("payload has no value")
	}

	ts, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return models.Reading{}, err
	}
	if !ts.IsZero() {
		r.Timestamp = ts
	}
	return r, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
		}
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	return t, nil
}
