package sensor

import (
	"context"
	"fmt"
	"time"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	httpx "WattCast/pkg/http"
)

// HTTPPoller fetches one reading per Read from a meter's HTTP endpoint.
type HTTPPoller struct {
	client  *httpx.Client
	url     string
	headers map[string]string
	now     func() time.Time
}

func NewHTTPPoller(url string, headers map[string]string, timeout time.Duration) *HTTPPoller {
	return &HTTPPoller{
		client:  httpx.NewClient(httpx.WithTimeout(timeout)),
		url:     url,
		headers: headers,
		now:     time.Now,
	}
}

func (p *HTTPPoller) Read(ctx context.Context) (models.Reading, error) {
	body, err := p.client.Fetch(ctx, p.url, p.headers)
	if err != nil {
		if ctx.Err() != nil {
			return models.Reading{}, ctx.Err()
		}
		return models.Reading{}, fmt.Errorf("%w: poll %s: %v", models.ErrSensorUnavailable, p.url, err)
	}

	r, err := decodeReading(body, p.now())
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: %v", models.ErrSensorUnavailable, err)
	}
	return r, nil
}

func (p *HTTPPoller) Close() error { return nil }

var _ domrepo.SensorSource = (*HTTPPoller)(nil)
