package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	"WattCast/pkg/cache"
)

const latestReportKey = "report:latest"

// CacheReportStore keeps the last emitted report in a cache.Service so the
// HTTP API can serve it without touching loop state. It is also an
// OutputSink, which is how it receives reports.
type CacheReportStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheReportStore(c cache.Service, ttl time.Duration) *CacheReportStore {
	return &CacheReportStore{cache: c, ttl: ttl}
}

func (s *CacheReportStore) SaveLatest(ctx context.Context, r models.CycleReport) error {
	if err := s.cache.Set(ctx, latestReportKey, r, s.ttl); err != nil {
		return fmt.Errorf("save latest report: %w", err)
	}
	return nil
}

func (s *CacheReportStore) Latest(ctx context.Context) (models.CycleReport, bool, error) {
	var r models.CycleReport
	if err := s.cache.Get(ctx, latestReportKey, &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.CycleReport{}, false, nil
		}
		return models.CycleReport{}, false, fmt.Errorf("load latest report: %w", err)
	}
	return r, true, nil
}

func (s *CacheReportStore) Name() string { return "report_store" }

func (s *CacheReportStore) Emit(ctx context.Context, r models.CycleReport) error {
	return s.SaveLatest(ctx, r)
}

// Close is a no-op; the cache is owned by the caller.
func (s *CacheReportStore) Close() error { return nil }

var (
	_ domrepo.ReportStore = (*CacheReportStore)(nil)
	_ domrepo.OutputSink  = (*CacheReportStore)(nil)
)
