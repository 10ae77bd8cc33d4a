package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	"WattCast/pkg/cache"
)

const notifyLockKey = "notify:reduce"

// Notifier shows a desktop notification.
type Notifier func(title, message string) error

// DesktopNotifier uses beeep for cross-platform notifications.
func DesktopNotifier(title, message string) error {
	return beeep.Notify(title, message, "")
}

// NotifySink raises a desktop notification when REDUCE is advised, at most
// once per cooldown. The cooldown lock lives in a cache.Service so several
// processes sharing Redis notify only once.
type NotifySink struct {
	notify   Notifier
	locks    cache.Service
	title    string
	cooldown time.Duration
}

func NewNotifySink(notify Notifier, locks cache.Service, title string, cooldown time.Duration) *NotifySink {
	if notify == nil {
		notify = DesktopNotifier
	}
	return &NotifySink{notify: notify, locks: locks, title: title, cooldown: cooldown}
}

func (s *NotifySink) Name() string { return "notify" }

func (s *NotifySink) Emit(ctx context.Context, r models.CycleReport) error {
	if r.Recommendation != models.RecommendReduce {
		return nil
	}
	if s.cooldown > 0 {
		ok, err := s.locks.TryLock(ctx, notifyLockKey, s.cooldown)
		if err != nil {
			return fmt.Errorf("notify cooldown: %w", err)
		}
		if !ok {
			return nil
		}
	}

	msg := fmt.Sprintf("Current usage %.2f kW is above %.2f kW. %s",
		r.Reading.Value, r.Threshold, r.Recommendation.Message())
	if r.Forecast.Present() {
		msg += fmt.Sprintf(" Forecast: %.2f kW.", r.Forecast.Value)
	}
	if err := s.notify(s.title, msg); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (s *NotifySink) Close() error { return nil }

var _ domrepo.OutputSink = (*NotifySink)(nil)
