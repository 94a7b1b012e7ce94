// Package scheduler периодически проверяет просроченные продления и
// публикует не больше одного напоминания в сутки.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subify/internal/lib/metrics"
	"github.com/magabrotheeeer/subify/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/subscription"
	"github.com/magabrotheeeer/subify/internal/storage"
)

// StateLoader читает сохраненное состояние.
type StateLoader interface {
	Load(ctx context.Context) (*models.State, error)
}

// Deduper атомарно занимает ключ, если он свободен.
type Deduper interface {
	SetIfAbsent(key string, value any, expiration time.Duration) (bool, error)
	Invalidate(key string) error
}

// Publisher публикует сообщение в очередь уведомлений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Result итог одного прохода планировщика.
type Result string

// Результаты прохода.
const (
	ResultSent       Result = "sent"
	ResultDisabled   Result = "disabled"
	ResultNothingDue Result = "nothing_due"
	ResultDuplicate  Result = "duplicate"
)

// SchedulerService собирает напоминания о просроченных продлениях.
type SchedulerService struct {
	repo      StateLoader
	cache     Deduper
	publisher Publisher
	log       *slog.Logger
	dedupeTTL time.Duration
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo StateLoader, cache Deduper, publisher Publisher, log *slog.Logger, dedupeTTL time.Duration) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		dedupeTTL: dedupeTTL,
		now:       time.Now,
	}
}

// ReminderKey ключ в кеше, отмечающий отправку напоминания за день.
func ReminderKey(day models.Date) string {
	return "reminder:" + day.String()
}

// Run выполняет проход сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	s.runOnceLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnceLogged(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SchedulerService) runOnceLogged(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error("reminder pass failed", sl.Err(err))
		return
	}
	s.log.Info("reminder pass finished", slog.String("result", string(res)))
}

// RunOnce проверяет состояние и при необходимости публикует напоминание.
func (s *SchedulerService) RunOnce(ctx context.Context) (Result, error) {
	const op = "scheduler.RunOnce"

	state, err := s.repo.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return ResultNothingDue, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !state.Profile.NotificationsEnabled {
		return ResultDisabled, nil
	}

	today := models.DateOf(s.now())
	due := subscription.OverdueAsOf(state.Subscriptions, today)
	if len(due) == 0 {
		return ResultNothingDue, nil
	}

	key := ReminderKey(today)
	first, err := s.cache.SetIfAbsent(key, len(due), s.dedupeTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !first {
		return ResultDuplicate, nil
	}

	reminder := BuildReminder(state.Profile, due, today)
	if err := s.publisher.Publish(rabbitmq.ReminderRoutingKey, reminder); err != nil {
		// Ключ освобождается, чтобы следующий проход за день повторил отправку.
		if invErr := s.cache.Invalidate(key); invErr != nil {
			s.log.Error("failed to release reminder key", slog.String("key", key), sl.Err(invErr))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	metrics.RemindersPublished.Inc()
	s.log.Info("reminder published", slog.Int("count", len(due)))
	return ResultSent, nil
}

// BuildReminder собирает сообщение по списку просроченных подписок.
func BuildReminder(profile models.UserProfile, due []models.Subscription, asOf models.Date) models.Reminder {
	items := make([]models.ReminderItem, 0, len(due))
	for _, sub := range due {
		items = append(items, models.ReminderItem{
			Name:            sub.Name,
			Price:           sub.Price,
			Currency:        sub.Currency,
			NextRenewalDate: sub.NextRenewalDate,
		})
	}
	return models.Reminder{
		Email: profile.Email,
		Name:  profile.Name,
		AsOf:  asOf,
		Items: items,
	}
}
