// Package subscription содержит хранилище подписок в памяти: единственного
// владельца профиля и списка подписок. Все изменения проходят через одну точку
// входа и после каждого изменения состояние целиком сохраняется через Persister.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subify/internal/lib/cycle"
	"github.com/magabrotheeeer/subify/internal/lib/metrics"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/plan"
	"github.com/magabrotheeeer/subify/internal/storage"
)

// ErrNotFound подписка с таким id отсутствует.
var ErrNotFound = errors.New("subscription not found")

// errUnchanged внутренний сигнал apply: изменение не требуется.
var errUnchanged = errors.New("unchanged")

// Persister определяет загрузку и сохранение полного состояния.
type Persister interface {
	// Load возвращает сохраненное состояние, storage.ErrNotFound если его нет,
	// storage.ErrMalformed если его не удалось разобрать.
	Load(ctx context.Context) (*models.State, error)
	// Save сохраняет состояние целиком.
	Save(ctx context.Context, state models.State) error
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов подписок.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store владеет состоянием приложения.
type Store struct {
	mu     sync.Mutex
	state  models.State
	repo   Persister
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
	onBase func(models.Currency)
}

// New создает Store и загружает начальное состояние. Если состояния нет
// или оно испорчено, используются демонстрационные данные.
func New(ctx context.Context, repo Persister, log *slog.Logger, opts ...Option) (*Store, error) {
	const op = "subscription.New"

	s := &Store{
		repo:  repo,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := repo.Load(ctx)
	switch {
	case err == nil:
		s.state = models.Normalize(*loaded, s.today())
		log.Info("state loaded", slog.Int("subscriptions", len(s.state.Subscriptions)))
	case errors.Is(err, storage.ErrNotFound):
		s.state = models.SampleState()
		log.Info("no stored state, using sample data")
	case errors.Is(err, storage.ErrMalformed):
		s.state = models.SampleState()
		log.Warn("stored state is malformed, using sample data", sl.Err(err))
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// OnBaseChange регистрирует fn, которая вызывается после каждого изменения,
// сменившего базовую валюту профиля. fn вызывается под блокировкой Store
// и не должна обращаться к нему.
func (s *Store) OnBaseChange(fn func(models.Currency)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBase = fn
}

func (s *Store) today() models.Date {
	return models.DateOf(s.now())
}

// apply единственная точка изменения состояния: fn получает копию,
// при успехе копия становится текущим состоянием и сохраняется.
// Ошибка сохранения только логируется.
func (s *Store) apply(ctx context.Context, op string, fn func(st *models.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	prevBase := s.state.Profile.Currency
	s.state = next
	if s.onBase != nil && next.Profile.Currency != prevBase {
		s.onBase(next.Profile.Currency)
	}

	if err := s.repo.Save(context.WithoutCancel(ctx), next); err != nil {
		metrics.PersistFailures.Inc()
		s.log.Error("failed to persist state", slog.String("op", op), sl.Err(err))
	}
	return nil
}

func indexOf(subs []models.Subscription, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

// Add добавляет подписку. На бесплатном плане при исчерпанном лимите
// возвращает *plan.DeniedError с plan.ErrLimitReached.
func (s *Store) Add(ctx context.Context, n models.NewSubscription) (models.Subscription, error) {
	const op = "subscription.Store.Add"

	var added models.Subscription
	err := s.apply(ctx, op, func(st *models.State) error {
		if err := plan.CheckAdd(st.Profile.Plan, len(st.Subscriptions)); err != nil {
			return err
		}
		added = models.Subscription{
			ID:              s.newID(),
			Name:            n.Name,
			Price:           n.Price,
			Currency:        n.Currency,
			Cycle:           n.Cycle,
			Category:        n.Category,
			NextRenewalDate: n.NextRenewalDate,
			LastUsedDate:    n.LastUsedDate,
			LogoURL:         n.LogoURL,
			SharedWith:      max(n.SharedWith, 0),
			PaymentHistory:  []models.PaymentRecord{},
		}
		st.Subscriptions = append(st.Subscriptions, added)
		return nil
	})
	if err != nil {
		return models.Subscription{}, err
	}
	s.log.Info("subscription added", slog.String("id", added.ID), slog.String("name", added.Name))
	return added.Clone(), nil
}

// Update переносит в подписку поля патча.
func (s *Store) Update(ctx context.Context, id string, patch models.SubscriptionPatch) (models.Subscription, error) {
	const op = "subscription.Store.Update"

	var updated models.Subscription
	err := s.apply(ctx, op, func(st *models.State) error {
		i := indexOf(st.Subscriptions, id)
		if i < 0 {
			return ErrNotFound
		}
		patch.Apply(&st.Subscriptions[i])
		st.Subscriptions[i].SharedWith = max(st.Subscriptions[i].SharedWith, 0)
		updated = st.Subscriptions[i].Clone()
		return nil
	})
	if err != nil {
		return models.Subscription{}, err
	}
	return updated, nil
}

// Remove удаляет подписку.
func (s *Store) Remove(ctx context.Context, id string) error {
	const op = "subscription.Store.Remove"

	err := s.apply(ctx, op, func(st *models.State) error {
		i := indexOf(st.Subscriptions, id)
		if i < 0 {
			return ErrNotFound
		}
		st.Subscriptions = append(st.Subscriptions[:i], st.Subscriptions[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("subscription removed", slog.String("id", id))
	return nil
}

// Renew отмечает подписку оплаченной: записывает платеж на текущую дату
// продления с полной ценой, переносит продление на первую дату после
// сегодняшней и ставит lastUsedDate = сегодня. Подписка без даты продления
// не меняется.
func (s *Store) Renew(ctx context.Context, id string) (models.Subscription, error) {
	const op = "subscription.Store.Renew"

	today := s.today()
	var renewed models.Subscription
	err := s.apply(ctx, op, func(st *models.State) error {
		i := indexOf(st.Subscriptions, id)
		if i < 0 {
			return ErrNotFound
		}
		sub := &st.Subscriptions[i]
		if sub.NextRenewalDate.IsZero() {
			renewed = sub.Clone()
			return errUnchanged
		}
		sub.PaymentHistory = append(sub.PaymentHistory, models.PaymentRecord{
			Date:     sub.NextRenewalDate,
			Amount:   sub.Price,
			Currency: sub.Currency,
		})
		sub.NextRenewalDate = cycle.NextFutureRenewal(sub.NextRenewalDate, sub.Cycle, today)
		sub.LastUsedDate = &today
		renewed = sub.Clone()
		return nil
	})
	if err != nil {
		return models.Subscription{}, err
	}
	metrics.Renewals.Inc()
	s.log.Info("subscription renewed", slog.String("id", id),
		slog.String("next_renewal_date", renewed.NextRenewalDate.String()))
	return renewed, nil
}

// RevertLastPayment удаляет последний платеж и сдвигает дату продления
// на один период назад. При пустой истории ничего не меняет.
func (s *Store) RevertLastPayment(ctx context.Context, id string) (models.Subscription, error) {
	const op = "subscription.Store.RevertLastPayment"

	var reverted models.Subscription
	changed := false
	err := s.apply(ctx, op, func(st *models.State) error {
		i := indexOf(st.Subscriptions, id)
		if i < 0 {
			return ErrNotFound
		}
		sub := &st.Subscriptions[i]
		if len(sub.PaymentHistory) == 0 {
			reverted = sub.Clone()
			return errUnchanged
		}
		sub.PaymentHistory = sub.PaymentHistory[:len(sub.PaymentHistory)-1]
		sub.NextRenewalDate = cycle.Revert(sub.NextRenewalDate, sub.Cycle)
		reverted = sub.Clone()
		changed = true
		return nil
	})
	if err != nil {
		return models.Subscription{}, err
	}
	if changed {
		metrics.Reverts.Inc()
		s.log.Info("last payment reverted", slog.String("id", id))
	}
	return reverted, nil
}

// OverdueAsOf отбирает подписки с датой продления не позже asOf.
func OverdueAsOf(subs []models.Subscription, asOf models.Date) []models.Subscription {
	out := []models.Subscription{}
	for _, sub := range subs {
		if sub.NextRenewalDate.IsZero() {
			continue
		}
		if !sub.NextRenewalDate.After(asOf) {
			out = append(out, sub.Clone())
		}
	}
	return out
}

// Overdue возвращает подписки, ожидающие оплаты на дату asOf. Состояние не меняется.
func (s *Store) Overdue(asOf models.Date) []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OverdueAsOf(s.state.Subscriptions, asOf)
}

// Get возвращает подписку по id.
func (s *Store) Get(id string) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.state.Subscriptions, id)
	if i < 0 {
		return models.Subscription{}, ErrNotFound
	}
	return s.state.Subscriptions[i].Clone(), nil
}

// List возвращает копию всех подписок в порядке добавления.
func (s *Store) List() []models.Subscription {
	return s.Snapshot().Subscriptions
}

// Snapshot возвращает копию полного состояния.
func (s *Store) Snapshot() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Today текущая дата по часам хранилища.
func (s *Store) Today() models.Date {
	return s.today()
}
