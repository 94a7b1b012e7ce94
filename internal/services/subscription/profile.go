package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/models"
)

var (
	// ErrUnsupportedCurrency валюта не входит в список поддерживаемых.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrInvalidBudget отрицательный бюджет.
	ErrInvalidBudget = errors.New("budget must not be negative")
	// ErrInvalidCategory пустое имя категории.
	ErrInvalidCategory = errors.New("category name is empty")
	// ErrDefaultCategory встроенную категорию нельзя удалить.
	ErrDefaultCategory = errors.New("default category cannot be removed")
)

// Profile возвращает копию профиля.
func (s *Store) Profile() models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Profile.Clone()
}

// Categories встроенные и пользовательские категории.
func (s *Store) Categories() []string {
	return s.Profile().Categories()
}

// SetBaseCurrency меняет базовую валюту профиля.
func (s *Store) SetBaseCurrency(ctx context.Context, c models.Currency) error {
	const op = "subscription.Store.SetBaseCurrency"
	if !c.IsSupported() {
		return fmt.Errorf("%s: %w: %s", op, ErrUnsupportedCurrency, c)
	}
	return s.apply(ctx, op, func(st *models.State) error {
		if st.Profile.Currency == c {
			return errUnchanged
		}
		st.Profile.Currency = c
		return nil
	})
}

// SetPlan меняет тарифный план.
func (s *Store) SetPlan(ctx context.Context, p models.Plan) error {
	const op = "subscription.Store.SetPlan"
	if p != models.PlanFree && p != models.PlanPremium {
		return fmt.Errorf("%s: unknown plan %q", op, p)
	}
	err := s.apply(ctx, op, func(st *models.State) error {
		if st.Profile.Plan == p {
			return errUnchanged
		}
		st.Profile.Plan = p
		return nil
	})
	if err == nil {
		s.log.Info("plan changed", slog.String("plan", string(p)))
	}
	return err
}

// UpgradeToPremium переводит пользователя на премиум.
func (s *Store) UpgradeToPremium(ctx context.Context) error {
	return s.SetPlan(ctx, models.PlanPremium)
}

// DowngradeToFree возвращает бесплатный план. Существующие подписки сверх
// лимита сохраняются, но новые добавить нельзя.
func (s *Store) DowngradeToFree(ctx context.Context) error {
	return s.SetPlan(ctx, models.PlanFree)
}

// UpdateBudget устанавливает месячный бюджет, 0 означает "не задан".
func (s *Store) UpdateBudget(ctx context.Context, amount decimal.Decimal) error {
	const op = "subscription.Store.UpdateBudget"
	if amount.IsNegative() {
		return fmt.Errorf("%s: %w", op, ErrInvalidBudget)
	}
	return s.apply(ctx, op, func(st *models.State) error {
		st.Profile.MonthlyBudget = amount
		return nil
	})
}

// AddCategory добавляет пользовательскую категорию. Уже существующая
// категория не добавляется повторно.
func (s *Store) AddCategory(ctx context.Context, name string) error {
	const op = "subscription.Store.AddCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidCategory)
	}
	return s.apply(ctx, op, func(st *models.State) error {
		if slices.Contains(st.Profile.Categories(), name) {
			return errUnchanged
		}
		st.Profile.CustomCategories = append(st.Profile.CustomCategories, name)
		return nil
	})
}

// RemoveCategory удаляет пользовательскую категорию. Подписки с этой
// категорией не меняются.
func (s *Store) RemoveCategory(ctx context.Context, name string) error {
	const op = "subscription.Store.RemoveCategory"
	if slices.Contains(models.DefaultCategories, name) {
		return fmt.Errorf("%s: %w", op, ErrDefaultCategory)
	}
	return s.apply(ctx, op, func(st *models.State) error {
		i := slices.Index(st.Profile.CustomCategories, name)
		if i < 0 {
			return errUnchanged
		}
		st.Profile.CustomCategories = slices.Delete(st.Profile.CustomCategories, i, i+1)
		return nil
	})
}

// SetNotifications включает или выключает напоминания о продлении.
func (s *Store) SetNotifications(ctx context.Context, enabled bool) error {
	return s.apply(ctx, "subscription.Store.SetNotifications", func(st *models.State) error {
		if st.Profile.NotificationsEnabled == enabled {
			return errUnchanged
		}
		st.Profile.NotificationsEnabled = enabled
		return nil
	})
}

// TogglePrivacy переключает режим скрытия сумм и возвращает новое значение.
func (s *Store) TogglePrivacy(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.apply(ctx, "subscription.Store.TogglePrivacy", func(st *models.State) error {
		st.Profile.PrivacyMode = !st.Profile.PrivacyMode
		enabled = st.Profile.PrivacyMode
		return nil
	})
	return enabled, err
}

// ReplaceAll заменяет профиль и подписки целиком (восстановление из резервной копии).
func (s *Store) ReplaceAll(ctx context.Context, state models.State) error {
	const op = "subscription.Store.ReplaceAll"
	normalized := models.Normalize(state.Clone(), s.today())
	err := s.apply(ctx, op, func(st *models.State) error {
		*st = normalized
		return nil
	})
	if err == nil {
		s.log.Info("state replaced", slog.Int("subscriptions", len(normalized.Subscriptions)))
	}
	return err
}

// AppendAll добавляет подписки одним изменением. Лимит бесплатного плана
// не применяется: импорт восстанавливает уже существующие данные.
func (s *Store) AppendAll(ctx context.Context, subs []models.Subscription) error {
	const op = "subscription.Store.AppendAll"
	if len(subs) == 0 {
		return nil
	}
	today := s.today()
	err := s.apply(ctx, op, func(st *models.State) error {
		for _, sub := range subs {
			sub = models.NormalizeSubscription(sub.Clone(), today)
			if indexOf(st.Subscriptions, sub.ID) >= 0 {
				sub.ID = s.newID()
			}
			st.Subscriptions = append(st.Subscriptions, sub)
		}
		return nil
	})
	if err == nil {
		s.log.Info("subscriptions appended", slog.Int("count", len(subs)))
	}
	return err
}
