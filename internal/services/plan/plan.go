// Package plan реализует ограничения бесплатного тарифа: лимит подписок
// и доступ к премиальным функциям. Пакет только принимает решение; показ
// предложения перейти на премиум остается вызывающему по тегу Trigger.
package plan

import (
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subify/internal/models"
)

// FreeSubscriptionLimit максимальное число подписок на бесплатном плане.
const FreeSubscriptionLimit = 3

// Feature функция приложения, доступ к которой может зависеть от плана.
type Feature string

// Функции приложения.
const (
	FeatureAIAnalysis Feature = "ai_analysis"
	FeatureReports    Feature = "reports"
	FeatureExport     Feature = "export"
	FeatureCalendar   Feature = "calendar"
)

// Trigger тег, по которому вызывающий показывает предложение премиума.
type Trigger string

// Теги отказов.
const (
	TriggerLimitReached Trigger = "limit_reached"
	TriggerAI           Trigger = "ai"
	TriggerReports      Trigger = "reports"
)

var (
	// ErrLimitReached превышен лимит подписок бесплатного плана.
	ErrLimitReached = errors.New("subscription limit reached")
	// ErrPremiumRequired функция доступна только на премиум плане.
	ErrPremiumRequired = errors.New("premium required")
)

// DeniedError отказ тарифного ограничения.
type DeniedError struct {
	Trigger Trigger
	Feature Feature
	Err     error
}

func (e *DeniedError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("%s: %s", e.Feature, e.Err)
	}
	return e.Err.Error()
}

func (e *DeniedError) Unwrap() error { return e.Err }

var premiumFeatures = map[Feature]Trigger{
	FeatureAIAnalysis: TriggerAI,
	FeatureReports:    TriggerReports,
}

// CanAddSubscription сообщает, можно ли добавить еще одну подписку.
func CanAddSubscription(p models.Plan, currentCount int) bool {
	return p != models.PlanFree || currentCount < FreeSubscriptionLimit
}

// RequiresPremium сообщает, доступна ли функция только на премиуме.
func RequiresPremium(f Feature) bool {
	_, ok := premiumFeatures[f]
	return ok
}

// CheckAdd возвращает DeniedError с ErrLimitReached, если лимит исчерпан.
func CheckAdd(p models.Plan, currentCount int) error {
	if CanAddSubscription(p, currentCount) {
		return nil
	}
	return &DeniedError{Trigger: TriggerLimitReached, Err: ErrLimitReached}
}

// Check возвращает DeniedError с ErrPremiumRequired для премиальной функции
// на бесплатном плане.
func Check(p models.Plan, f Feature) error {
	trigger, premium := premiumFeatures[f]
	if !premium || p == models.PlanPremium {
		return nil
	}
	return &DeniedError{Trigger: trigger, Feature: f, Err: ErrPremiumRequired}
}

// TriggerOf извлекает тег отказа из ошибки.
func TriggerOf(err error) (Trigger, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Trigger, true
	}
	return "", false
}
