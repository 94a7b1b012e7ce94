package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subify/internal/models"
)

// Format формат импортированного документа.
type Format string

// Форматы импорта.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnrecognized документ не разобран ни как JSON, ни как CSV.
var ErrUnrecognized = errors.New("unrecognized import document")

// Result разобранный документ. Для JSON заполнено State, для CSV Subscriptions.
type Result struct {
	Format        Format
	State         models.State
	Subscriptions []models.Subscription
}

// Count число подписок в документе.
func (r Result) Count() int {
	if r.Format == FormatJSON {
		return len(r.State.Subscriptions)
	}
	return len(r.Subscriptions)
}

// Target хранилище, в которое применяется импорт.
type Target interface {
	ReplaceAll(ctx context.Context, state models.State) error
	AppendAll(ctx context.Context, subs []models.Subscription) error
}

// Apply применяет документ: резервная копия JSON заменяет профиль и
// подписки, строки CSV добавляются к существующим.
func (r Result) Apply(ctx context.Context, t Target) error {
	if r.Format == FormatJSON {
		return t.ReplaceAll(ctx, r.State)
	}
	return t.AppendAll(ctx, r.Subscriptions)
}

// Import разбирает документ целиком до применения: сначала как резервную
// копию JSON, затем как CSV. Документ, похожий на JSON, как CSV не разбирается.
func Import(data []byte, today models.Date, newID func() string) (Result, error) {
	const op = "transfer.Import"

	data = bytes.TrimPrefix(data, []byte(BOM))
	state, jsonErr := ParseJSON(data)
	if jsonErr == nil {
		return Result{Format: FormatJSON, State: state}, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnrecognized, jsonErr)
	}

	subs, err := ParseCSV(data, today, newID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnrecognized, err)
	}
	return Result{Format: FormatCSV, Subscriptions: subs}, nil
}
