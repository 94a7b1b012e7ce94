// Package transfer читает и пишет внешние форматы данных: резервную копию
// в JSON, таблицу подписок в CSV, календарные события ICS и отчет в XLSX.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/magabrotheeeer/subify/internal/models"
)

// ExportVersion версия формата резервной копии.
const ExportVersion = "1.0"

// ErrInvalidDocument документ не является резервной копией.
var ErrInvalidDocument = errors.New("invalid backup document")

// Document резервная копия профиля и подписок.
type Document struct {
	User          models.UserProfile    `json:"user"`
	Subscriptions []models.Subscription `json:"subscriptions"`
	ExportedAt    time.Time             `json:"exportedAt"`
	Version       string                `json:"version"`
}

// ExportJSON пишет резервную копию с отступами.
func ExportJSON(w io.Writer, state models.State, now time.Time) error {
	const op = "transfer.ExportJSON"

	subs := state.Subscriptions
	if subs == nil {
		subs = []models.Subscription{}
	}
	doc := Document{
		User:          state.Profile,
		Subscriptions: subs,
		ExportedAt:    now.UTC(),
		Version:       ExportVersion,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ParseJSON разбирает резервную копию. Документ должен содержать объект
// user и массив subscriptions.
func ParseJSON(data []byte) (models.State, error) {
	const op = "transfer.ParseJSON"

	var raw struct {
		User          json.RawMessage `json:"user"`
		Subscriptions json.RawMessage `json:"subscriptions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.State{}, fmt.Errorf("%s: %w", op, err)
	}
	if !startsWith(raw.User, '{') || !startsWith(raw.Subscriptions, '[') {
		return models.State{}, fmt.Errorf("%s: %w", op, ErrInvalidDocument)
	}

	var state models.State
	if err := json.Unmarshal(raw.User, &state.Profile); err != nil {
		return models.State{}, fmt.Errorf("%s: user: %w", op, err)
	}
	if err := json.Unmarshal(raw.Subscriptions, &state.Subscriptions); err != nil {
		return models.State{}, fmt.Errorf("%s: subscriptions: %w", op, err)
	}
	return state, nil
}

func startsWith(raw json.RawMessage, c byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == c
}
