// Package postgresql хранит состояние приложения в PostgreSQL: профиль,
// пользовательские категории, подписки и историю платежей. Сохранение
// заменяет данные целиком в одной транзакции.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/storage"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{DB: db}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Load читает состояние. Возвращает storage.ErrNotFound, если профиля нет.
func (s *Storage) Load(ctx context.Context) (*models.State, error) {
	const op = "storage.postgresql.Load"

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var state models.State
	p := &state.Profile
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, email, plan, currency, monthly_budget,
		       notifications_enabled, privacy_mode, schema_version
		FROM profiles
		ORDER BY updated_at DESC
		LIMIT 1`).Scan(
		&p.ID, &p.Name, &p.Email, &p.Plan, &p.Currency, &p.MonthlyBudget,
		&p.NotificationsEnabled, &p.PrivacyMode, &state.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if p.CustomCategories, err = loadCategories(ctx, tx, p.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if state.Subscriptions, err = loadSubscriptions(ctx, tx, p.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := loadPayments(ctx, tx, p.ID, state.Subscriptions); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &state, nil
}

func loadCategories(ctx context.Context, tx *sql.Tx, profileID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT name FROM custom_categories WHERE profile_id = $1 ORDER BY position`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cats = append(cats, name)
	}
	return cats, rows.Err()
}

func loadSubscriptions(ctx context.Context, tx *sql.Tx, profileID string) ([]models.Subscription, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, price, currency, cycle, category,
		       next_renewal_date, last_used_date, logo_url, shared_with
		FROM subscriptions
		WHERE profile_id = $1
		ORDER BY position`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Price, &sub.Currency, &sub.Cycle, &sub.Category,
			&sub.NextRenewalDate, &sub.LastUsedDate, &sub.LogoURL, &sub.SharedWith); err != nil {
			return nil, err
		}
		sub.PaymentHistory = []models.PaymentRecord{}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func loadPayments(ctx context.Context, tx *sql.Tx, profileID string, subs []models.Subscription) error {
	index := make(map[string]int, len(subs))
	for i := range subs {
		index[subs[i].ID] = i
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT p.subscription_id, p.paid_on, p.amount, p.currency
		FROM payment_records p
		JOIN subscriptions s ON s.id = p.subscription_id
		WHERE s.profile_id = $1
		ORDER BY p.subscription_id, p.position`, profileID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			subID string
			rec   models.PaymentRecord
		)
		if err := rows.Scan(&subID, &rec.Date, &rec.Amount, &rec.Currency); err != nil {
			return err
		}
		if i, ok := index[subID]; ok {
			subs[i].PaymentHistory = append(subs[i].PaymentHistory, rec)
		}
	}
	return rows.Err()
}

// Save заменяет сохраненное состояние целиком в одной транзакции.
func (s *Storage) Save(ctx context.Context, state models.State) error {
	const op = "storage.postgresql.Save"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveState(ctx, tx, state); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func saveState(ctx context.Context, tx *sql.Tx, state models.State) error {
	p := state.Profile

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("clearing profiles: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, plan, currency, monthly_budget,
		                      notifications_enabled, privacy_mode, schema_version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		p.ID, p.Name, p.Email, p.Plan, p.Currency, p.MonthlyBudget,
		p.NotificationsEnabled, p.PrivacyMode, state.SchemaVersion)
	if err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}

	for i, name := range p.CustomCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO custom_categories (profile_id, position, name) VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			p.ID, i, name); err != nil {
			return fmt.Errorf("inserting category %q: %w", name, err)
		}
	}

	subStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subscriptions (id, profile_id, position, name, price, currency, cycle, category,
		                           next_renewal_date, last_used_date, logo_url, shared_with)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return err
	}
	defer subStmt.Close()

	payStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO payment_records (subscription_id, position, paid_on, amount, currency)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return err
	}
	defer payStmt.Close()

	for i, sub := range state.Subscriptions {
		if _, err := subStmt.ExecContext(ctx, sub.ID, p.ID, i, sub.Name, sub.Price, sub.Currency, sub.Cycle,
			sub.Category, sub.NextRenewalDate, sub.LastUsedDate, sub.LogoURL, sub.SharedWith); err != nil {
			return fmt.Errorf("inserting subscription %s: %w", sub.ID, err)
		}
		for j, rec := range sub.PaymentHistory {
			if _, err := payStmt.ExecContext(ctx, sub.ID, j, rec.Date, rec.Amount, rec.Currency); err != nil {
				return fmt.Errorf("inserting payment %d of %s: %w", j, sub.ID, err)
			}
		}
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
