package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// LedgerRepository — счёт баллов пользователя: point_accounts + point_ledger_entries.
// Credit и Debit изменяют баланс и добавляют запись журнала; вызывающий код
// выполняет их внутри транзакции, чтобы счётчик и журнал не расходились.
type LedgerRepository interface {
	// Credit увеличивает баланс на amount (> 0) и добавляет запись журнала.
	// ErrConflict — для reason/reference уже есть начисление.
	Credit(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error)
	// Debit уменьшает баланс на amount (> 0) и добавляет запись с отрицательной суммой.
	// ErrInsufficientBalance — текущий баланс меньше amount.
	Debit(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error)
	// Balance возвращает текущий баланс; 0 для пользователя без счёта.
	Balance(ctx context.Context, userID string) (int64, error)
	// History возвращает записи журнала пользователя, новые первыми.
	History(ctx context.Context, userID string, limit, offset int) ([]*model.LedgerEntry, error)
}

// ledgerRepo — реализация LedgerRepository.
type ledgerRepo struct {
	db DBTX
}

// NewLedgerRepository создаёт репозиторий журнала баллов.
func NewLedgerRepository(db DBTX) LedgerRepository {
	return &ledgerRepo{db: db}
}

const ledgerColumns = `id, user_id, amount, reason, reference_id, created_at`

func (r *ledgerRepo) Credit(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error) {
	query := `
		INSERT INTO point_accounts (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = point_accounts.balance + EXCLUDED.balance,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, userID, amount); err != nil {
		return nil, fmt.Errorf("ошибка начисления на счёт: %w", err)
	}

	return r.appendEntry(ctx, userID, amount, reason, referenceID)
}

func (r *ledgerRepo) Debit(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error) {
	// Проверка баланса и списание — один условный UPDATE:
	// строка счёта блокируется, параллельные списания не теряются.
	query := `
		UPDATE point_accounts SET
			balance = balance - $2,
			updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2`

	tag, err := r.db.Exec(ctx, query, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания со счёта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInsufficientBalance
	}

	return r.appendEntry(ctx, userID, -amount, reason, referenceID)
}

func (r *ledgerRepo) appendEntry(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error) {
	query := fmt.Sprintf(`
		INSERT INTO point_ledger_entries (id, user_id, amount, reason, reference_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, ledgerColumns)

	e := &model.LedgerEntry{}
	err := r.db.QueryRow(ctx, query, uuid.New().String(), userID, amount, reason, referenceID).Scan(
		&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.ReferenceID, &e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("ошибка записи в журнал баллов: %w", err)
	}
	return e, nil
}

func (r *ledgerRepo) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM point_accounts WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

func (r *ledgerRepo) History(ctx context.Context, userID string, limit, offset int) ([]*model.LedgerEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM point_ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, ledgerColumns)

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала баллов: %w", err)
	}
	defer rows.Close()

	var result []*model.LedgerEntry
	for rows.Next() {
		e := &model.LedgerEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
