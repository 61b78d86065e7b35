// ledger.go — счёт баллов пользователя.
// Баланс — денормализованный счётчик, изменяемый в одной транзакции
// с записью журнала; расхождение счётчика и суммы записей невозможно.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// LedgerService — начисления, списания и чтение счёта баллов.
type LedgerService struct {
	repos  repository.Repositories
	tx     Transactor
	logger *slog.Logger
}

// NewLedgerService создаёт сервис счёта баллов.
func NewLedgerService(repos repository.Repositories, tx Transactor, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		repos:  repos,
		tx:     tx,
		logger: logger.With(slog.String("component", "ledger_service")),
	}
}

// Credit атомарно увеличивает баланс и добавляет запись журнала.
// Точка входа для внешних потребителей журнала; валидация проверок и обмен
// вознаграждений начисляют и списывают через repos.Ledger в своей транзакции.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error) {
	if err := validateMovement(userID, amount, reason); err != nil {
		return nil, err
	}

	var entry *model.LedgerEntry
	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		entry, err = repos.Ledger.Credit(ctx, userID, amount, reason, referenceID)
		return translateRepoErr(err, "начисление баллов")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Баллы начислены",
		slog.String("user_id", userID),
		slog.Int("amount", amount),
		slog.String("reason", reason),
	)
	return entry, nil
}

// Debit атомарно уменьшает баланс и добавляет запись с отрицательной суммой.
// ErrInsufficientBalance — текущего баланса не хватает; баланс не меняется.
// Как и Credit, предназначен для внешних потребителей журнала.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int, reason string, referenceID *string) (*model.LedgerEntry, error) {
	if err := validateMovement(userID, amount, reason); err != nil {
		return nil, err
	}

	var entry *model.LedgerEntry
	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		entry, err = repos.Ledger.Debit(ctx, userID, amount, reason, referenceID)
		return translateRepoErr(err, fmt.Sprintf("списание %d баллов", amount))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Баллы списаны",
		slog.String("user_id", userID),
		slog.Int("amount", amount),
		slog.String("reason", reason),
	)
	return entry, nil
}

// Balance возвращает баланс субъекта.
func (s *LedgerService) Balance(ctx context.Context, actor rbac.Subject) (int64, error) {
	if err := authorize(actor, rbac.CapClaimRewards); err != nil {
		return 0, err
	}
	balance, err := s.repos.Ledger.Balance(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("получение баланса: %w", err)
	}
	return balance, nil
}

// History возвращает журнал субъекта, новые записи первыми.
func (s *LedgerService) History(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.LedgerEntry, error) {
	if err := authorize(actor, rbac.CapClaimRewards); err != nil {
		return nil, err
	}
	limit, offset = NormalizeLimit(limit, offset)

	entries, err := s.repos.Ledger.History(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение журнала баллов: %w", err)
	}
	return entries, nil
}

func validateMovement(userID string, amount int, reason string) error {
	if userID == "" {
		return validationErr("не указан пользователь")
	}
	if amount <= 0 {
		return validationErr("сумма должна быть положительной, получено %d", amount)
	}
	if reason == "" {
		return validationErr("не указана причина")
	}
	return nil
}
