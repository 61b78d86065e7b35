// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrInsufficientBalance — списание увело бы баланс в минус.
	ErrInsufficientBalance = errors.New("недостаточно баллов")
	// ErrUnknownSignType — тип знака отсутствует в справочнике mel_sign_types.
	ErrUnknownSignType = errors.New("неизвестный тип знака")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories — набор репозиториев, привязанных к одному DBTX.
// Внутри транзакции все репозитории работают через один pgx.Tx.
type Repositories struct {
	Panels        PanelRepository
	Checks        CheckRepository
	Ledger        LedgerRepository
	Rewards       RewardRepository
	MelProperties MelPropertyRepository
	MelSigns      MelSignRepository
	MelSignTypes  MelSignTypeRepository
	MelReports    MelReportRepository
	RoleOverrides RoleOverrideRepository
}

// NewRepositories создаёт набор репозиториев поверх db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Panels:        NewPanelRepository(db),
		Checks:        NewCheckRepository(db),
		Ledger:        NewLedgerRepository(db),
		Rewards:       NewRewardRepository(db),
		MelProperties: NewMelPropertyRepository(db),
		MelSigns:      NewMelSignRepository(db),
		MelSignTypes:  NewMelSignTypeRepository(db),
		MelReports:    NewMelReportRepository(db),
		RoleOverrides: NewRoleOverrideRepository(db),
	}
}

// TxRunner позволяет выполнять операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается.
// При успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка коммита транзакции: %w", err)
	}
	return nil
}

// InTx выполняет fn с набором репозиториев, привязанных к одной транзакции.
func (r *TxRunner) InTx(ctx context.Context, fn func(repos Repositories) error) error {
	return r.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == "23505" // unique_violation
}

// isForeignKeyViolation проверяет нарушение внешнего ключа
// (ссылка на несуществующую панель, объект MEL, вознаграждение).
func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == "23503" // foreign_key_violation
}

// violatedConstraint возвращает имя нарушенного ограничения PostgreSQL.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
