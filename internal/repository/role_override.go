package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// RoleOverrideRepository — интерфейс CRUD для таблицы role_overrides.
type RoleOverrideRepository interface {
	// Upsert создаёт или обновляет локальное дополнение роли.
	Upsert(ctx context.Context, ro *model.RoleOverride) error
	// GetByUserID возвращает override по sub пользователя.
	GetByUserID(ctx context.Context, userID string) (*model.RoleOverride, error)
	// UpdateUsername актуализирует сохранённое имя пользователя.
	UpdateUsername(ctx context.Context, userID, username string) error
	// Delete удаляет override по sub пользователя.
	Delete(ctx context.Context, userID string) error
	// List возвращает все overrides (с пагинацией).
	List(ctx context.Context, limit, offset int) ([]*model.RoleOverride, error)
	// Count возвращает количество overrides.
	Count(ctx context.Context) (int, error)
}

// roleOverrideRepo — реализация RoleOverrideRepository.
type roleOverrideRepo struct {
	db DBTX
}

// NewRoleOverrideRepository создаёт репозиторий Role Overrides.
func NewRoleOverrideRepository(db DBTX) RoleOverrideRepository {
	return &roleOverrideRepo{db: db}
}

const roColumns = `id, user_id, username, additional_role, created_by, created_at, updated_at`

func (r *roleOverrideRepo) Upsert(ctx context.Context, ro *model.RoleOverride) error {
	query := `
		INSERT INTO role_overrides (user_id, username, additional_role, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			additional_role = EXCLUDED.additional_role,
			created_by = EXCLUDED.created_by,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		ro.UserID, ro.Username, ro.AdditionalRole, ro.CreatedBy,
	).Scan(&ro.ID, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert role override: %w", err)
	}
	return nil
}

func (r *roleOverrideRepo) GetByUserID(ctx context.Context, userID string) (*model.RoleOverride, error) {
	query := fmt.Sprintf(`SELECT %s FROM role_overrides WHERE user_id = $1`, roColumns)

	ro := &model.RoleOverride{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&ro.ID, &ro.UserID, &ro.Username, &ro.AdditionalRole,
		&ro.CreatedBy, &ro.CreatedAt, &ro.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения role override: %w", err)
	}
	return ro, nil
}

func (r *roleOverrideRepo) UpdateUsername(ctx context.Context, userID, username string) error {
	query := `
		UPDATE role_overrides SET username = $2, updated_at = NOW()
		WHERE user_id = $1 AND username IS DISTINCT FROM $2`

	if _, err := r.db.Exec(ctx, query, userID, username); err != nil {
		return fmt.Errorf("ошибка обновления username role override: %w", err)
	}
	return nil
}

func (r *roleOverrideRepo) Delete(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_overrides WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления role override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roleOverrideRepo) List(ctx context.Context, limit, offset int) ([]*model.RoleOverride, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM role_overrides
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, roColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка role overrides: %w", err)
	}
	defer rows.Close()

	var result []*model.RoleOverride
	for rows.Next() {
		ro := &model.RoleOverride{}
		if err := rows.Scan(
			&ro.ID, &ro.UserID, &ro.Username, &ro.AdditionalRole,
			&ro.CreatedBy, &ro.CreatedAt, &ro.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования role override: %w", err)
		}
		result = append(result, ro)
	}
	return result, rows.Err()
}

func (r *roleOverrideRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM role_overrides`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта role overrides: %w", err)
	}
	return count, nil
}
