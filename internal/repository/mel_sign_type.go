package repository

import (
	"context"
	"fmt"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// MelSignTypeRepository — справочник типов знаков (таблица mel_sign_types).
type MelSignTypeRepository interface {
	// List возвращает все типы по алфавиту.
	List(ctx context.Context) ([]*model.MelSignType, error)
	// Create добавляет тип. ErrConflict — тип уже есть.
	Create(ctx context.Context, t *model.MelSignType) error
	// Delete удаляет тип. ErrConflict — тип используется знаками.
	Delete(ctx context.Context, name string) error
}

// melSignTypeRepo — реализация MelSignTypeRepository.
type melSignTypeRepo struct {
	db DBTX
}

// NewMelSignTypeRepository создаёт репозиторий справочника типов знаков.
func NewMelSignTypeRepository(db DBTX) MelSignTypeRepository {
	return &melSignTypeRepo{db: db}
}

func (r *melSignTypeRepo) List(ctx context.Context) ([]*model.MelSignType, error) {
	rows, err := r.db.Query(ctx, `SELECT sign_type FROM mel_sign_types ORDER BY sign_type`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения типов знаков: %w", err)
	}
	defer rows.Close()

	var result []*model.MelSignType
	for rows.Next() {
		t := &model.MelSignType{}
		if err := rows.Scan(&t.Name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования типа знака: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *melSignTypeRepo) Create(ctx context.Context, t *model.MelSignType) error {
	_, err := r.db.Exec(ctx, `INSERT INTO mel_sign_types (sign_type) VALUES ($1)`, t.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания типа знака: %w", err)
	}
	return nil
}

func (r *melSignTypeRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM mel_sign_types WHERE sign_type = $1`, name)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка удаления типа знака: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
