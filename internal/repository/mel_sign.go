package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// MelSignRepository — CRUD для таблицы mel_signs.
type MelSignRepository interface {
	// Create создаёт знак; ID назначается БД.
	// ErrNotFound — объекта MEL с такими координатами нет,
	// ErrUnknownSignType — типа знака нет в справочнике.
	Create(ctx context.Context, s *model.MelSign) error
	// GetByID возвращает знак.
	GetByID(ctx context.Context, id int64) (*model.MelSign, error)
	// List возвращает знаки; при loc != nil — только знаки объекта.
	List(ctx context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error)
	// Update обновляет атрибуты знака (координаты не меняются).
	// ErrUnknownSignType — типа знака нет в справочнике.
	Update(ctx context.Context, s *model.MelSign) error
	// Delete удаляет знак.
	Delete(ctx context.Context, id int64) error
}

// melSignRepo — реализация MelSignRepository.
type melSignRepo struct {
	db DBTX
}

// NewMelSignRepository создаёт репозиторий знаков MEL.
func NewMelSignRepository(db DBTX) MelSignRepository {
	return &melSignRepo{db: db}
}

// signTypeConstraint — внешний ключ mel_signs.sign_type → mel_sign_types.
const signTypeConstraint = "mel_signs_sign_type_fkey"

const melSignColumns = `id, lat, lon, sign_type, tagged, deteriorated_info, hidden_by_environment,
	standing, present, component_total`

func scanMelSign(row pgx.Row) (*model.MelSign, error) {
	s := &model.MelSign{}
	err := row.Scan(
		&s.ID, &s.Location.Lat, &s.Location.Lon, &s.SignType, &s.Tagged, &s.DeterioratedInfo,
		&s.HiddenByEnvironment, &s.Standing, &s.Present, &s.ComponentTotal,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *melSignRepo) Create(ctx context.Context, s *model.MelSign) error {
	query := `
		INSERT INTO mel_signs (lat, lon, sign_type, tagged, deteriorated_info,
			hidden_by_environment, standing, present, component_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		s.Location.Lat, s.Location.Lon, s.SignType, s.Tagged, s.DeterioratedInfo,
		s.HiddenByEnvironment, s.Standing, s.Present, s.ComponentTotal,
	).Scan(&s.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == signTypeConstraint {
				return ErrUnknownSignType
			}
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания знака MEL: %w", err)
	}
	return nil
}

func (r *melSignRepo) GetByID(ctx context.Context, id int64) (*model.MelSign, error) {
	query := fmt.Sprintf(`SELECT %s FROM mel_signs WHERE id = $1`, melSignColumns)

	s, err := scanMelSign(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения знака MEL: %w", err)
	}
	return s, nil
}

func (r *melSignRepo) List(ctx context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error) {
	query := fmt.Sprintf(`SELECT %s FROM mel_signs`, melSignColumns)
	args := []any{}

	if loc != nil {
		query += ` WHERE lat = $1 AND lon = $2`
		args = append(args, loc.Lat, loc.Lon)
	}

	query += fmt.Sprintf(` ORDER BY id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка знаков MEL: %w", err)
	}
	defer rows.Close()

	var result []*model.MelSign
	for rows.Next() {
		s, err := scanMelSign(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования знака MEL: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *melSignRepo) Update(ctx context.Context, s *model.MelSign) error {
	query := `
		UPDATE mel_signs SET
			sign_type = $2,
			tagged = $3,
			deteriorated_info = $4,
			hidden_by_environment = $5,
			standing = $6,
			present = $7,
			component_total = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		s.ID, s.SignType, s.Tagged, s.DeterioratedInfo,
		s.HiddenByEnvironment, s.Standing, s.Present, s.ComponentTotal,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUnknownSignType
		}
		return fmt.Errorf("ошибка обновления знака MEL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *melSignRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM mel_signs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления знака MEL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
