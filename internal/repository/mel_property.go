package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// MelPropertyRepository — CRUD для таблицы mel_properties.
// Ключ — координаты (lat, lon).
type MelPropertyRepository interface {
	// Create создаёт объект. ErrConflict — объект с такими координатами уже есть.
	Create(ctx context.Context, p *model.MelProperty) error
	// Get возвращает объект по координатам.
	Get(ctx context.Context, loc model.Location) (*model.MelProperty, error)
	// List возвращает объекты, последние отчёты первыми.
	List(ctx context.Context, limit, offset int) ([]*model.MelProperty, error)
	// Update обновляет атрибуты объекта и last_report.
	Update(ctx context.Context, p *model.MelProperty) error
	// TouchReport сдвигает last_report объекта на текущее время.
	TouchReport(ctx context.Context, loc model.Location) (time.Time, error)
	// Delete удаляет объект; знаки и отметки удаляются каскадно.
	Delete(ctx context.Context, loc model.Location) error
}

// melPropertyRepo — реализация MelPropertyRepository.
type melPropertyRepo struct {
	db DBTX
}

// NewMelPropertyRepository создаёт репозиторий объектов MEL.
func NewMelPropertyRepository(db DBTX) MelPropertyRepository {
	return &melPropertyRepo{db: db}
}

const melPropertyColumns = `lat, lon, last_report, natural_space, points_value, number_of_signs, creator`

func scanMelProperty(row pgx.Row) (*model.MelProperty, error) {
	p := &model.MelProperty{}
	err := row.Scan(
		&p.Location.Lat, &p.Location.Lon, &p.LastReport, &p.NaturalSpace,
		&p.PointsValue, &p.NumberOfSigns, &p.Creator,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *melPropertyRepo) Create(ctx context.Context, p *model.MelProperty) error {
	query := `
		INSERT INTO mel_properties (lat, lon, natural_space, points_value, number_of_signs, creator)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING last_report`

	err := r.db.QueryRow(ctx, query,
		p.Location.Lat, p.Location.Lon, p.NaturalSpace, p.PointsValue, p.NumberOfSigns, p.Creator,
	).Scan(&p.LastReport)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания объекта MEL: %w", err)
	}
	return nil
}

func (r *melPropertyRepo) Get(ctx context.Context, loc model.Location) (*model.MelProperty, error) {
	query := fmt.Sprintf(`SELECT %s FROM mel_properties WHERE lat = $1 AND lon = $2`, melPropertyColumns)

	p, err := scanMelProperty(r.db.QueryRow(ctx, query, loc.Lat, loc.Lon))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения объекта MEL: %w", err)
	}
	return p, nil
}

func (r *melPropertyRepo) List(ctx context.Context, limit, offset int) ([]*model.MelProperty, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM mel_properties
		ORDER BY last_report DESC, lat, lon
		LIMIT $1 OFFSET $2`, melPropertyColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка объектов MEL: %w", err)
	}
	defer rows.Close()

	var result []*model.MelProperty
	for rows.Next() {
		p, err := scanMelProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования объекта MEL: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *melPropertyRepo) Update(ctx context.Context, p *model.MelProperty) error {
	query := `
		UPDATE mel_properties SET
			natural_space = $3,
			points_value = $4,
			number_of_signs = $5,
			last_report = NOW()
		WHERE lat = $1 AND lon = $2
		RETURNING last_report`

	err := r.db.QueryRow(ctx, query,
		p.Location.Lat, p.Location.Lon, p.NaturalSpace, p.PointsValue, p.NumberOfSigns,
	).Scan(&p.LastReport)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления объекта MEL: %w", err)
	}
	return nil
}

func (r *melPropertyRepo) TouchReport(ctx context.Context, loc model.Location) (time.Time, error) {
	var lastReport time.Time
	err := r.db.QueryRow(ctx,
		`UPDATE mel_properties SET last_report = NOW() WHERE lat = $1 AND lon = $2 RETURNING last_report`,
		loc.Lat, loc.Lon,
	).Scan(&lastReport)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("ошибка обновления last_report объекта MEL: %w", err)
	}
	return lastReport, nil
}

func (r *melPropertyRepo) Delete(ctx context.Context, loc model.Location) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM mel_properties WHERE lat = $1 AND lon = $2`, loc.Lat, loc.Lon)
	if err != nil {
		return fmt.Errorf("ошибка удаления объекта MEL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
