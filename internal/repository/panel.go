package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// PanelRepository — интерфейс CRUD для таблицы panels.
type PanelRepository interface {
	// Create создаёт панель. CreatedAt/UpdatedAt заполняются из БД.
	Create(ctx context.Context, p *model.Panel) error
	// GetByID возвращает панель по ID.
	GetByID(ctx context.Context, id string) (*model.Panel, error)
	// GetForUpdate возвращает панель и блокирует строку до конца транзакции.
	GetForUpdate(ctx context.Context, id string) (*model.Panel, error)
	// List возвращает панели: сначала самые давно проверенные.
	List(ctx context.Context, limit, offset int) ([]*model.Panel, error)
	// Count возвращает количество панелей.
	Count(ctx context.Context) (int, error)
	// Update обновляет метаданные панели (name, latitude, longitude).
	Update(ctx context.Context, p *model.Panel) error
	// TouchFreshness устанавливает last_checked_at = updated_at = at
	// и возвращает обновлённую панель.
	TouchFreshness(ctx context.Context, id string, at time.Time) (*model.Panel, error)
	// Delete удаляет панель; проверки удаляются каскадно.
	Delete(ctx context.Context, id string) error
}

// panelRepo — реализация PanelRepository.
type panelRepo struct {
	db DBTX
}

// NewPanelRepository создаёт репозиторий панелей.
func NewPanelRepository(db DBTX) PanelRepository {
	return &panelRepo{db: db}
}

const panelColumns = `id, name, latitude, longitude, last_checked_at, created_at, updated_at`

func scanPanel(row pgx.Row) (*model.Panel, error) {
	p := &model.Panel{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Latitude, &p.Longitude,
		&p.LastCheckedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *panelRepo) Create(ctx context.Context, p *model.Panel) error {
	query := `
		INSERT INTO panels (id, name, latitude, longitude, last_checked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.Latitude, p.Longitude, p.LastCheckedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания панели: %w", err)
	}
	return nil
}

func (r *panelRepo) GetByID(ctx context.Context, id string) (*model.Panel, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM panels WHERE id = $1`, panelColumns), id)
}

func (r *panelRepo) GetForUpdate(ctx context.Context, id string) (*model.Panel, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM panels WHERE id = $1 FOR UPDATE`, panelColumns), id)
}

func (r *panelRepo) get(ctx context.Context, query, id string) (*model.Panel, error) {
	p, err := scanPanel(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения панели: %w", err)
	}
	return p, nil
}

func (r *panelRepo) List(ctx context.Context, limit, offset int) ([]*model.Panel, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM panels
		ORDER BY last_checked_at ASC NULLS FIRST, name ASC, id ASC
		LIMIT $1 OFFSET $2`, panelColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка панелей: %w", err)
	}
	defer rows.Close()

	var result []*model.Panel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования панели: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *panelRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM panels`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта панелей: %w", err)
	}
	return count, nil
}

func (r *panelRepo) Update(ctx context.Context, p *model.Panel) error {
	query := `
		UPDATE panels SET
			name = $2,
			latitude = $3,
			longitude = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Latitude, p.Longitude).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления панели: %w", err)
	}
	return nil
}

func (r *panelRepo) TouchFreshness(ctx context.Context, id string, at time.Time) (*model.Panel, error) {
	query := fmt.Sprintf(`
		UPDATE panels SET
			last_checked_at = $2,
			updated_at = $2
		WHERE id = $1
		RETURNING %s`, panelColumns)

	p, err := scanPanel(r.db.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления свежести панели: %w", err)
	}
	return p, nil
}

func (r *panelRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM panels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления панели: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
