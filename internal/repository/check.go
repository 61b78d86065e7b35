package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// CheckRepository — интерфейс для таблицы check_submissions.
type CheckRepository interface {
	// Create сохраняет проверку в статусе PENDING.
	// ErrNotFound — панель не существует.
	Create(ctx context.Context, c *model.CheckSubmission) error
	// GetByID возвращает проверку по ID в любом статусе.
	GetByID(ctx context.Context, id string) (*model.CheckSubmission, error)
	// GetPendingForValidation возвращает проверку в статусе PENDING вместе
	// с last_checked_at её панели и блокирует обе строки (FOR UPDATE).
	// ErrNotFound — проверки нет или она уже не PENDING.
	GetPendingForValidation(ctx context.Context, id string) (*model.CheckForValidation, error)
	// MarkValidated переводит проверку PENDING → VALIDATED условным UPDATE.
	// points_attributed записывается только если ещё не задан.
	// ErrNotFound — ни одна строка не обновлена.
	MarkValidated(ctx context.Context, id string, points int, validatedAt time.Time, validatedBy string) error
	// ListPending возвращает очередь PENDING (FIFO по checked_at) с названием панели.
	ListPending(ctx context.Context, limit, offset int) ([]*model.PendingCheck, error)
	// CountPending возвращает длину очереди PENDING.
	CountPending(ctx context.Context) (int, error)
	// ListPendingByUser возвращает PENDING-проверки пользователя (FIFO).
	ListPendingByUser(ctx context.Context, userID string) ([]*model.PendingCheck, error)
	// CountPendingByPanel возвращает количество PENDING-проверок панели.
	CountPendingByPanel(ctx context.Context, panelID string) (int, error)
}

// checkRepo — реализация CheckRepository.
type checkRepo struct {
	db DBTX
}

// NewCheckRepository создаёт репозиторий проверок.
func NewCheckRepository(db DBTX) CheckRepository {
	return &checkRepo{db: db}
}

const checkColumns = `c.id, c.panel_id, c.user_id, c.user_name, c.checked_at, c.status, c.state,
	c.comment, c.evidence_ref, c.points_attributed, c.validated_at, c.validated_by`

func checkScanDest(c *model.CheckSubmission) []any {
	return []any{
		&c.ID, &c.PanelID, &c.UserID, &c.UserName, &c.CheckedAt, &c.Status, &c.State,
		&c.Comment, &c.EvidenceRef, &c.PointsAttributed, &c.ValidatedAt, &c.ValidatedBy,
	}
}

func (r *checkRepo) Create(ctx context.Context, c *model.CheckSubmission) error {
	query := `
		INSERT INTO check_submissions (id, panel_id, user_id, user_name, checked_at, status, state, comment, evidence_ref)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.PanelID, c.UserID, c.UserName, c.CheckedAt, c.State, c.Comment, c.EvidenceRef,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания проверки: %w", err)
	}
	c.Status = model.CheckStatusPending
	return nil
}

func (r *checkRepo) GetByID(ctx context.Context, id string) (*model.CheckSubmission, error) {
	query := fmt.Sprintf(`SELECT %s FROM check_submissions c WHERE c.id = $1`, checkColumns)

	c := &model.CheckSubmission{}
	if err := r.db.QueryRow(ctx, query, id).Scan(checkScanDest(c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проверки: %w", err)
	}
	return c, nil
}

func (r *checkRepo) GetPendingForValidation(ctx context.Context, id string) (*model.CheckForValidation, error) {
	// FOR UPDATE без OF блокирует строки обеих таблиц: проверку и панель.
	// Параллельные валидации проверок одной панели выстраиваются в очередь.
	query := fmt.Sprintf(`
		SELECT %s, p.last_checked_at
		FROM check_submissions c
		JOIN panels p ON p.id = c.panel_id
		WHERE c.id = $1 AND c.status = 'PENDING'
		FOR UPDATE`, checkColumns)

	cv := &model.CheckForValidation{}
	dest := append(checkScanDest(&cv.CheckSubmission), &cv.PanelLastCheckedAt)
	if err := r.db.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проверки для валидации: %w", err)
	}
	return cv, nil
}

func (r *checkRepo) MarkValidated(ctx context.Context, id string, points int, validatedAt time.Time, validatedBy string) error {
	query := `
		UPDATE check_submissions SET
			status = 'VALIDATED',
			points_attributed = COALESCE(points_attributed, $2),
			validated_at = $3,
			validated_by = $4
		WHERE id = $1 AND status = 'PENDING'`

	tag, err := r.db.Exec(ctx, query, id, points, validatedAt, validatedBy)
	if err != nil {
		return fmt.Errorf("ошибка валидации проверки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *checkRepo) ListPending(ctx context.Context, limit, offset int) ([]*model.PendingCheck, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.name
		FROM check_submissions c
		JOIN panels p ON p.id = c.panel_id
		WHERE c.status = 'PENDING'
		ORDER BY c.checked_at ASC, c.id ASC
		LIMIT $1 OFFSET $2`, checkColumns)

	return r.queryPending(ctx, query, limit, offset)
}

func (r *checkRepo) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM check_submissions WHERE status = 'PENDING'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта проверок: %w", err)
	}
	return count, nil
}

func (r *checkRepo) ListPendingByUser(ctx context.Context, userID string) ([]*model.PendingCheck, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.name
		FROM check_submissions c
		JOIN panels p ON p.id = c.panel_id
		WHERE c.status = 'PENDING' AND c.user_id = $1
		ORDER BY c.checked_at ASC, c.id ASC`, checkColumns)

	return r.queryPending(ctx, query, userID)
}

func (r *checkRepo) CountPendingByPanel(ctx context.Context, panelID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM check_submissions WHERE panel_id = $1 AND status = 'PENDING'`,
		panelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта проверок панели: %w", err)
	}
	return count, nil
}

func (r *checkRepo) queryPending(ctx context.Context, query string, args ...any) ([]*model.PendingCheck, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения очереди проверок: %w", err)
	}
	defer rows.Close()

	var result []*model.PendingCheck
	for rows.Next() {
		pc := &model.PendingCheck{}
		dest := append(checkScanDest(&pc.CheckSubmission), &pc.PanelName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования проверки: %w", err)
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}
