package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// MelReportRepository — отметки пользователей об объектах MEL (таблица mel_reports).
type MelReportRepository interface {
	// Upsert сохраняет отметку; повторная отметка того же объекта
	// обновляет reported_at. ErrNotFound — объекта нет.
	Upsert(ctx context.Context, rep *model.MelReport) error
	// ListByUser возвращает отметки пользователя, свежие первыми.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.MelReport, error)
	// List возвращает все отметки, свежие первыми.
	List(ctx context.Context, limit, offset int) ([]*model.MelReport, error)
}

// melReportRepo — реализация MelReportRepository.
type melReportRepo struct {
	db DBTX
}

// NewMelReportRepository создаёт репозиторий отметок MEL.
func NewMelReportRepository(db DBTX) MelReportRepository {
	return &melReportRepo{db: db}
}

func scanMelReport(row pgx.Row) (*model.MelReport, error) {
	rep := &model.MelReport{}
	if err := row.Scan(&rep.UserID, &rep.Location.Lat, &rep.Location.Lon, &rep.ReportedAt); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *melReportRepo) Upsert(ctx context.Context, rep *model.MelReport) error {
	query := `
		INSERT INTO mel_reports (user_id, lat, lon)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, lat, lon) DO UPDATE SET reported_at = NOW()
		RETURNING reported_at`

	err := r.db.QueryRow(ctx, query, rep.UserID, rep.Location.Lat, rep.Location.Lon).Scan(&rep.ReportedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка сохранения отметки MEL: %w", err)
	}
	return nil
}

func (r *melReportRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.MelReport, error) {
	query := `
		SELECT user_id, lat, lon, reported_at
		FROM mel_reports
		WHERE user_id = $1
		ORDER BY reported_at DESC, lat, lon
		LIMIT $2 OFFSET $3`
	return r.query(ctx, query, userID, limit, offset)
}

func (r *melReportRepo) List(ctx context.Context, limit, offset int) ([]*model.MelReport, error) {
	query := `
		SELECT user_id, lat, lon, reported_at
		FROM mel_reports
		ORDER BY reported_at DESC, user_id, lat, lon
		LIMIT $1 OFFSET $2`
	return r.query(ctx, query, limit, offset)
}

func (r *melReportRepo) query(ctx context.Context, query string, args ...any) ([]*model.MelReport, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отметок MEL: %w", err)
	}
	defer rows.Close()

	var result []*model.MelReport
	for rows.Next() {
		rep, err := scanMelReport(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования отметки MEL: %w", err)
		}
		result = append(result, rep)
	}
	return result, rows.Err()
}
