package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// RewardRepository — каталог вознаграждений и история обменов.
type RewardRepository interface {
	// List возвращает каталог, дешёвые позиции первыми.
	List(ctx context.Context) ([]*model.Reward, error)
	// GetByID возвращает позицию каталога.
	GetByID(ctx context.Context, id string) (*model.Reward, error)
	// CreateClaim сохраняет факт обмена. ClaimedAt заполняется из БД.
	CreateClaim(ctx context.Context, claim *model.RewardClaim) error
	// ListClaims возвращает обмены пользователя, новые первыми.
	ListClaims(ctx context.Context, userID string, limit, offset int) ([]*model.RewardClaim, error)
}

// rewardRepo — реализация RewardRepository.
type rewardRepo struct {
	db DBTX
}

// NewRewardRepository создаёт репозиторий вознаграждений.
func NewRewardRepository(db DBTX) RewardRepository {
	return &rewardRepo{db: db}
}

const rewardColumns = `id, name, partners, services, value_eur, points_required`

func scanReward(row pgx.Row) (*model.Reward, error) {
	rw := &model.Reward{}
	if err := row.Scan(&rw.ID, &rw.Name, &rw.Partners, &rw.Services, &rw.ValueEUR, &rw.PointsRequired); err != nil {
		return nil, err
	}
	return rw, nil
}

func (r *rewardRepo) List(ctx context.Context) ([]*model.Reward, error) {
	query := fmt.Sprintf(`SELECT %s FROM rewards ORDER BY points_required ASC, name ASC`, rewardColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога: %w", err)
	}
	defer rows.Close()

	var result []*model.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования вознаграждения: %w", err)
		}
		result = append(result, rw)
	}
	return result, rows.Err()
}

func (r *rewardRepo) GetByID(ctx context.Context, id string) (*model.Reward, error) {
	query := fmt.Sprintf(`SELECT %s FROM rewards WHERE id = $1`, rewardColumns)

	rw, err := scanReward(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения вознаграждения: %w", err)
	}
	return rw, nil
}

func (r *rewardRepo) CreateClaim(ctx context.Context, claim *model.RewardClaim) error {
	query := `
		INSERT INTO reward_claims (id, user_id, reward_id)
		VALUES ($1, $2, $3)
		RETURNING claimed_at`

	err := r.db.QueryRow(ctx, query, claim.ID, claim.UserID, claim.RewardID).Scan(&claim.ClaimedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка сохранения обмена: %w", err)
	}
	return nil
}

func (r *rewardRepo) ListClaims(ctx context.Context, userID string, limit, offset int) ([]*model.RewardClaim, error) {
	query := `
		SELECT rc.id, rc.user_id, rc.reward_id, rw.name, rc.claimed_at
		FROM reward_claims rc
		JOIN rewards rw ON rw.id = rc.reward_id
		WHERE rc.user_id = $1
		ORDER BY rc.claimed_at DESC, rc.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения обменов: %w", err)
	}
	defer rows.Close()

	var result []*model.RewardClaim
	for rows.Next() {
		c := &model.RewardClaim{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.RewardID, &c.RewardName, &c.ClaimedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования обмена: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
