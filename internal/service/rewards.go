// rewards.go — каталог вознаграждений и обмен баллов.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// RewardService — каталог и обмен баллов на вознаграждения.
type RewardService struct {
	repos  repository.Repositories
	tx     Transactor
	logger *slog.Logger
}

// NewRewardService создаёт сервис вознаграждений.
func NewRewardService(repos repository.Repositories, tx Transactor, logger *slog.Logger) *RewardService {
	return &RewardService{
		repos:  repos,
		tx:     tx,
		logger: logger.With(slog.String("component", "reward_service")),
	}
}

// Catalog возвращает каталог, дешёвые позиции первыми.
func (s *RewardService) Catalog(ctx context.Context) ([]*model.Reward, error) {
	rewards, err := s.repos.Rewards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение каталога: %w", err)
	}
	return rewards, nil
}

// Claim обменивает баллы субъекта на вознаграждение: списание points_required
// и запись обмена в одной транзакции.
func (s *RewardService) Claim(ctx context.Context, actor rbac.Subject, rewardID string) (*model.RewardClaim, error) {
	if err := authorize(actor, rbac.CapClaimRewards); err != nil {
		return nil, err
	}

	var claim *model.RewardClaim
	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		reward, err := repos.Rewards.GetByID(ctx, rewardID)
		if err != nil {
			return translateRepoErr(err, "вознаграждение "+rewardID)
		}

		ref := reward.ID
		if _, err := repos.Ledger.Debit(ctx, actor.ID, reward.PointsRequired, model.ReasonRewardClaim, &ref); err != nil {
			return translateRepoErr(err, fmt.Sprintf("требуется %d баллов", reward.PointsRequired))
		}

		claim = &model.RewardClaim{
			ID:         uuid.New().String(),
			UserID:     actor.ID,
			RewardID:   reward.ID,
			RewardName: reward.Name,
		}
		return translateRepoErr(repos.Rewards.CreateClaim(ctx, claim), "сохранение обмена")
	})
	if err != nil {
		return nil, err
	}

	rewardsClaimedTotal.Inc()
	s.logger.Info("Вознаграждение получено",
		slog.String("claim_id", claim.ID),
		slog.String("reward_id", claim.RewardID),
		slog.String("user_id", actor.ID),
	)
	return claim, nil
}

// MyClaims возвращает обмены субъекта, новые первыми.
func (s *RewardService) MyClaims(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RewardClaim, error) {
	if err := authorize(actor, rbac.CapClaimRewards); err != nil {
		return nil, err
	}
	limit, offset = NormalizeLimit(limit, offset)

	claims, err := s.repos.Rewards.ListClaims(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение обменов: %w", err)
	}
	return claims, nil
}
