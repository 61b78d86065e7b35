// role_overrides.go — локальные дополнения ролей.
// Итоговая роль = max(роль из токена, дополнение): дополнение может только повысить.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// RoleOverrideService — управление локальными дополнениями ролей.
type RoleOverrideService struct {
	repo   repository.RoleOverrideRepository
	logger *slog.Logger
}

// NewRoleOverrideService создаёт сервис дополнений ролей.
func NewRoleOverrideService(repo repository.RoleOverrideRepository, logger *slog.Logger) *RoleOverrideService {
	return &RoleOverrideService{
		repo:   repo,
		logger: logger.With(slog.String("component", "role_override_service")),
	}
}

// GetRoleOverride возвращает дополнительную роль пользователя или nil.
// Используется JWT middleware при вычислении итоговой роли.
// Если имя из токена отличается от сохранённого, запись обновляется;
// ошибка обновления только логируется.
func (s *RoleOverrideService) GetRoleOverride(ctx context.Context, userID, username string) (*string, error) {
	ro, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("получение role override: %w", err)
	}

	if username != "" && username != ro.Username {
		if err := s.repo.UpdateUsername(ctx, userID, username); err != nil {
			s.logger.Warn("Не удалось обновить username в role override",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return &ro.AdditionalRole, nil
}

// List возвращает страницу дополнений ролей и их общее количество.
func (s *RoleOverrideService) List(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.RoleOverride, int, error) {
	if err := authorize(actor, rbac.CapManageRoles); err != nil {
		return nil, 0, err
	}
	limit, offset = NormalizeLimit(limit, offset)

	list, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка role overrides: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт role overrides: %w", err)
	}
	return list, total, nil
}

// Set создаёт или обновляет дополнение роли пользователя.
func (s *RoleOverrideService) Set(ctx context.Context, actor rbac.Subject, userID, username, role string) (*model.RoleOverride, error) {
	if err := authorize(actor, rbac.CapManageRoles); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, validationErr("не указан пользователь")
	}
	if !rbac.IsValidRole(role) {
		return nil, ErrInvalidRole
	}

	ro := &model.RoleOverride{
		UserID:         userID,
		Username:       username,
		AdditionalRole: role,
		CreatedBy:      actor.ID,
	}
	if err := s.repo.Upsert(ctx, ro); err != nil {
		return nil, fmt.Errorf("сохранение role override: %w", err)
	}

	s.logger.Info("Role override установлен",
		slog.String("user_id", userID),
		slog.String("role", role),
		slog.String("by", actor.ID),
	)
	return ro, nil
}

// Delete удаляет дополнение роли пользователя.
func (s *RoleOverrideService) Delete(ctx context.Context, actor rbac.Subject, userID string) error {
	if err := authorize(actor, rbac.CapManageRoles); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return translateRepoErr(err, "role override "+userID)
	}
	s.logger.Info("Role override удалён",
		slog.String("user_id", userID),
		slog.String("by", actor.ID),
	)
	return nil
}
