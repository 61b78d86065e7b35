// panels.go — сервис реестра панелей.
// Чтение одной панели идёт через LRU-кэш; любое изменение инвалидирует запись.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/repository"
)

const maxPanelNameLen = 200

// PanelService — сервис управления панелями.
type PanelService struct {
	repos  repository.Repositories
	tx     Transactor
	cache  *PanelCache
	logger *slog.Logger
}

// NewPanelService создаёт сервис панелей.
func NewPanelService(
	repos repository.Repositories,
	tx Transactor,
	cache *PanelCache,
	logger *slog.Logger,
) *PanelService {
	return &PanelService{
		repos:  repos,
		tx:     tx,
		cache:  cache,
		logger: logger.With(slog.String("component", "panel_service")),
	}
}

// PanelInput — данные для создания панели.
type PanelInput struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// List возвращает страницу панелей (сначала давно не проверенные) и общее количество.
func (s *PanelService) List(ctx context.Context, limit, offset int) ([]*model.Panel, int, error) {
	limit, offset = NormalizeLimit(limit, offset)

	panels, err := s.repos.Panels.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка панелей: %w", err)
	}
	total, err := s.repos.Panels.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт панелей: %w", err)
	}
	return panels, total, nil
}

// Get возвращает панель по ID (read-through кэш).
func (s *PanelService) Get(ctx context.Context, id string) (*model.Panel, error) {
	if p, ok := s.cache.Get(id); ok {
		return p, nil
	}

	p, err := s.repos.Panels.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "панель "+id)
	}
	s.cache.Set(p)
	return p, nil
}

// Create создаёт панель. Новая панель ни разу не проверялась.
func (s *PanelService) Create(ctx context.Context, actor rbac.Subject, in PanelInput) (*model.Panel, error) {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validatePanel(name, in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	p := &model.Panel{
		ID:        uuid.New().String(),
		Name:      name,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if err := s.repos.Panels.Create(ctx, p); err != nil {
		return nil, translateRepoErr(err, "создание панели")
	}

	s.logger.Info("Панель создана",
		slog.String("panel_id", p.ID),
		slog.String("name", p.Name),
		slog.String("by", actor.ID),
	)
	return p, nil
}

// Update частично обновляет метаданные панели. last_checked_at не меняется.
func (s *PanelService) Update(ctx context.Context, actor rbac.Subject, id string, patch model.PanelPatch) (*model.Panel, error) {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, validationErr("нет полей для обновления")
	}

	var updated *model.Panel
	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		p, err := repos.Panels.GetForUpdate(ctx, id)
		if err != nil {
			return translateRepoErr(err, "панель "+id)
		}

		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Latitude != nil {
			p.Latitude = *patch.Latitude
		}
		if patch.Longitude != nil {
			p.Longitude = *patch.Longitude
		}
		if err := validatePanel(p.Name, p.Latitude, p.Longitude); err != nil {
			return err
		}

		if err := repos.Panels.Update(ctx, p); err != nil {
			return translateRepoErr(err, "обновление панели")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Delete(id)
	s.logger.Info("Панель обновлена", slog.String("panel_id", id), slog.String("by", actor.ID))
	return updated, nil
}

// Delete удаляет панель. Пока на панель ссылается хотя бы одна проверка
// в статусе PENDING, удаление отклоняется с ErrConflict. История
// подтверждённых проверок удаляется каскадно.
func (s *PanelService) Delete(ctx context.Context, actor rbac.Subject, id string) error {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return err
	}

	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		// Блокировка строки панели не даёт параллельной отправке проверки
		// проскочить между подсчётом и удалением.
		if _, err := repos.Panels.GetForUpdate(ctx, id); err != nil {
			return translateRepoErr(err, "панель "+id)
		}

		pending, err := repos.Checks.CountPendingByPanel(ctx, id)
		if err != nil {
			return fmt.Errorf("подсчёт проверок панели: %w", err)
		}
		if pending > 0 {
			return fmt.Errorf("%w: у панели %d проверок в очереди", ErrConflict, pending)
		}

		return translateRepoErr(repos.Panels.Delete(ctx, id), "удаление панели")
	})
	if err != nil {
		return err
	}

	s.cache.Delete(id)
	s.logger.Info("Панель удалена", slog.String("panel_id", id), slog.String("by", actor.ID))
	return nil
}

func validatePanel(name string, lat, lon float64) error {
	if name == "" {
		return validationErr("название панели не может быть пустым")
	}
	if utf8.RuneCountInString(name) > maxPanelNameLen {
		return validationErr("название панели длиннее %d символов", maxPanelNameLen)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return validationErr("широта %v вне диапазона [-90, 90]", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return validationErr("долгота %v вне диапазона [-180, 180]", lon)
	}
	return nil
}
