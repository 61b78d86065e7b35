// checks.go — журнал проверок панелей и их валидация.
//
// Валидация — одна транзакция:
//  1. проверка PENDING и её панель блокируются (FOR UPDATE)
//  2. награда считается от last_checked_at панели до обновления
//     и зачисляется на счёт автора (если > 0)
//  3. условный UPDATE статуса PENDING → VALIDATED
//  4. last_checked_at панели = время валидации
//
// Порядок шагов существенен: обновление свежести до расчёта награды
// исказило бы награду за эту и остальные проверки панели.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/domain/scoring"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// Ограничения длины в символах (рунах), как maxLength в OpenAPI.
const (
	maxCommentLen  = 2000
	maxEvidenceLen = 2048
)

// CheckService — отправка, очередь и валидация проверок.
type CheckService struct {
	repos  repository.Repositories
	tx     Transactor
	cache  *PanelCache
	now    Clock
	logger *slog.Logger
}

// NewCheckService создаёт сервис проверок.
func NewCheckService(
	repos repository.Repositories,
	tx Transactor,
	cache *PanelCache,
	logger *slog.Logger,
) *CheckService {
	return &CheckService{
		repos:  repos,
		tx:     tx,
		cache:  cache,
		now:    utcNow,
		logger: logger.With(slog.String("component", "check_service")),
	}
}

// SetClock подменяет источник времени.
func (s *CheckService) SetClock(now Clock) {
	s.now = now
}

// SubmitInput — данные проверки от пользователя.
type SubmitInput struct {
	PanelID     string
	State       model.CheckState
	Comment     *string
	EvidenceRef *string
}

// Submit сохраняет проверку в статусе PENDING. Свежесть панели не меняется.
// Несколько проверок одной панели (в том числе от одного пользователя) допустимы.
func (s *CheckService) Submit(ctx context.Context, actor rbac.Subject, in SubmitInput) (*model.CheckSubmission, error) {
	if err := authorize(actor, rbac.CapSubmitChecks); err != nil {
		return nil, err
	}
	if !in.State.IsValid() {
		return nil, validationErr("недопустимое состояние %q: допустимые OK, DAMAGED, MISSING, OTHER", in.State)
	}
	if in.Comment != nil && utf8.RuneCountInString(*in.Comment) > maxCommentLen {
		return nil, validationErr("комментарий длиннее %d символов", maxCommentLen)
	}
	if in.EvidenceRef != nil && utf8.RuneCountInString(*in.EvidenceRef) > maxEvidenceLen {
		return nil, validationErr("ссылка на доказательство длиннее %d символов", maxEvidenceLen)
	}

	c := &model.CheckSubmission{
		ID:          uuid.New().String(),
		PanelID:     in.PanelID,
		UserID:      actor.ID,
		UserName:    actor.Name,
		CheckedAt:   s.now(),
		State:       in.State,
		Comment:     in.Comment,
		EvidenceRef: in.EvidenceRef,
	}
	if err := s.repos.Checks.Create(ctx, c); err != nil {
		return nil, translateRepoErr(err, "панель "+in.PanelID)
	}

	checksSubmittedTotal.Inc()
	s.logger.Info("Проверка отправлена",
		slog.String("check_id", c.ID),
		slog.String("panel_id", c.PanelID),
		slog.String("user_id", c.UserID),
		slog.String("state", string(c.State)),
		slog.Bool("evidence", scoring.HasUsableEvidence(c.EvidenceRef)),
	)
	return c, nil
}

// ListMyPending возвращает проверки пользователя, ожидающие валидации (FIFO).
func (s *CheckService) ListMyPending(ctx context.Context, actor rbac.Subject) ([]*model.PendingCheck, error) {
	if err := authorize(actor, rbac.CapSubmitChecks); err != nil {
		return nil, err
	}
	checks, err := s.repos.Checks.ListPendingByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("получение проверок пользователя: %w", err)
	}
	return checks, nil
}

// ListPending возвращает очередь администратора: все PENDING, старые первыми.
func (s *CheckService) ListPending(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.PendingCheck, int, error) {
	if err := authorize(actor, rbac.CapReviewChecks); err != nil {
		return nil, 0, err
	}
	limit, offset = NormalizeLimit(limit, offset)

	checks, err := s.repos.Checks.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение очереди проверок: %w", err)
	}
	total, err := s.repos.Checks.CountPending(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт очереди проверок: %w", err)
	}
	return checks, total, nil
}

// Validate подтверждает проверку и возвращает панель после обновления.
//
// ErrNotFound — проверки нет или она уже не PENDING (в том числе если
// параллельная валидация зафиксировалась первой). Повторный вызов после
// успешного никогда не начисляет баллы второй раз.
func (s *CheckService) Validate(ctx context.Context, actor rbac.Subject, checkID string) (*model.Panel, error) {
	if err := authorize(actor, rbac.CapValidateChecks); err != nil {
		return nil, err
	}

	var (
		panel   *model.Panel
		award   int
		awarded bool
		check   *model.CheckForValidation
	)

	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		check, err = repos.Checks.GetPendingForValidation(ctx, checkID)
		if err != nil {
			return translateRepoErr(err, "проверка "+checkID+" в статусе PENDING")
		}

		validatedAt := s.now()

		// 1. Награда — от свежести панели до обновления.
		if check.PointsAttributed != nil {
			award = *check.PointsAttributed
		} else {
			staleness := scoring.StalenessBetween(check.PanelLastCheckedAt, check.CheckedAt)
			award = scoring.Score(staleness, scoring.HasUsableEvidence(check.EvidenceRef))

			if award > 0 {
				ref := check.ID
				if _, err := repos.Ledger.Credit(ctx, check.UserID, award, model.ReasonCheckValidated, &ref); err != nil {
					return translateRepoErr(err, "начисление за проверку "+check.ID)
				}
				awarded = true
			}

			s.logger.Debug("Награда рассчитана",
				slog.String("check_id", check.ID),
				slog.String("staleness", staleness.String()),
				slog.Int("points", award),
			)
		}

		// 2. PENDING → VALIDATED; 0 строк — проверку уже обработали.
		if err := repos.Checks.MarkValidated(ctx, check.ID, award, validatedAt, actor.ID); err != nil {
			return translateRepoErr(err, "проверка "+check.ID+" в статусе PENDING")
		}

		// 3. Свежесть панели — время валидации, не время отправки.
		panel, err = repos.Panels.TouchFreshness(ctx, check.PanelID, validatedAt)
		if err != nil {
			return translateRepoErr(err, "панель "+check.PanelID)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("Ошибка валидации проверки",
				slog.String("check_id", checkID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.cache.Delete(panel.ID)

	checksValidatedTotal.WithLabelValues(strconv.Itoa(award)).Inc()
	if awarded {
		pointsAwardedTotal.Add(float64(award))
	}

	s.logger.Info("Проверка подтверждена",
		slog.String("check_id", check.ID),
		slog.String("panel_id", panel.ID),
		slog.String("user_id", check.UserID),
		slog.Int("points", award),
		slog.String("by", actor.ID),
	)
	return panel, nil
}
