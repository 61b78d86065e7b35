// mel.go — объекты MEL, их знаки, справочник типов знаков и отметки
// пользователей. Объект адресуется координатами (lat, lon), знак — числовым ID.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/civicwatch/civicwatch/internal/domain/model"
	"github.com/civicwatch/civicwatch/internal/domain/rbac"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// MelService — CRUD объектов MEL и знаков, отметки пользователей.
type MelService struct {
	repos  repository.Repositories
	tx     Transactor
	logger *slog.Logger
}

// NewMelService создаёт сервис объектов MEL.
func NewMelService(repos repository.Repositories, tx Transactor, logger *slog.Logger) *MelService {
	return &MelService{
		repos:  repos,
		tx:     tx,
		logger: logger.With(slog.String("component", "mel_service")),
	}
}

// --- Объекты ---

// ListProperties возвращает объекты, свежие отчёты первыми.
func (s *MelService) ListProperties(ctx context.Context, limit, offset int) ([]*model.MelProperty, error) {
	limit, offset = NormalizeLimit(limit, offset)
	props, err := s.repos.MelProperties.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение объектов MEL: %w", err)
	}
	return props, nil
}

// GetProperty возвращает объект по координатам.
func (s *MelService) GetProperty(ctx context.Context, loc model.Location) (*model.MelProperty, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	p, err := s.repos.MelProperties.Get(ctx, loc)
	if err != nil {
		return nil, translateRepoErr(err, locationString(loc))
	}
	return p, nil
}

// CreateProperty создаёт объект. ErrConflict — по этим координатам объект уже есть.
func (s *MelService) CreateProperty(ctx context.Context, actor rbac.Subject, p *model.MelProperty) error {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return err
	}
	if err := validateLocation(p.Location); err != nil {
		return err
	}
	if p.PointsValue < 0 || p.NumberOfSigns < 0 {
		return validationErr("points_value и number_of_signs не могут быть отрицательными")
	}

	p.Creator = actor.ID
	if err := s.repos.MelProperties.Create(ctx, p); err != nil {
		return translateRepoErr(err, "объект "+locationString(p.Location))
	}

	s.logger.Info("Объект MEL создан",
		slog.Float64("lat", p.Location.Lat),
		slog.Float64("lon", p.Location.Lon),
		slog.String("by", actor.ID),
	)
	return nil
}

// UpdateProperty частично обновляет объект.
func (s *MelService) UpdateProperty(ctx context.Context, actor rbac.Subject, loc model.Location, patch model.MelPropertyPatch) (*model.MelProperty, error) {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return nil, err
	}
	p, err := s.GetProperty(ctx, loc)
	if err != nil {
		return nil, err
	}

	if patch.NaturalSpace != nil {
		p.NaturalSpace = *patch.NaturalSpace
	}
	if patch.PointsValue != nil {
		p.PointsValue = *patch.PointsValue
	}
	if patch.NumberOfSigns != nil {
		p.NumberOfSigns = *patch.NumberOfSigns
	}
	if p.PointsValue < 0 || p.NumberOfSigns < 0 {
		return nil, validationErr("points_value и number_of_signs не могут быть отрицательными")
	}

	if err := s.repos.MelProperties.Update(ctx, p); err != nil {
		return nil, translateRepoErr(err, "объект "+locationString(loc))
	}
	return p, nil
}

// DeleteProperty удаляет объект вместе со знаками.
func (s *MelService) DeleteProperty(ctx context.Context, actor rbac.Subject, loc model.Location) error {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return err
	}
	if err := s.repos.MelProperties.Delete(ctx, loc); err != nil {
		return translateRepoErr(err, "объект "+locationString(loc))
	}
	s.logger.Info("Объект MEL удалён",
		slog.Float64("lat", loc.Lat),
		slog.Float64("lon", loc.Lon),
		slog.String("by", actor.ID),
	)
	return nil
}

// --- Знаки ---

// ListSigns возвращает знаки; при loc != nil — только знаки объекта.
func (s *MelService) ListSigns(ctx context.Context, loc *model.Location, limit, offset int) ([]*model.MelSign, error) {
	limit, offset = NormalizeLimit(limit, offset)
	signs, err := s.repos.MelSigns.List(ctx, loc, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение знаков MEL: %w", err)
	}
	return signs, nil
}

// GetSign возвращает знак по ID.
func (s *MelService) GetSign(ctx context.Context, id int64) (*model.MelSign, error) {
	sign, err := s.repos.MelSigns.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, fmt.Sprintf("знак %d", id))
	}
	return sign, nil
}

// CreateSign добавляет знак к существующему объекту.
// Тип знака должен быть в справочнике.
func (s *MelService) CreateSign(ctx context.Context, actor rbac.Subject, sign *model.MelSign) error {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return err
	}
	if err := validateSign(sign); err != nil {
		return err
	}
	if err := s.repos.MelSigns.Create(ctx, sign); err != nil {
		if errors.Is(err, repository.ErrUnknownSignType) {
			return translateRepoErr(err, "тип знака "+sign.SignType)
		}
		return translateRepoErr(err, "объект "+locationString(sign.Location))
	}
	return nil
}

// UpdateSign частично обновляет знак.
func (s *MelService) UpdateSign(ctx context.Context, actor rbac.Subject, id int64, patch model.MelSignPatch) (*model.MelSign, error) {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return nil, err
	}
	sign, err := s.repos.MelSigns.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, fmt.Sprintf("знак %d", id))
	}

	if patch.SignType != nil {
		sign.SignType = strings.TrimSpace(*patch.SignType)
	}
	if patch.Tagged != nil {
		sign.Tagged = *patch.Tagged
	}
	if patch.DeterioratedInfo != nil {
		sign.DeterioratedInfo = *patch.DeterioratedInfo
	}
	if patch.HiddenByEnvironment != nil {
		sign.HiddenByEnvironment = *patch.HiddenByEnvironment
	}
	if patch.Standing != nil {
		sign.Standing = *patch.Standing
	}
	if patch.Present != nil {
		sign.Present = *patch.Present
	}
	if patch.ComponentTotal != nil {
		sign.ComponentTotal = *patch.ComponentTotal
	}
	if err := validateSign(sign); err != nil {
		return nil, err
	}

	if err := s.repos.MelSigns.Update(ctx, sign); err != nil {
		if errors.Is(err, repository.ErrUnknownSignType) {
			return nil, translateRepoErr(err, "тип знака "+sign.SignType)
		}
		return nil, translateRepoErr(err, fmt.Sprintf("знак %d", id))
	}
	return sign, nil
}

// DeleteSign удаляет знак.
func (s *MelService) DeleteSign(ctx context.Context, actor rbac.Subject, id int64) error {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return err
	}
	return translateRepoErr(s.repos.MelSigns.Delete(ctx, id), fmt.Sprintf("знак %d", id))
}

// --- Типы знаков ---

// ListSignTypes возвращает справочник типов знаков.
func (s *MelService) ListSignTypes(ctx context.Context) ([]*model.MelSignType, error) {
	types, err := s.repos.MelSignTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение типов знаков: %w", err)
	}
	return types, nil
}

// CreateSignType добавляет тип знака. ErrConflict — тип уже есть.
func (s *MelService) CreateSignType(ctx context.Context, actor rbac.Subject, name string) (*model.MelSignType, error) {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return nil, err
	}
	t := &model.MelSignType{Name: strings.TrimSpace(name)}
	if err := validateSignType(t.Name); err != nil {
		return nil, err
	}
	if err := s.repos.MelSignTypes.Create(ctx, t); err != nil {
		return nil, translateRepoErr(err, "тип знака "+t.Name)
	}

	s.logger.Info("Тип знака добавлен",
		slog.String("sign_type", t.Name),
		slog.String("by", actor.ID),
	)
	return t, nil
}

// DeleteSignType удаляет тип знака. ErrConflict — тип используется знаками.
func (s *MelService) DeleteSignType(ctx context.Context, actor rbac.Subject, name string) error {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return err
	}
	if err := s.repos.MelSignTypes.Delete(ctx, name); err != nil {
		return translateRepoErr(err, "тип знака "+name)
	}
	s.logger.Info("Тип знака удалён",
		slog.String("sign_type", name),
		slog.String("by", actor.ID),
	)
	return nil
}

// --- Отметки ---

// Report сохраняет отметку пользователя об объекте и сдвигает
// last_report объекта. Обе записи меняются в одной транзакции.
func (s *MelService) Report(ctx context.Context, actor rbac.Subject, loc model.Location) (*model.MelReport, error) {
	if err := authorize(actor, rbac.CapReportProperties); err != nil {
		return nil, err
	}
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	rep := &model.MelReport{UserID: actor.ID, Location: loc}
	err := s.tx.InTx(ctx, func(repos repository.Repositories) error {
		if err := repos.MelReports.Upsert(ctx, rep); err != nil {
			return err
		}
		_, err := repos.MelProperties.TouchReport(ctx, loc)
		return err
	})
	if err != nil {
		return nil, translateRepoErr(err, "объект "+locationString(loc))
	}

	s.logger.Info("Отметка объекта MEL",
		slog.Float64("lat", loc.Lat),
		slog.Float64("lon", loc.Lon),
		slog.String("user_id", actor.ID),
	)
	return rep, nil
}

// ListMyReports возвращает отметки текущего пользователя.
func (s *MelService) ListMyReports(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error) {
	limit, offset = NormalizeLimit(limit, offset)
	reps, err := s.repos.MelReports.ListByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение отметок MEL: %w", err)
	}
	return reps, nil
}

// ListReports возвращает отметки всех пользователей (admin).
func (s *MelService) ListReports(ctx context.Context, actor rbac.Subject, limit, offset int) ([]*model.MelReport, error) {
	if err := authorize(actor, rbac.CapManageAssets); err != nil {
		return nil, err
	}
	limit, offset = NormalizeLimit(limit, offset)
	reps, err := s.repos.MelReports.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение отметок MEL: %w", err)
	}
	return reps, nil
}

func validateLocation(loc model.Location) error {
	if math.IsNaN(loc.Lat) || loc.Lat < -90 || loc.Lat > 90 {
		return validationErr("широта %v вне диапазона [-90, 90]", loc.Lat)
	}
	if math.IsNaN(loc.Lon) || loc.Lon < -180 || loc.Lon > 180 {
		return validationErr("долгота %v вне диапазона [-180, 180]", loc.Lon)
	}
	return nil
}

func validateSign(sign *model.MelSign) error {
	sign.SignType = strings.TrimSpace(sign.SignType)
	if err := validateSignType(sign.SignType); err != nil {
		return err
	}
	if sign.ComponentTotal < 0 {
		return validationErr("component_total не может быть отрицательным")
	}
	return validateLocation(sign.Location)
}

func validateSignType(name string) error {
	if name == "" {
		return validationErr("тип знака не может быть пустым")
	}
	if utf8.RuneCountInString(name) > 100 {
		return validationErr("тип знака длиннее 100 символов")
	}
	return nil
}

func locationString(loc model.Location) string {
	return fmt.Sprintf("(%g, %g)", loc.Lat, loc.Lon)
}
