package model

import "time"

// CheckStatus — статус проверки. Переход только PENDING → VALIDATED.
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "PENDING"
	CheckStatusValidated CheckStatus = "VALIDATED"
)

// CheckState — наблюдаемое состояние панели.
type CheckState string

const (
	CheckStateOK      CheckState = "OK"
	CheckStateDamaged CheckState = "DAMAGED"
	CheckStateMissing CheckState = "MISSING"
	CheckStateOther   CheckState = "OTHER"
)

// IsValid проверяет, является ли состояние допустимым.
func (s CheckState) IsValid() bool {
	switch s {
	case CheckStateOK, CheckStateDamaged, CheckStateMissing, CheckStateOther:
		return true
	}
	return false
}

// CheckSubmission — заявка пользователя о проверке панели.
// Хранится в таблице check_submissions.
type CheckSubmission struct {
	// ID — UUID проверки
	ID string
	// PanelID — панель, к которой относится проверка
	PanelID string
	// UserID — sub пользователя, отправившего проверку
	UserID string
	// UserName — отображаемое имя автора на момент отправки
	UserName string
	// CheckedAt — время отправки
	CheckedAt time.Time
	Status    CheckStatus
	State     CheckState
	// Comment — необязательный комментарий
	Comment *string
	// EvidenceRef — ссылка на фото (может быть nil)
	EvidenceRef *string
	// PointsAttributed — начисленные баллы; записываются один раз при валидации
	PointsAttributed *int
	// ValidatedAt — время валидации
	ValidatedAt *time.Time
	// ValidatedBy — sub администратора
	ValidatedBy *string
}

// PendingCheck — проверка в очереди администратора вместе с контекстом панели.
type PendingCheck struct {
	CheckSubmission
	// PanelName — название панели
	PanelName string
}

// CheckForValidation — проверка в статусе PENDING и текущее состояние панели,
// заблокированные на время транзакции валидации.
type CheckForValidation struct {
	CheckSubmission
	// PanelLastCheckedAt — last_checked_at панели до обновления
	PanelLastCheckedAt *time.Time
}
