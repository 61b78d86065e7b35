package model

import "time"

// Причины движений по счёту баллов.
const (
	// ReasonCheckValidated — начисление за подтверждённую проверку
	ReasonCheckValidated = "CHECK_VALIDATED"
	// ReasonRewardClaim — списание при обмене баллов на вознаграждение
	ReasonRewardClaim = "REWARD_CLAIM"
)

// LedgerEntry — запись журнала баллов. Никогда не изменяется и не удаляется.
// Хранится в таблице point_ledger_entries.
type LedgerEntry struct {
	// ID — UUID записи
	ID string
	// UserID — владелец счёта
	UserID string
	// Amount — сумма со знаком: > 0 начисление, < 0 списание
	Amount int
	// Reason — тег причины (CHECK_VALIDATED, REWARD_CLAIM)
	Reason string
	// ReferenceID — исходная сущность (проверка, вознаграждение)
	ReferenceID *string
	// CreatedAt — время записи
	CreatedAt time.Time
}
