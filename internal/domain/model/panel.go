// Пакет model — доменные модели civicwatch.
package model

import "time"

// Panel — городской дорожный знак (панель), подлежащий периодической проверке.
// Хранится в таблице panels.
type Panel struct {
	// ID — UUID панели
	ID string
	// Name — человекочитаемое название
	Name string
	// Latitude — широта
	Latitude float64
	// Longitude — долгота
	Longitude float64
	// LastCheckedAt — время последней подтверждённой проверки.
	// nil — панель ни разу не проверялась.
	LastCheckedAt *time.Time
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// PanelPatch — частичное обновление метаданных панели.
// nil-поля не изменяются.
type PanelPatch struct {
	Name      *string
	Latitude  *float64
	Longitude *float64
}

// IsEmpty возвращает true, если патч ничего не меняет.
func (p PanelPatch) IsEmpty() bool {
	return p.Name == nil && p.Latitude == nil && p.Longitude == nil
}
