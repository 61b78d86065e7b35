package model

import "time"

// Location — географическая точка; составной ключ объектов MEL.
type Location struct {
	Lat float64
	Lon float64
}

// MelProperty — объект MEL (территория с набором знаков).
// Хранится в таблице mel_properties, ключ — (lat, lon).
type MelProperty struct {
	Location      Location
	LastReport    time.Time
	NaturalSpace  bool
	PointsValue   int
	NumberOfSigns int
	// Creator — sub пользователя, создавшего объект
	Creator string
}

// MelPropertyPatch — частичное обновление объекта MEL.
type MelPropertyPatch struct {
	NaturalSpace  *bool
	PointsValue   *int
	NumberOfSigns *int
}

// MelSign — знак на объекте MEL.
type MelSign struct {
	ID                  int64
	Location            Location
	SignType            string
	Tagged              bool
	DeterioratedInfo    bool
	HiddenByEnvironment bool
	Standing            bool
	Present             bool
	ComponentTotal      int
}

// MelSignPatch — частичное обновление знака.
type MelSignPatch struct {
	SignType            *string
	Tagged              *bool
	DeterioratedInfo    *bool
	HiddenByEnvironment *bool
	Standing            *bool
	Present             *bool
	ComponentTotal      *int
}

// MelSignType — допустимый тип знака (справочник mel_sign_types).
type MelSignType struct {
	Name string
}

// MelReport — отметка пользователя о посещении объекта MEL.
// Одна запись на пару (пользователь, объект); повторная отметка
// обновляет ReportedAt.
type MelReport struct {
	UserID     string
	Location   Location
	ReportedAt time.Time
}
