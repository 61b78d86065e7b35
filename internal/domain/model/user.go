package model

import "time"

// RoleOverride — локальное дополнение роли пользователя.
// Хранится в таблице role_overrides.
type RoleOverride struct {
	// ID — UUID записи
	ID string
	// UserID — sub пользователя из JWT
	UserID string
	// Username — кэшированное имя пользователя
	Username string
	// AdditionalRole — дополнительная роль (user, admin)
	AdditionalRole string
	// CreatedBy — кто установил override (sub администратора)
	CreatedBy string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
