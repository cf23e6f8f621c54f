// user.go — пользователи и роли.
// У пользователя ровно одна роль; переназначение роли — явная
// административная операция, фиксируемая в журнале аудита.
package model

import "time"

// Role — запись реестра ролей.
// Реестр фиксирован: одна привилегированная роль Admin, остальные
// отображаются 1:1 на категории через конфигурацию Access Resolver.
type Role struct {
	// ID — идентификатор роли
	ID int64
	// Name — уникальное имя роли (Admin, GestClinica, ...)
	Name string
}

// User — учётная запись пользователя.
type User struct {
	// ID — идентификатор пользователя
	ID int64
	// Username — уникальное имя для входа
	Username string
	// PasswordHash — bcrypt-хэш пароля (непрозрачный для остального кода)
	PasswordHash string
	// RoleID — единственная роль пользователя
	RoleID int64
	// RoleName — имя роли (join к roles, заполняется при чтении)
	RoleName string
	// FullName — отображаемое имя (опционально)
	FullName *string
	// Email — адрес почты (опционально)
	Email *string
	// IsActive — неактивные пользователи не могут входить
	IsActive bool
	// MustChangePassword — требование смены пароля при следующем входе
	MustChangePassword bool
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time
}
