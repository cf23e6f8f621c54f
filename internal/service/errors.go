// errors.go — ошибки сервисного слоя.
// Сентинельные значения; конкретика добавляется обёрткой через %w.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден (или мягко удалён).
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — категория ресурса вне множества, видимого вызывающему.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("некорректные данные")
	// ErrConflict — конфликт уникальности (дубликат).
	ErrConflict = errors.New("конфликт данных")
	// ErrUnauthorized — неверные учётные данные или неактивный пользователь.
	ErrUnauthorized = errors.New("не авторизован")
	// ErrUpstream — сбой внешней зависимости (объектное хранилище).
	ErrUpstream = errors.New("сбой внешней зависимости")
)
