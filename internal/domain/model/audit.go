// audit.go — журнал аудита.
// Append-only: записи никогда не обновляются и не удаляются.
package model

import "time"

// Действия, фиксируемые в журнале аудита.
const (
	AuditActionRegister   = "REGISTER"
	AuditActionLogin      = "LOGIN"
	AuditActionAssignRole = "ASSIGN_ROLE"
	AuditActionUpload     = "UPLOAD"
	AuditActionNewVersion = "NEW_VERSION"
	AuditActionDelete     = "DELETE"
)

// AuditLogEntry — одна запись журнала аудита.
// Запись журнала — best-effort эффект: сбой записи логируется,
// но никогда не откатывает основную операцию.
type AuditLogEntry struct {
	// ID — идентификатор записи
	ID int64
	// UserID — исполнитель (nil для анонимных/системных действий)
	UserID *int64
	// Action — тег действия (см. константы выше)
	Action string
	// Entity — имя затронутой сущности
	Entity string
	// EntityID — идентификатор затронутой сущности
	EntityID *int64
	// Timestamp — момент действия
	Timestamp time.Time
	// Detail — произвольная деталь (JSON или текст, опционально)
	Detail *string
}
