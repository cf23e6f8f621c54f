// audit.go — репозиторий журнала аудита. Только Append и чтение:
// записи никогда не обновляются и не удаляются.
package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/godms/internal/domain/model"
)

// AuditRepository — интерфейс append-only журнала аудита.
type AuditRepository interface {
	// Append добавляет запись журнала.
	Append(ctx context.Context, e *model.AuditLogEntry) error
	// ListByUser возвращает последние записи пользователя (новые первыми).
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.AuditLogEntry, error)
}

// auditRepo — реализация AuditRepository через pgx.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, e *model.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (user_id, action, entity, entity_id, ts, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		e.UserID, e.Action, e.Entity, e.EntityID, e.Timestamp, e.Detail,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал аудита: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.AuditLogEntry, error) {
	query := `
		SELECT id, user_id, action, entity, entity_id, ts, detail
		FROM audit_log
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала аудита: %w", err)
	}
	defer rows.Close()

	var result []*model.AuditLogEntry
	for rows.Next() {
		e := &model.AuditLogEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Entity, &e.EntityID, &e.Timestamp, &e.Detail); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации журнала аудита: %w", err)
	}
	return result, nil
}
