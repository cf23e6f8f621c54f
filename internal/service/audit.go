// audit.go — сервис журнала аудита.
// Запись — best-effort: сбой журнала логируется, но никогда не
// прерывает основную операцию. История пользователя читается отдельно.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/repository"
)

// Prometheus-метрики аудита.
var (
	auditEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dms_audit_entries_total",
		Help: "Количество записей аудита по действию и результату.",
	}, []string{"action", "result"})
)

// AuditService — журнал действий пользователей.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

// NewAuditService создаёт сервис аудита.
func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger.With(slog.String("component", "audit_service")),
	}
}

// Record фиксирует действие пользователя. Никогда не возвращает ошибку:
// сбой записи только логируется и учитывается в метриках.
func (s *AuditService) Record(ctx context.Context, userID *int64, action, entity string, entityID *int64, detail *string) {
	entry := &model.AuditLogEntry{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		auditEntriesTotal.WithLabelValues(action, "error").Inc()
		s.logger.Error("Сбой записи аудита",
			slog.String("action", action),
			slog.String("entity", entity),
			slog.String("error", err.Error()),
		)
		return
	}
	auditEntriesTotal.WithLabelValues(action, "ok").Inc()
}

// History возвращает последние записи аудита пользователя.
func (s *AuditService) History(ctx context.Context, userID int64, limit int) ([]*model.AuditLogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
