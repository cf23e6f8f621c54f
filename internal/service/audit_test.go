package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/bigkaa/godms/internal/domain/model"
)

// TestAuditService_Record проверяет запись действия.
func TestAuditService_Record(t *testing.T) {
	var recorded *model.AuditLogEntry
	repo := &mockAuditRepo{
		appendFn: func(_ context.Context, e *model.AuditLogEntry) error {
			recorded = e
			return nil
		},
	}
	svc := NewAuditService(repo, slog.Default())

	svc.Record(context.Background(), int64Ptr(7), model.AuditActionUpload, "document", int64Ptr(42), strPtr("factura.pdf"))

	if recorded == nil {
		t.Fatal("запись аудита не дошла до репозитория")
	}
	if recorded.Action != model.AuditActionUpload {
		t.Errorf("Action = %q, ожидалось %q", recorded.Action, model.AuditActionUpload)
	}
	if recorded.EntityID == nil || *recorded.EntityID != 42 {
		t.Errorf("EntityID = %v, ожидалось 42", recorded.EntityID)
	}
	if recorded.Timestamp.IsZero() {
		t.Error("Timestamp не заполнен")
	}
}

// TestAuditService_Record_SwallowsFailure: сбой журнала не распространяется.
// Контракт best-effort: Record не имеет возвращаемой ошибки, и сбой
// репозитория не должен приводить к панике.
func TestAuditService_Record_SwallowsFailure(t *testing.T) {
	repo := &mockAuditRepo{
		appendFn: func(_ context.Context, _ *model.AuditLogEntry) error {
			return errors.New("база недоступна")
		},
	}
	svc := NewAuditService(repo, slog.Default())

	svc.Record(context.Background(), int64Ptr(7), model.AuditActionDelete, "document", int64Ptr(1), nil)
}

// TestAuditService_History_LimitDefaults проверяет нормализацию limit.
func TestAuditService_History_LimitDefaults(t *testing.T) {
	cases := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"Ноль", 0, 100},
		{"Отрицательный", -5, 100},
		{"Слишком большой", 5000, 100},
		{"Обычный", 20, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockAuditRepo{
				listByUserFn: func(_ context.Context, _ int64, limit int) ([]*model.AuditLogEntry, error) {
					if limit != tc.wantLimit {
						t.Errorf("limit = %d, ожидался %d", limit, tc.wantLimit)
					}
					return nil, nil
				},
			}
			svc := NewAuditService(repo, slog.Default())
			if _, err := svc.History(context.Background(), 7, tc.limit); err != nil {
				t.Fatalf("History ошибка: %v", err)
			}
		})
	}
}
