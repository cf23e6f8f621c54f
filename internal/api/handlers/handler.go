// handler.go — корневой обработчик API DMS и маршрутизация chi.
// Объединяет health, auth, классификацию, документы, поиск и аудит.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/godms/internal/api/errors"
	"github.com/bigkaa/godms/internal/api/middleware"
	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/service"
)

// APIHandler — корневой обработчик API DMS.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health    *HealthHandler
	authSvc   *service.AuthService
	classSvc  *service.ClassificationService
	docSvc    *service.DocumentService
	searchSvc *service.SearchService
	auditSvc  *service.AuditService
	logger    *slog.Logger
}

// NewAPIHandler создаёт корневой обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	authSvc *service.AuthService,
	classSvc *service.ClassificationService,
	docSvc *service.DocumentService,
	searchSvc *service.SearchService,
	auditSvc *service.AuditService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		authSvc:   authSvc,
		classSvc:  classSvc,
		docSvc:    docSvc,
		searchSvc: searchSvc,
		auditSvc:  auditSvc,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует маршруты API на роутере.
// jwtMW — middleware аутентификации; health и login остаются публичными.
func (h *APIHandler) Routes(r chi.Router, jwtMW func(http.Handler) http.Handler) {
	// Публичные endpoints
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)
	r.Post("/api/v1/auth/login", h.Login)

	// Защищённые endpoints
	r.Group(func(r chi.Router) {
		r.Use(jwtMW)

		r.Post("/api/v1/auth/change-password", h.ChangePassword)

		r.Get("/api/v1/categories", h.ListCategories)
		r.Get("/api/v1/categories/{categoryID}/subcategories", h.ListSubcategories)
		r.Get("/api/v1/subcategories/{subcategoryID}/document-types", h.ListDocumentTypes)
		r.Get("/api/v1/document-types/{documentTypeID}/path", h.ResolvePath)

		r.Post("/api/v1/documents", h.UploadDocument)
		r.Get("/api/v1/documents/{documentID}", h.GetDocument)
		r.Delete("/api/v1/documents/{documentID}", h.DeleteDocument)
		r.Get("/api/v1/documents/{documentID}/download", h.DownloadDocument)
		r.Get("/api/v1/documents/{documentID}/presign", h.PresignDownload)
		r.Post("/api/v1/documents/{documentID}/versions", h.AddDocumentVersion)
		r.Get("/api/v1/documents/{documentID}/versions", h.ListDocumentVersions)

		r.Get("/api/v1/search", h.Search)

		// Только для Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Post("/api/v1/auth/register", h.Register)
			r.Post("/api/v1/auth/assign-role", h.AssignRole)
			r.Post("/api/v1/document-types", h.CreateDocumentType)
			r.Put("/api/v1/document-types/{documentTypeID}", h.UpdateDocumentType)
			r.Get("/api/v1/audit/users/{userID}", h.AuditHistory)
		})
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// identity извлекает access.Identity из контекста запроса.
// Возвращает false и пишет 401, если JWT middleware не отработал.
func identity(w http.ResponseWriter, r *http.Request) (access.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
	}
	return id, ok
}

// pathID извлекает числовой идентификатор из URL-параметра chi.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		apierrors.ValidationError(w, "некорректный идентификатор: "+raw)
		return 0, false
	}
	return id, true
}

// queryInt возвращает целочисленный query-параметр или значение по умолчанию.
func queryInt(r *http.Request, name string, defaultVal int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryInt64Ptr возвращает указатель на int64 query-параметр (nil, если не задан).
func queryInt64Ptr(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// queryDatePtr возвращает дату из query-параметра в формате YYYY-MM-DD.
func queryDatePtr(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decodeJSON декодирует тело запроса, отклоняя неизвестные поля.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return false
	}
	return true
}

// --- DTO ---

// documentResponse — представление документа в API.
type documentResponse struct {
	ID             int64      `json:"id"`
	OriginalName   string     `json:"original_name"`
	ContentType    string     `json:"content_type"`
	SizeBytes      int64      `json:"size_bytes"`
	DocumentTypeID int64      `json:"document_type_id"`
	FolderID       *int64     `json:"folder_id,omitempty"`
	CurrentVersion int        `json:"current_version"`
	Metadata       *string    `json:"metadata,omitempty"`
	DocumentDate   *string    `json:"document_date,omitempty"`
	ActiveUntil    *string    `json:"active_until,omitempty"`
	ArchiveUntil   *string    `json:"archive_until,omitempty"`
	CreatedBy      *int64     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// toDocumentResponse конвертирует domain-модель в API-представление.
func toDocumentResponse(doc *model.Document) documentResponse {
	return documentResponse{
		ID:             doc.ID,
		OriginalName:   doc.OriginalName,
		ContentType:    doc.ContentType,
		SizeBytes:      doc.SizeBytes,
		DocumentTypeID: doc.DocumentTypeID,
		FolderID:       doc.FolderID,
		CurrentVersion: doc.CurrentVersion,
		Metadata:       doc.MetadataJSON,
		DocumentDate:   dateStr(doc.DocumentDate),
		ActiveUntil:    dateStr(doc.ActiveUntil),
		ArchiveUntil:   dateStr(doc.ArchiveUntil),
		CreatedBy:      doc.CreatedBy,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

// dateStr форматирует дату как YYYY-MM-DD (даты без времени в API).
func dateStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
