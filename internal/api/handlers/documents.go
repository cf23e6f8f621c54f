// documents.go — обработчики жизненного цикла документов.
// POST   /api/v1/documents                    — загрузка (multipart)
// GET    /api/v1/documents/{id}               — метаданные
// DELETE /api/v1/documents/{id}               — мягкое удаление
// GET    /api/v1/documents/{id}/download      — скачивание через proxy
// GET    /api/v1/documents/{id}/presign       — временная ссылка
// POST   /api/v1/documents/{id}/versions      — новая версия (multipart)
// GET    /api/v1/documents/{id}/versions      — история версий
package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/godms/internal/api/errors"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/service"
)

// maxMultipartMemory — лимит буферизации multipart-формы в памяти,
// остальное уходит во временные файлы.
const maxMultipartMemory = 10 << 20

// UploadDocument — POST /api/v1/documents.
// Форма: file (обязательно), document_type_id (обязательно),
// folder_id, document_date (YYYY-MM-DD), metadata (JSON) — опционально.
func (h *APIHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	file, header, ok := h.multipartFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	documentTypeID, err := strconv.ParseInt(r.FormValue("document_type_id"), 10, 64)
	if err != nil || documentTypeID <= 0 {
		apierrors.ValidationError(w, "document_type_id обязателен и должен быть положительным числом")
		return
	}

	params := service.UploadParams{
		OriginalName:   header.Filename,
		ContentType:    formContentType(header),
		Content:        file,
		DocumentTypeID: documentTypeID,
	}

	if raw := r.FormValue("folder_id"); raw != "" {
		folderID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apierrors.ValidationError(w, "некорректный folder_id: "+raw)
			return
		}
		params.FolderID = &folderID
	}

	if raw := r.FormValue("document_date"); raw != "" {
		docDate, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			apierrors.ValidationError(w, "некорректная document_date, ожидается YYYY-MM-DD: "+raw)
			return
		}
		params.DocumentDate = &docDate
	}

	if raw := r.FormValue("metadata"); raw != "" {
		params.MetadataJSON = &raw
	}

	doc, err := h.docSvc.Upload(r.Context(), caller, params)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// GetDocument — GET /api/v1/documents/{documentID}.
// Чужой документ маскируется под 404.
func (h *APIHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	doc, err := h.docSvc.Get(r.Context(), caller, documentID)
	if err != nil {
		apierrors.FromService(w, err, true)
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// DeleteDocument — DELETE /api/v1/documents/{documentID}. Мягкое удаление, идемпотентно.
func (h *APIHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	if err := h.docSvc.SoftDelete(r.Context(), caller, documentID); err != nil {
		apierrors.FromService(w, err, true)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadDocument — GET /api/v1/documents/{documentID}/download.
// Стримит блоб через сервис (proxy), не раскрывая ключи хранилища.
func (h *APIHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	rc, doc, err := h.docSvc.Download(r.Context(), caller, documentID)
	if err != nil {
		apierrors.FromService(w, err, true)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	if doc.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}

	if _, err := io.Copy(w, rc); err != nil {
		// Заголовки уже отправлены, остаётся только залогировать
		h.logger.Error("Ошибка стриминга блоба",
			slog.Int64("document_id", documentID),
			slog.String("error", err.Error()),
		)
	}
}

// presignResponse — временная ссылка на скачивание.
type presignResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PresignDownload — GET /api/v1/documents/{documentID}/presign?ttl=600.
// ttl в секундах, сервис ограничивает диапазон.
func (h *APIHandler) PresignDownload(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	ttl := time.Duration(queryInt(r, "ttl", 600)) * time.Second

	url, err := h.docSvc.PresignDownload(r.Context(), caller, documentID, ttl)
	if err != nil {
		apierrors.FromService(w, err, true)
		return
	}

	writeJSON(w, http.StatusOK, presignResponse{
		URL:       url,
		ExpiresAt: time.Now().UTC().Add(ttl),
	})
}

// AddDocumentVersion — POST /api/v1/documents/{documentID}/versions.
// Форма: file (обязательно).
func (h *APIHandler) AddDocumentVersion(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	file, header, ok := h.multipartFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	version, err := h.docSvc.AddVersion(r.Context(), caller, documentID, service.VersionParams{
		OriginalName: header.Filename,
		ContentType:  formContentType(header),
		Content:      file,
	})
	if err != nil {
		apierrors.FromService(w, err, true)
		return
	}

	writeJSON(w, http.StatusCreated, toVersionResponse(version))
}

// versionResponse — версия документа в API.
// Ключи объектного хранилища наружу не раскрываются.
type versionResponse struct {
	ID            int64     `json:"id"`
	DocumentID    int64     `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	UploadedBy    *int64    `json:"uploaded_by,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

func toVersionResponse(v *model.DocumentVersion) versionResponse {
	return versionResponse{
		ID:            v.ID,
		DocumentID:    v.DocumentID,
		VersionNumber: v.VersionNumber,
		UploadedBy:    v.UploadedBy,
		UploadedAt:    v.UploadedAt,
	}
}

// ListDocumentVersions — GET /api/v1/documents/{documentID}/versions.
func (h *APIHandler) ListDocumentVersions(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	versions, err := h.docSvc.ListVersions(r.Context(), caller, documentID)
	if err != nil {
		apierrors.FromService(w, err, true)
		return
	}

	items := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		items = append(items, toVersionResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// multipartFile извлекает поле file из multipart-формы.
func (h *APIHandler) multipartFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierrors.ValidationError(w, "ожидается multipart/form-data с полем file")
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "поле file обязательно")
		return nil, nil, false
	}
	return file, header, true
}

// formContentType возвращает MIME-тип файла из заголовков части формы.
func formContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
