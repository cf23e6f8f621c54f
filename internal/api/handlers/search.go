// search.go — обработчик GET /api/v1/search.
// Query-параметры транслируются в service.SearchQuery; область видимости
// ограничивается сервисным слоем по роли вызывающего.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/godms/internal/api/errors"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/service"
)

// searchItemResponse — строка результата поиска.
type searchItemResponse struct {
	ID                int64      `json:"id"`
	OriginalName      string     `json:"original_name"`
	ContentType       string     `json:"content_type"`
	SizeBytes         int64      `json:"size_bytes"`
	DocumentTypeID    int64      `json:"document_type_id"`
	SubcategoryID     int64      `json:"subcategory_id"`
	CategoryID        int64      `json:"category_id"`
	CategoryName      string     `json:"category_name"`
	CurrentVersion    int        `json:"current_version"`
	DocumentDate      *string    `json:"document_date,omitempty"`
	CreatedBy         *int64     `json:"created_by,omitempty"`
	CreatedByUsername *string    `json:"created_by_username,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func toSearchItemResponse(d *model.DocumentSummary) searchItemResponse {
	return searchItemResponse{
		ID:                d.ID,
		OriginalName:      d.OriginalName,
		ContentType:       d.ContentType,
		SizeBytes:         d.SizeBytes,
		DocumentTypeID:    d.DocumentTypeID,
		SubcategoryID:     d.SubcategoryID,
		CategoryID:        d.CategoryID,
		CategoryName:      d.CategoryName,
		CurrentVersion:    d.CurrentVersion,
		DocumentDate:      dateStr(d.DocumentDate),
		CreatedBy:         d.CreatedBy,
		CreatedByUsername: d.CreatedByUsername,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// searchResponse — результат поиска с пагинацией.
type searchResponse struct {
	Items      []searchItemResponse `json:"items"`
	Total      int                  `json:"total"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	HasMore    bool                 `json:"has_more"`
	DateWindow *dateWindowResponse  `json:"date_window,omitempty"`
}

// dateWindowResponse — окно дат, распознанное эвристикой запроса.
type dateWindowResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Search — GET /api/v1/search.
// Параметры: q, full_text, category_id, subcategory_id, document_type_id,
// date_from, date_to, uploaded_from, uploaded_to (YYYY-MM-DD), limit, offset.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	query := service.SearchQuery{
		FreeText:    r.URL.Query().Get("q"),
		UseFullText: r.URL.Query().Get("full_text") == "true",
		Limit:       queryInt(r, "limit", 0),
		Offset:      queryInt(r, "offset", 0),
	}

	var err error
	if query.CategoryID, err = queryInt64Ptr(r, "category_id"); err != nil {
		apierrors.ValidationError(w, "некорректный category_id")
		return
	}
	if query.SubcategoryID, err = queryInt64Ptr(r, "subcategory_id"); err != nil {
		apierrors.ValidationError(w, "некорректный subcategory_id")
		return
	}
	if query.DocumentTypeID, err = queryInt64Ptr(r, "document_type_id"); err != nil {
		apierrors.ValidationError(w, "некорректный document_type_id")
		return
	}
	if query.DocumentDateFrom, err = queryDatePtr(r, "date_from"); err != nil {
		apierrors.ValidationError(w, "некорректная date_from, ожидается YYYY-MM-DD")
		return
	}
	if query.DocumentDateTo, err = queryDatePtr(r, "date_to"); err != nil {
		apierrors.ValidationError(w, "некорректная date_to, ожидается YYYY-MM-DD")
		return
	}
	if query.UploadedFrom, err = queryDatePtr(r, "uploaded_from"); err != nil {
		apierrors.ValidationError(w, "некорректная uploaded_from, ожидается YYYY-MM-DD")
		return
	}
	if query.UploadedTo, err = queryDatePtr(r, "uploaded_to"); err != nil {
		apierrors.ValidationError(w, "некорректная uploaded_to, ожидается YYYY-MM-DD")
		return
	}

	result, err := h.searchSvc.Search(r.Context(), caller, query)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	resp := searchResponse{
		Items:   make([]searchItemResponse, 0, len(result.Items)),
		Total:   result.Total,
		Limit:   result.Limit,
		Offset:  result.Offset,
		HasMore: result.HasMore,
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, toSearchItemResponse(item))
	}
	if result.DateWindow != nil {
		resp.DateWindow = &dateWindowResponse{
			From: result.DateWindow.From.Format("2006-01-02"),
			To:   result.DateWindow.To.Format("2006-01-02"),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
