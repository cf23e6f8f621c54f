// classification.go — обработчики иерархии классификации.
// GET /api/v1/categories                                — видимые категории
// GET /api/v1/categories/{id}/subcategories             — подкатегории категории
// GET /api/v1/subcategories/{id}/document-types         — типы документов
// GET /api/v1/document-types/{id}/path                  — разрешённый путь
// POST /api/v1/document-types, PUT /api/v1/document-types/{id} — управление (Admin)
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/godms/internal/api/errors"
	"github.com/bigkaa/godms/internal/domain/model"
)

// categoryResponse — категория в API.
type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// subcategoryResponse — подкатегория с retention-правилами.
type subcategoryResponse struct {
	ID                    int64  `json:"id"`
	CategoryID            int64  `json:"category_id"`
	Name                  string `json:"name"`
	RetentionActiveYears  int    `json:"retention_active_years"`
	RetentionArchiveYears int    `json:"retention_archive_years"`
	FinalDisposition      string `json:"final_disposition"`
}

// documentTypeResponse — тип документа.
type documentTypeResponse struct {
	ID                    int64      `json:"id"`
	SubcategoryID         int64      `json:"subcategory_id"`
	Name                  string     `json:"name"`
	Description           *string    `json:"description,omitempty"`
	RetentionActiveYears  int        `json:"retention_active_years"`
	RetentionArchiveYears int        `json:"retention_archive_years"`
	FinalDisposition      string     `json:"final_disposition"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`
}

func toDocumentTypeResponse(dt *model.DocumentType) documentTypeResponse {
	return documentTypeResponse{
		ID:                    dt.ID,
		SubcategoryID:         dt.SubcategoryID,
		Name:                  dt.Name,
		Description:           dt.Description,
		RetentionActiveYears:  dt.RetentionActiveYears,
		RetentionArchiveYears: dt.RetentionArchiveYears,
		FinalDisposition:      string(dt.FinalDisposition),
		IsActive:              dt.IsActive,
		CreatedAt:             dt.CreatedAt,
		UpdatedAt:             dt.UpdatedAt,
	}
}

// ListCategories — GET /api/v1/categories.
// Admin видит все категории, остальные — только свою.
func (h *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	cats, err := h.classSvc.ListCategories(r.Context(), caller)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	items := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		items = append(items, categoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// ListSubcategories — GET /api/v1/categories/{categoryID}/subcategories.
func (h *APIHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "categoryID")
	if !ok {
		return
	}

	subs, err := h.classSvc.ListSubcategories(r.Context(), caller, &categoryID)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	items := make([]subcategoryResponse, 0, len(subs))
	for _, s := range subs {
		items = append(items, subcategoryResponse{
			ID:                    s.ID,
			CategoryID:            s.CategoryID,
			Name:                  s.Name,
			RetentionActiveYears:  s.RetentionActiveYears,
			RetentionArchiveYears: s.RetentionArchiveYears,
			FinalDisposition:      string(s.FinalDisposition),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// ListDocumentTypes — GET /api/v1/subcategories/{subcategoryID}/document-types.
// ?include_inactive=true показывает неактивные типы (только Admin).
func (h *APIHandler) ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	subcategoryID, ok := pathID(w, r, "subcategoryID")
	if !ok {
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	types, err := h.classSvc.ListDocumentTypes(r.Context(), caller, subcategoryID, includeInactive)
	if err != nil {
		apierrors.FromService(w, err, true)
		return
	}

	items := make([]documentTypeResponse, 0, len(types))
	for _, dt := range types {
		items = append(items, toDocumentTypeResponse(dt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// classificationPathResponse — разрешённая цепочка классификации.
type classificationPathResponse struct {
	CategoryID      int64  `json:"category_id"`
	CategoryName    string `json:"category_name"`
	SubcategoryID   int64  `json:"subcategory_id"`
	SubcategoryName string `json:"subcategory_name"`
	DocumentTypeID  int64  `json:"document_type_id"`
	DocumentType    string `json:"document_type_name"`
	Path            string `json:"path"`
}

// ResolvePath — GET /api/v1/document-types/{documentTypeID}/path.
func (h *APIHandler) ResolvePath(w http.ResponseWriter, r *http.Request) {
	documentTypeID, ok := pathID(w, r, "documentTypeID")
	if !ok {
		return
	}

	path, err := h.classSvc.ResolvePath(r.Context(), documentTypeID)
	if err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, classificationPathResponse{
		CategoryID:      path.Category.ID,
		CategoryName:    path.Category.Name,
		SubcategoryID:   path.Subcategory.ID,
		SubcategoryName: path.Subcategory.Name,
		DocumentTypeID:  path.DocumentType.ID,
		DocumentType:    path.DocumentType.Name,
		Path:            path.String(),
	})
}

// documentTypeRequest — тело создания/обновления типа документа.
type documentTypeRequest struct {
	SubcategoryID         int64   `json:"subcategory_id"`
	Name                  string  `json:"name"`
	Description           *string `json:"description"`
	RetentionActiveYears  int     `json:"retention_active_years"`
	RetentionArchiveYears int     `json:"retention_archive_years"`
	FinalDisposition      string  `json:"final_disposition"`
	IsActive              *bool   `json:"is_active"`
}

// CreateDocumentType — POST /api/v1/document-types. Только Admin (middleware).
func (h *APIHandler) CreateDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req documentTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.SubcategoryID <= 0 {
		apierrors.ValidationError(w, "name и subcategory_id обязательны")
		return
	}

	dt := &model.DocumentType{
		SubcategoryID:         req.SubcategoryID,
		Name:                  req.Name,
		Description:           req.Description,
		RetentionActiveYears:  req.RetentionActiveYears,
		RetentionArchiveYears: req.RetentionArchiveYears,
		FinalDisposition:      model.Disposition(req.FinalDisposition),
		IsActive:              true,
	}
	if req.IsActive != nil {
		dt.IsActive = *req.IsActive
	}

	if err := h.classSvc.CreateDocumentType(r.Context(), caller, dt); err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentTypeResponse(dt))
}

// UpdateDocumentType — PUT /api/v1/document-types/{documentTypeID}. Только Admin (middleware).
func (h *APIHandler) UpdateDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	documentTypeID, ok := pathID(w, r, "documentTypeID")
	if !ok {
		return
	}

	var req documentTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.SubcategoryID <= 0 {
		apierrors.ValidationError(w, "name и subcategory_id обязательны")
		return
	}

	dt := &model.DocumentType{
		ID:                    documentTypeID,
		SubcategoryID:         req.SubcategoryID,
		Name:                  req.Name,
		Description:           req.Description,
		RetentionActiveYears:  req.RetentionActiveYears,
		RetentionArchiveYears: req.RetentionArchiveYears,
		FinalDisposition:      model.Disposition(req.FinalDisposition),
		IsActive:              true,
	}
	if req.IsActive != nil {
		dt.IsActive = *req.IsActive
	}

	if err := h.classSvc.UpdateDocumentType(r.Context(), caller, dt); err != nil {
		apierrors.FromService(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, toDocumentTypeResponse(dt))
}
