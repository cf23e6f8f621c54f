package service

import (
	"context"
	"time"

	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/repository"
)

// Общие моки репозиториев для unit-тестов сервисного слоя.

// --- Mock classification repository ---

type mockClassificationRepo struct {
	getCategoryFn        func(ctx context.Context, id int64) (*model.Category, error)
	listCategoriesFn     func(ctx context.Context, filterIDs []int64) ([]*model.Category, error)
	listSubcategoriesFn  func(ctx context.Context, categoryIDs []int64, categoryID *int64) ([]*model.Subcategory, error)
	getSubcategoryFn     func(ctx context.Context, id int64) (*model.Subcategory, error)
	listDocumentTypesFn  func(ctx context.Context, subcategoryIDs []int64, activeOnly bool) ([]*model.DocumentType, error)
	getDocumentTypeFn    func(ctx context.Context, id int64) (*model.DocumentType, error)
	resolvePathFn        func(ctx context.Context, documentTypeID int64) (*model.ClassificationPath, error)
	createDocumentTypeFn func(ctx context.Context, dt *model.DocumentType) error
	updateDocumentTypeFn func(ctx context.Context, dt *model.DocumentType) error
}

func (m *mockClassificationRepo) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if m.getCategoryFn != nil {
		return m.getCategoryFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockClassificationRepo) ListCategories(ctx context.Context, filterIDs []int64) ([]*model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx, filterIDs)
	}
	return nil, nil
}

func (m *mockClassificationRepo) ListSubcategories(ctx context.Context, categoryIDs []int64, categoryID *int64) ([]*model.Subcategory, error) {
	if m.listSubcategoriesFn != nil {
		return m.listSubcategoriesFn(ctx, categoryIDs, categoryID)
	}
	return nil, nil
}

func (m *mockClassificationRepo) GetSubcategory(ctx context.Context, id int64) (*model.Subcategory, error) {
	if m.getSubcategoryFn != nil {
		return m.getSubcategoryFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockClassificationRepo) ListDocumentTypes(ctx context.Context, subcategoryIDs []int64, activeOnly bool) ([]*model.DocumentType, error) {
	if m.listDocumentTypesFn != nil {
		return m.listDocumentTypesFn(ctx, subcategoryIDs, activeOnly)
	}
	return nil, nil
}

func (m *mockClassificationRepo) GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error) {
	if m.getDocumentTypeFn != nil {
		return m.getDocumentTypeFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockClassificationRepo) ResolvePath(ctx context.Context, documentTypeID int64) (*model.ClassificationPath, error) {
	if m.resolvePathFn != nil {
		return m.resolvePathFn(ctx, documentTypeID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockClassificationRepo) CreateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	if m.createDocumentTypeFn != nil {
		return m.createDocumentTypeFn(ctx, dt)
	}
	return nil
}

func (m *mockClassificationRepo) UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	if m.updateDocumentTypeFn != nil {
		return m.updateDocumentTypeFn(ctx, dt)
	}
	return nil
}

// --- Mock document repository ---

type mockDocumentRepo struct {
	createFn              func(ctx context.Context, d *model.Document) error
	getByIDFn             func(ctx context.Context, id int64) (*model.Document, error)
	searchFn              func(ctx context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error)
	softDeleteFn          func(ctx context.Context, id int64, userID *int64) (bool, error)
	bumpVersionFn         func(ctx context.Context, id int64, userID *int64) (int, error)
	insertVersionFn       func(ctx context.Context, v *model.DocumentVersion) error
	listVersionsFn        func(ctx context.Context, documentID int64) ([]*model.DocumentVersion, error)
	updateExtractedTextFn func(ctx context.Context, id int64, extractedText, searchText string) error
	updateHeadFn          func(ctx context.Context, id int64, objectKey, contentType string, sizeBytes int64, extractedText, searchText string) error
}

func (m *mockDocumentRepo) Create(ctx context.Context, d *model.Document) error {
	if m.createFn != nil {
		return m.createFn(ctx, d)
	}
	d.ID = 1
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockDocumentRepo) Search(ctx context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, params)
	}
	return nil, 0, nil
}

func (m *mockDocumentRepo) SoftDelete(ctx context.Context, id int64, userID *int64) (bool, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id, userID)
	}
	return true, nil
}

func (m *mockDocumentRepo) BumpVersion(ctx context.Context, id int64, userID *int64) (int, error) {
	if m.bumpVersionFn != nil {
		return m.bumpVersionFn(ctx, id, userID)
	}
	return 2, nil
}

func (m *mockDocumentRepo) InsertVersion(ctx context.Context, v *model.DocumentVersion) error {
	if m.insertVersionFn != nil {
		return m.insertVersionFn(ctx, v)
	}
	return nil
}

func (m *mockDocumentRepo) ListVersions(ctx context.Context, documentID int64) ([]*model.DocumentVersion, error) {
	if m.listVersionsFn != nil {
		return m.listVersionsFn(ctx, documentID)
	}
	return nil, nil
}

func (m *mockDocumentRepo) UpdateExtractedText(ctx context.Context, id int64, extractedText, searchText string) error {
	if m.updateExtractedTextFn != nil {
		return m.updateExtractedTextFn(ctx, id, extractedText, searchText)
	}
	return nil
}

func (m *mockDocumentRepo) UpdateHead(ctx context.Context, id int64, objectKey, contentType string, sizeBytes int64, extractedText, searchText string) error {
	if m.updateHeadFn != nil {
		return m.updateHeadFn(ctx, id, objectKey, contentType, sizeBytes, extractedText, searchText)
	}
	return nil
}

// --- Mock user repository ---

type mockUserRepo struct {
	createFn         func(ctx context.Context, u *model.User) error
	getByIDFn        func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn  func(ctx context.Context, username string) (*model.User, error)
	updateRoleFn     func(ctx context.Context, userID, roleID int64) error
	updatePasswordFn func(ctx context.Context, userID int64, passwordHash string) error
	getRoleByNameFn  func(ctx context.Context, name string) (*model.Role, error)
	listRolesFn      func(ctx context.Context) ([]*model.Role, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = 1
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, userID, roleID int64) error {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, userID, roleID)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	if m.getRoleByNameFn != nil {
		return m.getRoleByNameFn(ctx, name)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) ListRoles(ctx context.Context) ([]*model.Role, error) {
	if m.listRolesFn != nil {
		return m.listRolesFn(ctx)
	}
	return nil, nil
}

// --- Mock audit repository ---

type mockAuditRepo struct {
	appendFn     func(ctx context.Context, e *model.AuditLogEntry) error
	listByUserFn func(ctx context.Context, userID int64, limit int) ([]*model.AuditLogEntry, error)
}

func (m *mockAuditRepo) Append(ctx context.Context, e *model.AuditLogEntry) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, e)
	}
	return nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.AuditLogEntry, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

// --- Общие помощники ---

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }
