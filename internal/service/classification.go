// classification.go — сервис справочника классификации.
// Отдаёт иерархию категория → подкатегория → тип документа, урезанную
// до множества категорий, видимых вызывающему. Разрешённый путь
// типа документа кэшируется (LRU + TTL).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/repository"
)

// ClassificationService — сервис чтения и администрирования справочника.
type ClassificationService struct {
	repo     repository.ClassificationRepository
	resolver *access.Resolver
	cache    *CacheService
	logger   *slog.Logger
}

// NewClassificationService создаёт сервис классификации.
func NewClassificationService(
	repo repository.ClassificationRepository,
	resolver *access.Resolver,
	cache *CacheService,
	logger *slog.Logger,
) *ClassificationService {
	return &ClassificationService{
		repo:     repo,
		resolver: resolver,
		cache:    cache,
		logger:   logger.With(slog.String("component", "classification_service")),
	}
}

// ListCategories возвращает категории, видимые вызывающему.
// Admin видит все; роль без сопоставления не видит ничего.
func (s *ClassificationService) ListCategories(ctx context.Context, caller access.Identity) ([]*model.Category, error) {
	if s.resolver.IsAdmin(caller) {
		return s.repo.ListCategories(ctx, nil)
	}
	allowed := s.resolver.AllowedCategories(caller)
	if len(allowed) == 0 {
		return nil, nil
	}
	return s.repo.ListCategories(ctx, allowed)
}

// ListSubcategories возвращает подкатегории видимых категорий.
// categoryID опционально сужает выборку; категория вне видимого
// множества даёт ErrForbidden.
func (s *ClassificationService) ListSubcategories(ctx context.Context, caller access.Identity, categoryID *int64) ([]*model.Subcategory, error) {
	if categoryID != nil && !s.resolver.CanSeeCategory(caller, *categoryID) {
		return nil, fmt.Errorf("%w: категория %d", ErrForbidden, *categoryID)
	}
	if s.resolver.IsAdmin(caller) {
		return s.repo.ListSubcategories(ctx, nil, categoryID)
	}
	allowed := s.resolver.AllowedCategories(caller)
	if len(allowed) == 0 {
		return nil, nil
	}
	return s.repo.ListSubcategories(ctx, allowed, categoryID)
}

// ListDocumentTypes возвращает типы документов подкатегории.
// Неактивные типы видны только администратору при includeInactive.
func (s *ClassificationService) ListDocumentTypes(ctx context.Context, caller access.Identity, subcategoryID int64, includeInactive bool) ([]*model.DocumentType, error) {
	sub, err := s.repo.GetSubcategory(ctx, subcategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: подкатегория %d", ErrNotFound, subcategoryID)
		}
		return nil, fmt.Errorf("получение подкатегории: %w", err)
	}
	if !s.resolver.CanSeeCategory(caller, sub.CategoryID) {
		// Ресурс вне видимого множества неотличим от несуществующего
		return nil, fmt.Errorf("%w: подкатегория %d", ErrNotFound, subcategoryID)
	}

	activeOnly := !(includeInactive && s.resolver.IsAdmin(caller))
	return s.repo.ListDocumentTypes(ctx, []int64{subcategoryID}, activeOnly)
}

// ResolvePath возвращает полный путь классификации типа документа.
// Результат кэшируется: путь меняется только правкой справочника.
func (s *ClassificationService) ResolvePath(ctx context.Context, documentTypeID int64) (*model.ClassificationPath, error) {
	if path, ok := s.cache.Get(documentTypeID); ok {
		return path, nil
	}

	path, err := s.repo.ResolvePath(ctx, documentTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: тип документа %d", ErrNotFound, documentTypeID)
		}
		return nil, fmt.Errorf("разрешение пути классификации: %w", err)
	}

	s.cache.Set(documentTypeID, path)
	return path, nil
}

// CreateDocumentType добавляет тип документа в справочник (только Admin).
func (s *ClassificationService) CreateDocumentType(ctx context.Context, caller access.Identity, dt *model.DocumentType) error {
	if !s.resolver.IsAdmin(caller) {
		return fmt.Errorf("%w: правка справочника доступна только администратору", ErrForbidden)
	}
	if dt.Name == "" {
		return fmt.Errorf("%w: пустое название типа документа", ErrValidation)
	}
	if dt.FinalDisposition != "" && !model.IsValidDisposition(dt.FinalDisposition) {
		return fmt.Errorf("%w: недопустимая disposition %q", ErrValidation, dt.FinalDisposition)
	}

	if err := s.repo.CreateDocumentType(ctx, dt); err != nil {
		if errors.Is(err, repository.ErrReferentialIntegrity) {
			return fmt.Errorf("%w: подкатегория %d не существует", ErrValidation, dt.SubcategoryID)
		}
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: тип %q уже существует в подкатегории", ErrConflict, dt.Name)
		}
		return fmt.Errorf("создание типа документа: %w", err)
	}

	s.logger.Info("Тип документа создан",
		slog.Int64("document_type_id", dt.ID),
		slog.String("name", dt.Name),
	)
	return nil
}

// UpdateDocumentType обновляет тип документа (только Admin).
// Кэшированный путь инвалидируется.
func (s *ClassificationService) UpdateDocumentType(ctx context.Context, caller access.Identity, dt *model.DocumentType) error {
	if !s.resolver.IsAdmin(caller) {
		return fmt.Errorf("%w: правка справочника доступна только администратору", ErrForbidden)
	}
	if dt.FinalDisposition != "" && !model.IsValidDisposition(dt.FinalDisposition) {
		return fmt.Errorf("%w: недопустимая disposition %q", ErrValidation, dt.FinalDisposition)
	}

	if err := s.repo.UpdateDocumentType(ctx, dt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: тип документа %d", ErrNotFound, dt.ID)
		}
		return fmt.Errorf("обновление типа документа: %w", err)
	}

	s.cache.Delete(dt.ID)
	s.logger.Info("Тип документа обновлён",
		slog.Int64("document_type_id", dt.ID),
		slog.Bool("is_active", dt.IsActive),
	)
	return nil
}
