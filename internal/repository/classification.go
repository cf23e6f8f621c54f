// classification.go — репозиторий трёхуровневой классификации:
// categories → subcategories → document_types. Справочные данные,
// читаются на каждом горячем пути (выведение категории документа).
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/godms/internal/domain/model"
)

// ClassificationRepository — интерфейс доступа к иерархии классификации.
type ClassificationRepository interface {
	// GetCategory возвращает категорию по id.
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	// ListCategories возвращает категории; filterIDs nil = все.
	ListCategories(ctx context.Context, filterIDs []int64) ([]*model.Category, error)
	// ListSubcategories возвращает подкатегории указанных категорий;
	// categoryID опционально сужает до одной категории.
	ListSubcategories(ctx context.Context, categoryIDs []int64, categoryID *int64) ([]*model.Subcategory, error)
	// GetSubcategory возвращает подкатегорию по id.
	GetSubcategory(ctx context.Context, id int64) (*model.Subcategory, error)
	// ListDocumentTypes возвращает типы документов указанных подкатегорий.
	// activeOnly скрывает неактивные типы.
	ListDocumentTypes(ctx context.Context, subcategoryIDs []int64, activeOnly bool) ([]*model.DocumentType, error)
	// GetDocumentType возвращает тип документа по id.
	GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error)
	// ResolvePath строит полную цепочку классификации для типа документа.
	ResolvePath(ctx context.Context, documentTypeID int64) (*model.ClassificationPath, error)
	// CreateDocumentType добавляет тип документа (административная операция).
	CreateDocumentType(ctx context.Context, dt *model.DocumentType) error
	// UpdateDocumentType обновляет тип документа.
	UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error
}

// classificationRepo — реализация ClassificationRepository через pgx.
type classificationRepo struct {
	db DBTX
}

// NewClassificationRepository создаёт репозиторий классификации.
func NewClassificationRepository(db DBTX) ClassificationRepository {
	return &classificationRepo{db: db}
}

func (r *classificationRepo) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	query := `SELECT id, name, created_at, updated_at FROM categories WHERE id = $1`

	c := &model.Category{}
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения категории: %w", err)
	}
	return c, nil
}

func (r *classificationRepo) ListCategories(ctx context.Context, filterIDs []int64) ([]*model.Category, error) {
	query := `SELECT id, name, created_at, updated_at FROM categories`
	var args []any
	if filterIDs != nil {
		query += ` WHERE id = ANY($1)`
		args = append(args, filterIDs)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения категорий: %w", err)
	}
	defer rows.Close()

	var result []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования категории: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации категорий: %w", err)
	}
	return result, nil
}

// subcategoryColumns — список столбцов subcategories для SELECT-запросов.
const subcategoryColumns = `id, category_id, name, retention_active_years,
	retention_archive_years, final_disposition, created_at, updated_at`

func (r *classificationRepo) ListSubcategories(ctx context.Context, categoryIDs []int64, categoryID *int64) ([]*model.Subcategory, error) {
	var conditions []string
	var args []any
	argNum := 1

	if categoryIDs != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = ANY($%d)", argNum))
		args = append(args, categoryIDs)
		argNum++
	}
	if categoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argNum))
		args = append(args, *categoryID)
	}

	query := fmt.Sprintf(`SELECT %s FROM subcategories`, subcategoryColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY category_id, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения подкатегорий: %w", err)
	}
	defer rows.Close()

	var result []*model.Subcategory
	for rows.Next() {
		s := &model.Subcategory{}
		if err := rows.Scan(
			&s.ID, &s.CategoryID, &s.Name, &s.RetentionActiveYears,
			&s.RetentionArchiveYears, &s.FinalDisposition, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования подкатегории: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации подкатегорий: %w", err)
	}
	return result, nil
}

func (r *classificationRepo) GetSubcategory(ctx context.Context, id int64) (*model.Subcategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM subcategories WHERE id = $1`, subcategoryColumns)

	s := &model.Subcategory{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.CategoryID, &s.Name, &s.RetentionActiveYears,
		&s.RetentionArchiveYears, &s.FinalDisposition, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения подкатегории: %w", err)
	}
	return s, nil
}

// documentTypeColumns — список столбцов document_types для SELECT-запросов.
const documentTypeColumns = `id, subcategory_id, name, description,
	retention_active_years, retention_archive_years, final_disposition,
	is_active, created_at, updated_at`

func (r *classificationRepo) ListDocumentTypes(ctx context.Context, subcategoryIDs []int64, activeOnly bool) ([]*model.DocumentType, error) {
	var conditions []string
	var args []any

	if subcategoryIDs != nil {
		conditions = append(conditions, "subcategory_id = ANY($1)")
		args = append(args, subcategoryIDs)
	}
	if activeOnly {
		conditions = append(conditions, "is_active")
	}

	query := fmt.Sprintf(`SELECT %s FROM document_types`, documentTypeColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY subcategory_id, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения типов документов: %w", err)
	}
	defer rows.Close()

	var result []*model.DocumentType
	for rows.Next() {
		dt := &model.DocumentType{}
		if err := rows.Scan(
			&dt.ID, &dt.SubcategoryID, &dt.Name, &dt.Description,
			&dt.RetentionActiveYears, &dt.RetentionArchiveYears, &dt.FinalDisposition,
			&dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования типа документа: %w", err)
		}
		result = append(result, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации типов документов: %w", err)
	}
	return result, nil
}

func (r *classificationRepo) GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_types WHERE id = $1`, documentTypeColumns)

	dt := &model.DocumentType{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&dt.ID, &dt.SubcategoryID, &dt.Name, &dt.Description,
		&dt.RetentionActiveYears, &dt.RetentionArchiveYears, &dt.FinalDisposition,
		&dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения типа документа: %w", err)
	}
	return dt, nil
}

// ResolvePath строит цепочку DocumentType → Subcategory → Category
// одним запросом с JOIN. Возвращает ErrNotFound при отсутствии типа.
func (r *classificationRepo) ResolvePath(ctx context.Context, documentTypeID int64) (*model.ClassificationPath, error) {
	query := `
		SELECT dt.id, dt.subcategory_id, dt.name, dt.description,
			dt.retention_active_years, dt.retention_archive_years, dt.final_disposition,
			dt.is_active, dt.created_at, dt.updated_at,
			s.id, s.category_id, s.name, s.retention_active_years,
			s.retention_archive_years, s.final_disposition, s.created_at, s.updated_at,
			c.id, c.name, c.created_at, c.updated_at
		FROM document_types dt
		JOIN subcategories s ON s.id = dt.subcategory_id
		JOIN categories c ON c.id = s.category_id
		WHERE dt.id = $1`

	dt := &model.DocumentType{}
	s := &model.Subcategory{}
	c := &model.Category{}
	err := r.db.QueryRow(ctx, query, documentTypeID).Scan(
		&dt.ID, &dt.SubcategoryID, &dt.Name, &dt.Description,
		&dt.RetentionActiveYears, &dt.RetentionArchiveYears, &dt.FinalDisposition,
		&dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
		&s.ID, &s.CategoryID, &s.Name, &s.RetentionActiveYears,
		&s.RetentionArchiveYears, &s.FinalDisposition, &s.CreatedAt, &s.UpdatedAt,
		&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка разрешения цепочки классификации: %w", err)
	}

	return &model.ClassificationPath{Category: c, Subcategory: s, DocumentType: dt}, nil
}

func (r *classificationRepo) CreateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	query := `
		INSERT INTO document_types (subcategory_id, name, description,
			retention_active_years, retention_archive_years, final_disposition, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		dt.SubcategoryID, dt.Name, dt.Description,
		dt.RetentionActiveYears, dt.RetentionArchiveYears, dt.FinalDisposition, dt.IsActive,
	).Scan(&dt.ID, &dt.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: подкатегория %d не существует", ErrReferentialIntegrity, dt.SubcategoryID)
		}
		return fmt.Errorf("ошибка создания типа документа: %w", err)
	}
	return nil
}

func (r *classificationRepo) UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	query := `
		UPDATE document_types
		SET subcategory_id = $2, name = $3, description = $4,
			retention_active_years = $5, retention_archive_years = $6,
			final_disposition = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		dt.ID, dt.SubcategoryID, dt.Name, dt.Description,
		dt.RetentionActiveYears, dt.RetentionArchiveYears, dt.FinalDisposition, dt.IsActive,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: подкатегория %d не существует", ErrReferentialIntegrity, dt.SubcategoryID)
		}
		return fmt.Errorf("ошибка обновления типа документа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
