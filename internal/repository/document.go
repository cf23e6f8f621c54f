// document.go — репозиторий документов и их версий.
// Поиск фильтрует по выведенной категории (JOIN через классификацию):
// категория никогда не хранится в строке документа избыточно.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/godms/internal/domain/model"
)

// documentColumns — список столбцов таблицы documents для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const documentColumns = `id, original_name, object_key, content_type, size_bytes,
	document_type_id, folder_id, current_version, metadata_json, extracted_text,
	search_text, is_deleted, document_date, active_until, archive_until,
	created_by, created_at, updated_by, updated_at`

// SearchParams — параметры поиска документов.
// Указатели — nil = фильтр не применяется. AllowedCategories обязателен
// для не-админов: предикат без него — дефект безопасности.
type SearchParams struct {
	// AllowedCategories — множество категорий, видимых вызывающему.
	// Пустой срез означает «ничего не видно» (несопоставленная роль).
	AllowedCategories []int64
	// Unrestricted — true только для Admin: фильтр по категориям не применяется.
	Unrestricted bool
	// CategoryID — фильтр по категории
	CategoryID *int64
	// SubcategoryID — фильтр по подкатегории
	SubcategoryID *int64
	// DocumentTypeID — фильтр по типу документа
	DocumentTypeID *int64
	// FreeText — свободный текст: ILIKE по search_text, extracted_text, original_name
	FreeText *string
	// UseFullText — дополнительно ранжированный tsvector-матч по search_vector
	UseFullText bool
	// DocumentDateFrom — документы с официальной датой >= (включительно)
	DocumentDateFrom *time.Time
	// DocumentDateTo — документы с официальной датой < (исключительно)
	DocumentDateTo *time.Time
	// UploadedFrom — загруженные после указанной даты
	UploadedFrom *time.Time
	// UploadedTo — загруженные до указанной даты
	UploadedTo *time.Time
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// DocumentRepository — интерфейс доступа к документам и версиям.
type DocumentRepository interface {
	// Create вставляет запись документа (current_version = 1).
	Create(ctx context.Context, d *model.Document) error
	// GetByID возвращает документ по id, включая мягко удалённые
	// (фильтрация is_deleted — ответственность сервисного слоя).
	GetByID(ctx context.Context, id int64) (*model.Document, error)
	// Search выполняет поиск по фильтрам. Возвращает (записи, общее количество, ошибка).
	Search(ctx context.Context, params SearchParams) ([]*model.DocumentSummary, int, error)
	// SoftDelete помечает документ удалённым. Возвращает false, если
	// документ уже был удалён (идемпотентный no-op).
	SoftDelete(ctx context.Context, id int64, userID *int64) (bool, error)
	// BumpVersion атомарно инкрементирует current_version и возвращает
	// новое значение. Вызывается внутри транзакции вместе с InsertVersion:
	// UPDATE берёт блокировку строки, поэтому конкурентные вызовы
	// сериализуются и номера версий не дублируются и не имеют пропусков.
	BumpVersion(ctx context.Context, id int64, userID *int64) (int, error)
	// InsertVersion добавляет неизменяемую запись версии.
	InsertVersion(ctx context.Context, v *model.DocumentVersion) error
	// ListVersions возвращает версии документа по возрастанию номера.
	ListVersions(ctx context.Context, documentID int64) ([]*model.DocumentVersion, error)
	// UpdateExtractedText записывает извлечённый текст и пересобранный search_text.
	UpdateExtractedText(ctx context.Context, id int64, extractedText, searchText string) error
	// UpdateHead переключает документ на блоб новой версии
	// (вызывается в одной транзакции с BumpVersion и InsertVersion).
	UpdateHead(ctx context.Context, id int64, objectKey, contentType string, sizeBytes int64, extractedText, searchText string) error
}

// documentRepo — реализация DocumentRepository через pgx.
type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, d *model.Document) error {
	query := `
		INSERT INTO documents (original_name, object_key, content_type, size_bytes,
			document_type_id, folder_id, current_version, metadata_json, extracted_text,
			search_text, is_deleted, document_date, active_until, archive_until,
			created_by, created_at, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		d.OriginalName, d.ObjectKey, d.ContentType, d.SizeBytes,
		d.DocumentTypeID, d.FolderID, d.CurrentVersion, d.MetadataJSON, d.ExtractedText,
		d.SearchText, d.IsDeleted, d.DocumentDate, d.ActiveUntil, d.ArchiveUntil,
		d.CreatedBy, d.CreatedAt, d.UpdatedBy, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: тип документа %d не существует", ErrReferentialIntegrity, d.DocumentTypeID)
		}
		return fmt.Errorf("ошибка создания документа: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)

	d := &model.Document{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.OriginalName, &d.ObjectKey, &d.ContentType, &d.SizeBytes,
		&d.DocumentTypeID, &d.FolderID, &d.CurrentVersion, &d.MetadataJSON, &d.ExtractedText,
		&d.SearchText, &d.IsDeleted, &d.DocumentDate, &d.ActiveUntil, &d.ArchiveUntil,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedBy, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	return d, nil
}

// Search выполняет поиск документов с динамическими фильтрами и пагинацией.
// Сортировка: при UseFullText — сначала релевантность tsvector-матча,
// затем created_at DESC; id — монотонный tiebreaker, порядок стабилен.
func (r *documentRepo) Search(ctx context.Context, params SearchParams) ([]*model.DocumentSummary, int, error) {
	where, args := buildDocumentWhere(params, 1)
	argNum := len(args) + 1

	orderBy := "ORDER BY d.created_at DESC, d.id DESC"
	rankColumn := "0"
	if params.UseFullText && params.FreeText != nil && *params.FreeText != "" {
		// websearch_to_tsquery безопасно переживает произвольный пользовательский ввод
		rankColumn = fmt.Sprintf(
			"ts_rank(d.search_vector, websearch_to_tsquery('spanish', $%d))", argNum)
		args = append(args, *params.FreeText)
		argNum++
		orderBy = "ORDER BY rank DESC, d.created_at DESC, d.id DESC"
	}

	dataQuery := fmt.Sprintf(`
		SELECT d.id, d.original_name, d.object_key, d.content_type, d.size_bytes,
			d.document_type_id, s.id, c.id, c.name, d.current_version,
			d.document_date, d.created_by, u.username, d.created_at, d.updated_at,
			%s AS rank
		FROM documents d
		JOIN document_types dt ON dt.id = d.document_type_id
		JOIN subcategories s ON s.id = dt.subcategory_id
		JOIN categories c ON c.id = s.category_id
		LEFT JOIN users u ON u.id = d.created_by
		%s %s LIMIT $%d OFFSET $%d`,
		rankColumn, where, orderBy, argNum, argNum+1,
	)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка поиска документов: %w", err)
	}
	defer rows.Close()

	var result []*model.DocumentSummary
	for rows.Next() {
		d := &model.DocumentSummary{}
		var rank float64
		if err := rows.Scan(
			&d.ID, &d.OriginalName, &d.ObjectKey, &d.ContentType, &d.SizeBytes,
			&d.DocumentTypeID, &d.SubcategoryID, &d.CategoryID, &d.CategoryName, &d.CurrentVersion,
			&d.DocumentDate, &d.CreatedBy, &d.CreatedByUsername, &d.CreatedAt, &d.UpdatedAt,
			&rank,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Запрос общего количества (те же фильтры, без LIMIT/OFFSET и ранжирования)
	countWhere, countArgs := buildDocumentWhere(params, 1)
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM documents d
		JOIN document_types dt ON dt.id = d.document_type_id
		JOIN subcategories s ON s.id = dt.subcategory_id
		JOIN categories c ON c.id = s.category_id
		%s`, countWhere)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта документов: %w", err)
	}

	return result, total, nil
}

func (r *documentRepo) SoftDelete(ctx context.Context, id int64, userID *int64) (bool, error) {
	query := `
		UPDATE documents
		SET is_deleted = TRUE, updated_by = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted`

	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка мягкого удаления документа: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *documentRepo) BumpVersion(ctx context.Context, id int64, userID *int64) (int, error) {
	query := `
		UPDATE documents
		SET current_version = current_version + 1, updated_by = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING current_version`

	var newVersion int
	err := r.db.QueryRow(ctx, query, id, userID).Scan(&newVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("ошибка инкремента версии: %w", err)
	}
	return newVersion, nil
}

func (r *documentRepo) InsertVersion(ctx context.Context, v *model.DocumentVersion) error {
	query := `
		INSERT INTO document_versions (document_id, version_number, object_key, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		v.DocumentID, v.VersionNumber, v.ObjectKey, v.UploadedBy, v.UploadedAt,
	).Scan(&v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// Гонка версий поймана ограничением (document_id, version_number)
			return fmt.Errorf("%w: версия %d документа %d уже существует", ErrConflict, v.VersionNumber, v.DocumentID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: документ %d не существует", ErrReferentialIntegrity, v.DocumentID)
		}
		return fmt.Errorf("ошибка добавления версии: %w", err)
	}
	return nil
}

func (r *documentRepo) ListVersions(ctx context.Context, documentID int64) ([]*model.DocumentVersion, error) {
	query := `
		SELECT id, document_id, version_number, object_key, uploaded_by, uploaded_at
		FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения версий: %w", err)
	}
	defer rows.Close()

	var result []*model.DocumentVersion
	for rows.Next() {
		v := &model.DocumentVersion{}
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.ObjectKey, &v.UploadedBy, &v.UploadedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования версии: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации версий: %w", err)
	}
	return result, nil
}

func (r *documentRepo) UpdateExtractedText(ctx context.Context, id int64, extractedText, searchText string) error {
	query := `
		UPDATE documents
		SET extracted_text = $2, search_text = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, extractedText, searchText)
	if err != nil {
		return fmt.Errorf("ошибка записи извлечённого текста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) UpdateHead(ctx context.Context, id int64, objectKey, contentType string, sizeBytes int64, extractedText, searchText string) error {
	query := `
		UPDATE documents
		SET object_key = $2, content_type = $3, size_bytes = $4,
			extracted_text = $5, search_text = $6, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, objectKey, contentType, sizeBytes, extractedText, searchText)
	if err != nil {
		return fmt.Errorf("ошибка переключения головной версии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildDocumentWhere строит WHERE-условие и аргументы для поиска документов.
// startArg — номер первого $-параметра. Мягко удалённые документы
// исключаются всегда; фильтр по категориям применяется всегда,
// кроме Unrestricted (Admin).
//
//nolint:cyclop // сложность обусловлена количеством фильтров
func buildDocumentWhere(params SearchParams, startArg int) (whereClause string, args []any) {
	conditions := []string{"NOT d.is_deleted"}
	argNum := startArg

	// Фильтр по видимым категориям (обязателен для не-админов)
	if !params.Unrestricted {
		conditions = append(conditions, fmt.Sprintf("s.category_id = ANY($%d)", argNum))
		// Пустой срез даёт пустой массив — ни одна строка не пройдёт
		allowed := params.AllowedCategories
		if allowed == nil {
			allowed = []int64{}
		}
		args = append(args, allowed)
		argNum++
	}

	// Структурные фильтры классификации
	if params.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("s.category_id = $%d", argNum))
		args = append(args, *params.CategoryID)
		argNum++
	}
	if params.SubcategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("dt.subcategory_id = $%d", argNum))
		args = append(args, *params.SubcategoryID)
		argNum++
	}
	if params.DocumentTypeID != nil {
		conditions = append(conditions, fmt.Sprintf("d.document_type_id = $%d", argNum))
		args = append(args, *params.DocumentTypeID)
		argNum++
	}

	// Свободный текст: ILIKE по search_text, extracted_text и original_name (OR)
	if params.FreeText != nil && *params.FreeText != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(d.search_text ILIKE $%d OR d.extracted_text ILIKE $%d OR d.original_name ILIKE $%d)",
			argNum, argNum, argNum))
		args = append(args, "%"+*params.FreeText+"%")
		argNum++
	}

	// Окно по официальной дате документа: [from, to)
	if params.DocumentDateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("d.document_date IS NOT NULL AND d.document_date >= $%d", argNum))
		args = append(args, *params.DocumentDateFrom)
		argNum++
	}
	if params.DocumentDateTo != nil {
		conditions = append(conditions, fmt.Sprintf("d.document_date IS NOT NULL AND d.document_date < $%d", argNum))
		args = append(args, *params.DocumentDateTo)
		argNum++
	}

	// Фильтр по дате загрузки
	if params.UploadedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("d.created_at >= $%d", argNum))
		args = append(args, *params.UploadedFrom)
		argNum++
	}
	if params.UploadedTo != nil {
		conditions = append(conditions, fmt.Sprintf("d.created_at <= $%d", argNum))
		args = append(args, *params.UploadedTo)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
