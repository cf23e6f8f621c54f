// document.go — документ и его версии.
// Документ всегда классифицирован (DocumentTypeID обязателен); эффективная
// категория выводится через цепочку DocumentType → Subcategory → Category.
package model

import "time"

// Document — запись документа в реестре.
// Блоб хранится в объектном хранилище под ObjectKey, запись — только метаданные.
type Document struct {
	// ID — идентификатор документа (монотонно возрастающий bigserial)
	ID int64
	// OriginalName — оригинальное имя загруженного файла
	OriginalName string
	// ObjectKey — непрозрачный ключ блоба в объектном хранилище
	ObjectKey string
	// ContentType — MIME-тип файла
	ContentType string
	// SizeBytes — размер файла в байтах
	SizeBytes int64
	// DocumentTypeID — обязательная классификация
	DocumentTypeID int64
	// FolderID — папка (опционально)
	FolderID *int64
	// CurrentVersion — текущая версия, начинается с 1, монотонно растёт
	CurrentVersion int
	// MetadataJSON — произвольные структурированные метаданные (JSON)
	MetadataJSON *string
	// ExtractedText — извлечённый текст (опционально, может появиться позже)
	ExtractedText *string
	// SearchText — плоский индексируемый текст: имя файла + метаданные + извлечённый текст
	SearchText string
	// IsDeleted — флаг мягкого удаления; строки и версии никогда не удаляются физически
	IsDeleted bool
	// DocumentDate — официальная дата документа (отлична от даты загрузки)
	DocumentDate *time.Time
	// ActiveUntil — вычисленная граница оперативного хранения
	ActiveUntil *time.Time
	// ArchiveUntil — вычисленная граница архивного хранения
	ArchiveUntil *time.Time
	// CreatedBy — кто загрузил (user id, nil для системных операций)
	CreatedBy *int64
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedBy — кто последним изменил
	UpdatedBy *int64
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time
}

// DocumentVersion — неизменяемая версия документа.
// Новая загрузка всегда добавляет строку и поднимает Document.CurrentVersion,
// существующие версии никогда не мутируются.
type DocumentVersion struct {
	// ID — идентификатор версии
	ID int64
	// DocumentID — документ-владелец
	DocumentID int64
	// VersionNumber — номер версии: с 1, строго возрастает, без пропусков
	VersionNumber int
	// ObjectKey — ключ блоба этой версии в объектном хранилище
	ObjectKey string
	// UploadedBy — кто загрузил версию
	UploadedBy *int64
	// UploadedAt — время загрузки версии
	UploadedAt time.Time
}

// DocumentSummary — строка результата поиска.
// Включает разрешённую классификацию и имя загрузившего.
type DocumentSummary struct {
	// ID — идентификатор документа
	ID int64
	// OriginalName — имя файла
	OriginalName string
	// ObjectKey — ключ блоба
	ObjectKey string
	// ContentType — MIME-тип
	ContentType string
	// SizeBytes — размер в байтах
	SizeBytes int64
	// DocumentTypeID — тип документа
	DocumentTypeID int64
	// SubcategoryID — подкатегория (derived)
	SubcategoryID int64
	// CategoryID — категория (derived)
	CategoryID int64
	// CategoryName — название категории
	CategoryName string
	// CurrentVersion — текущая версия
	CurrentVersion int
	// DocumentDate — официальная дата документа
	DocumentDate *time.Time
	// CreatedBy — id загрузившего
	CreatedBy *int64
	// CreatedByUsername — имя загрузившего (join к users)
	CreatedByUsername *string
	// CreatedAt — время загрузки
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time
}

// Folder — папка для организации документов.
type Folder struct {
	// ID — идентификатор папки
	ID int64
	// Name — название
	Name string
	// ParentID — родительская папка (nil = корень)
	ParentID *int64
	// CreatedBy — кто создал
	CreatedBy *int64
	// CreatedAt — время создания
	CreatedAt time.Time
}
