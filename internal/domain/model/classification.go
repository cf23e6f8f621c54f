// Пакет model — доменные модели DMS.
// classification.go — трёхуровневая классификация документов (номенклатура хранения):
// Category → Subcategory → DocumentType. Справочные данные, редактируются редко.
package model

import "time"

// Disposition — финальная судьба класса документов после истечения срока хранения.
type Disposition string

const (
	// DispositionConserveTotal — полное (постоянное) хранение.
	DispositionConserveTotal Disposition = "CT"
	// DispositionEliminate — уничтожение.
	DispositionEliminate Disposition = "E"
	// DispositionSubstitute — замещение (актуализация).
	DispositionSubstitute Disposition = "S"
	// DispositionConserveWhileInUse — хранение на протяжении срока эксплуатации.
	DispositionConserveWhileInUse Disposition = "M"
)

// IsValidDisposition проверяет допустимость значения disposition.
func IsValidDisposition(d Disposition) bool {
	switch d {
	case DispositionConserveTotal, DispositionEliminate,
		DispositionSubstitute, DispositionConserveWhileInUse:
		return true
	}
	return false
}

// Category — верхний уровень классификации.
// Единица видимости при ролевом доступе (одна роль → одна категория).
type Category struct {
	// ID — идентификатор категории
	ID int64
	// Name — название категории
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time
}

// Subcategory — средний уровень классификации.
// Несёт сроки хранения по умолчанию и правило финальной disposition.
type Subcategory struct {
	// ID — идентификатор подкатегории
	ID int64
	// CategoryID — владеющая категория
	CategoryID int64
	// Name — название подкатегории
	Name string
	// RetentionActiveYears — срок хранения в оперативном архиве (лет, >= 0)
	RetentionActiveYears int
	// RetentionArchiveYears — срок хранения в центральном архиве (лет, >= 0)
	RetentionArchiveYears int
	// FinalDisposition — правило финальной disposition
	FinalDisposition Disposition
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time
}

// DocumentType — листовой уровень классификации, присваивается каждому документу.
// Нулевые значения retention-полей означают наследование от Subcategory.
type DocumentType struct {
	// ID — идентификатор типа документа
	ID int64
	// SubcategoryID — владеющая подкатегория
	SubcategoryID int64
	// Name — название типа
	Name string
	// Description — пояснительный текст (опционально)
	Description *string
	// RetentionActiveYears — переопределение срока хранения (0 = наследуется)
	RetentionActiveYears int
	// RetentionArchiveYears — переопределение срока архива (0 = наследуется)
	RetentionArchiveYears int
	// FinalDisposition — переопределение disposition ("" = наследуется)
	FinalDisposition Disposition
	// IsActive — логическое включение: неактивные типы скрыты при выборе, но не удалены
	IsActive bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time
}

// ClassificationPath — разрешённая цепочка классификации документа.
// Строится на уровне чтения, никогда не хранится избыточно:
// правки классификации ретроактивно меняют видимость документов.
type ClassificationPath struct {
	// Category — категория верхнего уровня
	Category *Category
	// Subcategory — подкатегория с retention-правилами
	Subcategory *Subcategory
	// DocumentType — листовой тип документа
	DocumentType *DocumentType
}

// String возвращает отображаемый путь "Category / Subcategory / DocumentType".
func (p *ClassificationPath) String() string {
	return p.Category.Name + " / " + p.Subcategory.Name + " / " + p.DocumentType.Name
}
