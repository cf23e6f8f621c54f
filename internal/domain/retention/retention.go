// Пакет retention — чистый расчёт сроков хранения документа из его
// классификации. Никаких побочных эффектов: одинаковая пара
// (классификация, дата) всегда даёт одинаковый результат. Годы не
// округляются и не ограничиваются — на этом расчёте строится
// планирование disposal.
package retention

import (
	"time"

	"github.com/bigkaa/godms/internal/domain/model"
)

// Milestones — вычисленные границы хранения документа.
type Milestones struct {
	// ActiveUntil — конец оперативного хранения:
	// базовая дата + effective RetentionActiveYears
	ActiveUntil time.Time
	// ArchiveUntil — конец архивного хранения:
	// ActiveUntil + effective RetentionArchiveYears
	ArchiveUntil time.Time
	// FinalDisposition — действующее правило disposition
	FinalDisposition model.Disposition
	// ActiveYears — действующий срок оперативного хранения (лет)
	ActiveYears int
	// ArchiveYears — действующий срок архивного хранения (лет)
	ArchiveYears int
}

// EffectiveYears возвращает действующие сроки хранения:
// ненулевое переопределение DocumentType имеет приоритет,
// ноль означает наследование от Subcategory.
func EffectiveYears(dt *model.DocumentType, sub *model.Subcategory) (activeYears, archiveYears int) {
	activeYears = sub.RetentionActiveYears
	if dt.RetentionActiveYears != 0 {
		activeYears = dt.RetentionActiveYears
	}
	archiveYears = sub.RetentionArchiveYears
	if dt.RetentionArchiveYears != 0 {
		archiveYears = dt.RetentionArchiveYears
	}
	return activeYears, archiveYears
}

// EffectiveDisposition возвращает действующее правило disposition:
// значение DocumentType, если задано, иначе наследуется от Subcategory.
func EffectiveDisposition(dt *model.DocumentType, sub *model.Subcategory) model.Disposition {
	if dt.FinalDisposition != "" {
		return dt.FinalDisposition
	}
	return sub.FinalDisposition
}

// Compute вычисляет границы хранения документа.
// Базовая дата — официальная дата документа (documentDate), при её
// отсутствии — дата загрузки (uploadDate).
func Compute(dt *model.DocumentType, sub *model.Subcategory, documentDate *time.Time, uploadDate time.Time) Milestones {
	base := uploadDate
	if documentDate != nil {
		base = *documentDate
	}

	activeYears, archiveYears := EffectiveYears(dt, sub)
	activeUntil := base.AddDate(activeYears, 0, 0)
	archiveUntil := activeUntil.AddDate(archiveYears, 0, 0)

	return Milestones{
		ActiveUntil:      activeUntil,
		ArchiveUntil:     archiveUntil,
		FinalDisposition: EffectiveDisposition(dt, sub),
		ActiveYears:      activeYears,
		ArchiveYears:     archiveYears,
	}
}
