package retention

import (
	"testing"
	"time"

	"github.com/bigkaa/godms/internal/domain/model"
)

// TestEffectiveYears_Inherit проверяет наследование при нулевом переопределении.
func TestEffectiveYears_Inherit(t *testing.T) {
	dt := &model.DocumentType{RetentionActiveYears: 0, RetentionArchiveYears: 0}
	sub := &model.Subcategory{RetentionActiveYears: 10, RetentionArchiveYears: 5}

	active, archive := EffectiveYears(dt, sub)
	if active != 10 {
		t.Errorf("active = %d, ожидался 10 (наследование от Subcategory)", active)
	}
	if archive != 5 {
		t.Errorf("archive = %d, ожидался 5 (наследование от Subcategory)", archive)
	}
}

// TestEffectiveYears_Override проверяет приоритет ненулевого переопределения.
func TestEffectiveYears_Override(t *testing.T) {
	dt := &model.DocumentType{RetentionActiveYears: 5}
	sub := &model.Subcategory{RetentionActiveYears: 10, RetentionArchiveYears: 3}

	active, archive := EffectiveYears(dt, sub)
	if active != 5 {
		t.Errorf("active = %d, ожидался 5 (переопределение DocumentType)", active)
	}
	if archive != 3 {
		t.Errorf("archive = %d, ожидался 3", archive)
	}
}

// TestEffectiveDisposition проверяет наследование disposition.
func TestEffectiveDisposition(t *testing.T) {
	sub := &model.Subcategory{FinalDisposition: model.DispositionEliminate}

	got := EffectiveDisposition(&model.DocumentType{}, sub)
	if got != model.DispositionEliminate {
		t.Errorf("disposition = %q, ожидалась %q (наследование)", got, model.DispositionEliminate)
	}

	got = EffectiveDisposition(&model.DocumentType{FinalDisposition: model.DispositionConserveTotal}, sub)
	if got != model.DispositionConserveTotal {
		t.Errorf("disposition = %q, ожидалась %q (переопределение)", got, model.DispositionConserveTotal)
	}
}

// TestCompute_DocumentDateBase проверяет расчёт от официальной даты документа.
func TestCompute_DocumentDateBase(t *testing.T) {
	dt := &model.DocumentType{}
	sub := &model.Subcategory{
		RetentionActiveYears:  15,
		RetentionArchiveYears: 5,
		FinalDisposition:      model.DispositionConserveTotal,
	}
	docDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	upload := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	m := Compute(dt, sub, &docDate, upload)

	wantActive := time.Date(2040, 3, 1, 0, 0, 0, 0, time.UTC)
	if !m.ActiveUntil.Equal(wantActive) {
		t.Errorf("ActiveUntil = %v, ожидалась %v", m.ActiveUntil, wantActive)
	}
	wantArchive := time.Date(2045, 3, 1, 0, 0, 0, 0, time.UTC)
	if !m.ArchiveUntil.Equal(wantArchive) {
		t.Errorf("ArchiveUntil = %v, ожидалась %v", m.ArchiveUntil, wantArchive)
	}
	if m.FinalDisposition != model.DispositionConserveTotal {
		t.Errorf("FinalDisposition = %q, ожидалась CT", m.FinalDisposition)
	}
}

// TestCompute_UploadDateFallback проверяет fallback на дату загрузки.
func TestCompute_UploadDateFallback(t *testing.T) {
	dt := &model.DocumentType{}
	sub := &model.Subcategory{RetentionActiveYears: 2}
	upload := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	m := Compute(dt, sub, nil, upload)

	wantActive := time.Date(2028, 1, 15, 12, 0, 0, 0, time.UTC)
	if !m.ActiveUntil.Equal(wantActive) {
		t.Errorf("ActiveUntil = %v, ожидалась %v", m.ActiveUntil, wantActive)
	}
	// Архивный срок 0 лет — ArchiveUntil совпадает с ActiveUntil
	if !m.ArchiveUntil.Equal(wantActive) {
		t.Errorf("ArchiveUntil = %v, ожидалась %v", m.ArchiveUntil, wantActive)
	}
}

// TestCompute_Determinism проверяет детерминированность расчёта.
func TestCompute_Determinism(t *testing.T) {
	dt := &model.DocumentType{RetentionActiveYears: 7}
	sub := &model.Subcategory{RetentionActiveYears: 20, RetentionArchiveYears: 80}
	upload := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first := Compute(dt, sub, nil, upload)
	second := Compute(dt, sub, nil, upload)

	if first != second {
		t.Errorf("повторный расчёт дал другой результат: %+v != %+v", first, second)
	}
	// Большие значения лет не ограничиваются
	if first.ArchiveUntil.Year() != 2026+7+80 {
		t.Errorf("ArchiveUntil.Year = %d, ожидался %d", first.ArchiveUntil.Year(), 2026+7+80)
	}
}
