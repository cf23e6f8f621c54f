// Пакет textextract — извлечение текста из загружаемых документов
// для полнотекстового поиска. Извлечение всегда best-effort:
// неподдерживаемый формат или битый файл дают пустой текст, не ошибку,
// потому что загрузка документа не должна зависеть от качества парсинга.
package textextract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// maxExtractedLen — предел длины извлечённого текста. Индексировать
// мегабайты текста бессмысленно: tsvector всё равно усечёт документ.
const maxExtractedLen = 200_000

// Extract возвращает текст документа для индексации.
// Для неподдерживаемых форматов возвращается пустая строка.
func Extract(blob []byte, contentType string) string {
	mime := normalizeContentType(contentType)

	var text string
	switch {
	case strings.HasPrefix(mime, "text/"):
		text = extractPlain(blob)
	case mime == "application/json", mime == "application/xml":
		text = extractPlain(blob)
	default:
		return ""
	}

	text = collapseWhitespace(text)
	if len(text) > maxExtractedLen {
		text = truncateUTF8(text, maxExtractedLen)
	}
	return text
}

// normalizeContentType отбрасывает параметры вида "; charset=utf-8".
func normalizeContentType(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

// extractPlain принимает блоб как текст, если он валидный UTF-8.
func extractPlain(blob []byte) string {
	blob = bytes.TrimPrefix(blob, []byte{0xEF, 0xBB, 0xBF}) // BOM
	if !utf8.Valid(blob) {
		return ""
	}
	return string(blob)
}

// collapseWhitespace схлопывает последовательности пробельных символов
// в один пробел: переносы строк и табуляции не несут смысла для поиска.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateUTF8 обрезает строку до limit байт, не разрывая руну.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
