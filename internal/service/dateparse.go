// dateparse.go — эвристика распознавания дат в поисковом запросе.
// Найденная дата превращается в окно [From, To) и добавляется к фильтрам
// поиска как подсказка; текстовый матч она никогда не заменяет.
package service

import (
	"strings"
	"time"
	"unicode"
)

// DateWindow — полуоткрытое окно дат [From, To).
type DateWindow struct {
	From time.Time
	To   time.Time
}

// exactDayFormats — форматы точной даты в порядке приоритета.
// Неоднозначность вида 03/04/2025 разрешается порядком списка:
// день/месяц (латиноамериканская запись) пробуется раньше месяц/день.
var exactDayFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
}

// monthFormats — форматы месяца без дня.
var monthFormats = []string{
	"2006-01",
	"01-2006",
	"01/2006",
}

// spanishMonths — испанские названия месяцев (включая вариант setiembre).
var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// TryParseDateFromQuery ищет в свободном тексте запроса первый
// распознаваемый фрагмент даты. Возвращает (окно, true) при успехе.
// Приоритет: точная дата, числовой месяц, испанское название месяца.
// Мусор и обычные числа окна не дают.
func TryParseDateFromQuery(query string) (*DateWindow, bool) {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})

	for i, tok := range tokens {
		if w, ok := parseExactDay(tok); ok {
			return w, true
		}
		if w, ok := parseNumericMonth(tok); ok {
			return w, true
		}
		if w, ok := parseSpanishMonth(tokens, i); ok {
			return w, true
		}
	}
	return nil, false
}

// parseExactDay пробует форматы точной даты. Окно — один день.
func parseExactDay(tok string) (*DateWindow, bool) {
	for _, layout := range exactDayFormats {
		t, err := time.ParseInLocation(layout, tok, time.UTC)
		if err != nil {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &DateWindow{From: day, To: day.AddDate(0, 0, 1)}, true
	}
	return nil, false
}

// parseNumericMonth пробует форматы месяца. Окно — календарный месяц.
func parseNumericMonth(tok string) (*DateWindow, bool) {
	for _, layout := range monthFormats {
		t, err := time.ParseInLocation(layout, tok, time.UTC)
		if err != nil {
			continue
		}
		return monthWindow(t.Year(), t.Month()), true
	}
	return nil, false
}

// parseSpanishMonth распознаёт "noviembre 2025" и "noviembre de 2025".
func parseSpanishMonth(tokens []string, i int) (*DateWindow, bool) {
	month, ok := spanishMonths[strings.ToLower(tokens[i])]
	if !ok {
		return nil, false
	}

	// Год — следующий токен, допускается связка "de"
	j := i + 1
	if j < len(tokens) && strings.EqualFold(tokens[j], "de") {
		j++
	}
	if j >= len(tokens) {
		return nil, false
	}
	year, err := time.ParseInLocation("2006", tokens[j], time.UTC)
	if err != nil {
		return nil, false
	}
	return monthWindow(year.Year(), month), true
}

func monthWindow(year int, month time.Month) *DateWindow {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &DateWindow{From: from, To: from.AddDate(0, 1, 0)}
}
