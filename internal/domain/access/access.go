// Пакет access — единственный источник истины «что видит этот вызывающий».
// Роль Admin обходит фильтрацию по категориям; любая другая роль отображается
// на ровно одну категорию через статическую таблицу роль → категория,
// внедряемую при конструировании (тестируется с альтернативными таблицами
// без перекомпиляции). Все компоненты, читающие документы, обязаны
// пересекать предикаты запросов с AllowedCategories.
package access

import "strings"

// RoleAdmin — имя привилегированной роли, видящей все категории.
const RoleAdmin = "Admin"

// Identity — непрозрачная личность вызывающего из слоя аутентификации.
// Доверяется после успешной проверки токена.
type Identity struct {
	// UserID — идентификатор пользователя
	UserID int64
	// Role — имя единственной роли пользователя
	Role string
}

// Resolver — вычисляет множество категорий, видимых вызывающему.
// Resolver дёшев и не имеет состояния запроса: резолвить доступ нужно
// заново в начале каждой операции, т.к. таблица и роли могут меняться
// между запросами.
type Resolver struct {
	// roleToCategory — нормализованное (lower-case) имя роли → id категории
	roleToCategory map[string]int64
	// allCategories — полное множество категорий (для Admin)
	allCategories []int64
}

// DefaultRoleMapping возвращает таблицу роль → категория по умолчанию.
// Соответствует seed-данным классификации (миграция 0002).
func DefaultRoleMapping() map[string]int64 {
	return map[string]int64{
		"GestClinica":    1,
		"GestiAdmin":     2,
		"GestFinYCon":    3,
		"GestJurid":      4,
		"GestCalidad":    5,
		"SGSST":          6,
		"AdminEquBiomed": 7,
	}
}

// NewResolver создаёт Resolver с внедрённой таблицей роль → категория.
// Имена ролей нормализуются один раз здесь — дальше сравнение без учёта
// регистра сводится к точному поиску по map.
func NewResolver(roleToCategory map[string]int64) *Resolver {
	normalized := make(map[string]int64, len(roleToCategory))
	seen := make(map[int64]bool, len(roleToCategory))
	var all []int64
	for role, categoryID := range roleToCategory {
		normalized[strings.ToLower(role)] = categoryID
		if !seen[categoryID] {
			seen[categoryID] = true
			all = append(all, categoryID)
		}
	}
	return &Resolver{
		roleToCategory: normalized,
		allCategories:  all,
	}
}

// IsAdmin проверяет, является ли вызывающий администратором.
// Чистая проверка имени роли без учёта регистра.
func (r *Resolver) IsAdmin(caller Identity) bool {
	return strings.EqualFold(caller.Role, RoleAdmin)
}

// AllowedCategories возвращает множество категорий, видимых вызывающему:
//   - Admin — все категории таблицы;
//   - роль из таблицы — singleton-множество её категории;
//   - несопоставленная роль — пустое множество (доступ ни к чему).
func (r *Resolver) AllowedCategories(caller Identity) []int64 {
	if r.IsAdmin(caller) {
		out := make([]int64, len(r.allCategories))
		copy(out, r.allCategories)
		return out
	}
	if categoryID, ok := r.roleToCategory[strings.ToLower(caller.Role)]; ok {
		return []int64{categoryID}
	}
	return nil
}

// CanSeeCategory проверяет видимость конкретной категории.
func (r *Resolver) CanSeeCategory(caller Identity, categoryID int64) bool {
	if r.IsAdmin(caller) {
		return true
	}
	mapped, ok := r.roleToCategory[strings.ToLower(caller.Role)]
	return ok && mapped == categoryID
}
