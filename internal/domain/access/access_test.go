package access

import (
	"sort"
	"testing"
)

// testMapping — альтернативная таблица для тестов (не совпадает с production seed).
func testMapping() map[string]int64 {
	return map[string]int64{
		"GestClinica": 1,
		"GestiAdmin":  2,
		"SGSST":       6,
	}
}

// TestResolver_Admin проверяет, что Admin видит все категории таблицы.
func TestResolver_Admin(t *testing.T) {
	r := NewResolver(testMapping())
	caller := Identity{UserID: 1, Role: "Admin"}

	if !r.IsAdmin(caller) {
		t.Fatal("IsAdmin = false, ожидался true")
	}

	got := r.AllowedCategories(caller)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []int64{1, 2, 6}
	if len(got) != len(want) {
		t.Fatalf("AllowedCategories = %v, ожидались %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedCategories[%d] = %d, ожидался %d", i, got[i], want[i])
		}
	}
}

// TestResolver_MappedRole проверяет singleton-множество для роли из таблицы.
func TestResolver_MappedRole(t *testing.T) {
	r := NewResolver(testMapping())
	caller := Identity{UserID: 2, Role: "GestClinica"}

	if r.IsAdmin(caller) {
		t.Error("IsAdmin = true, ожидался false")
	}

	got := r.AllowedCategories(caller)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("AllowedCategories = %v, ожидался [1]", got)
	}
}

// TestResolver_CaseInsensitive проверяет поиск роли без учёта регистра.
func TestResolver_CaseInsensitive(t *testing.T) {
	r := NewResolver(testMapping())

	for _, role := range []string{"gestclinica", "GESTCLINICA", "gEsTcLiNiCa"} {
		got := r.AllowedCategories(Identity{Role: role})
		if len(got) != 1 || got[0] != 1 {
			t.Errorf("AllowedCategories(%q) = %v, ожидался [1]", role, got)
		}
	}

	if !r.IsAdmin(Identity{Role: "admin"}) {
		t.Error("IsAdmin(\"admin\") = false, ожидался true")
	}
}

// TestResolver_UnmappedRole проверяет пустое множество для неизвестной роли.
func TestResolver_UnmappedRole(t *testing.T) {
	r := NewResolver(testMapping())
	got := r.AllowedCategories(Identity{UserID: 3, Role: "Viewer"})
	if len(got) != 0 {
		t.Errorf("AllowedCategories = %v, ожидалось пустое множество", got)
	}
}

// TestResolver_CanSeeCategory проверяет точечную проверку видимости.
func TestResolver_CanSeeCategory(t *testing.T) {
	r := NewResolver(testMapping())

	if !r.CanSeeCategory(Identity{Role: "SGSST"}, 6) {
		t.Error("SGSST должна видеть категорию 6")
	}
	if r.CanSeeCategory(Identity{Role: "SGSST"}, 1) {
		t.Error("SGSST не должна видеть категорию 1")
	}
	if !r.CanSeeCategory(Identity{Role: "Admin"}, 999) {
		t.Error("Admin должен видеть любую категорию")
	}
	if r.CanSeeCategory(Identity{Role: "Viewer"}, 1) {
		t.Error("несопоставленная роль не должна видеть ничего")
	}
}

// TestDefaultRoleMapping проверяет полноту production-таблицы.
func TestDefaultRoleMapping(t *testing.T) {
	m := DefaultRoleMapping()
	if len(m) != 7 {
		t.Fatalf("ролей в таблице = %d, ожидалось 7", len(m))
	}
	if m["GestClinica"] != 1 {
		t.Errorf("GestClinica → %d, ожидалась категория 1", m["GestClinica"])
	}
}
