package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/repository"
)

func newSearchService(repo *mockDocumentRepo) *SearchService {
	resolver := access.NewResolver(access.DefaultRoleMapping())
	return NewSearchService(repo, resolver, slog.Default())
}

// TestSearchService_Search_AdminUnrestricted: Admin ищет без фильтра категорий.
func TestSearchService_Search_AdminUnrestricted(t *testing.T) {
	repo := &mockDocumentRepo{
		searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
			if !params.Unrestricted {
				t.Error("для Admin ожидался Unrestricted")
			}
			if params.AllowedCategories != nil {
				t.Errorf("AllowedCategories = %v, для Admin ожидался nil", params.AllowedCategories)
			}
			return []*model.DocumentSummary{{ID: 1}, {ID: 2}}, 2, nil
		},
	}
	svc := newSearchService(repo)

	result, err := svc.Search(context.Background(), adminCaller, SearchQuery{})
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if result.Total != 2 || len(result.Items) != 2 {
		t.Errorf("Total = %d, Items = %d, ожидалось 2/2", result.Total, len(result.Items))
	}
	if result.HasMore {
		t.Error("HasMore = true, все результаты уже отданы")
	}
}

// TestSearchService_Search_ScopedToAllowed: не-админ ограничен своей категорией.
func TestSearchService_Search_ScopedToAllowed(t *testing.T) {
	repo := &mockDocumentRepo{
		searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
			if params.Unrestricted {
				t.Error("Unrestricted недопустим для не-админа")
			}
			if len(params.AllowedCategories) != 1 || params.AllowedCategories[0] != 1 {
				t.Errorf("AllowedCategories = %v, ожидался [1]", params.AllowedCategories)
			}
			return nil, 0, nil
		},
	}
	svc := newSearchService(repo)

	if _, err := svc.Search(context.Background(), clinicalCaller, SearchQuery{}); err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
}

// TestSearchService_Search_UnmappedSeesNothing: роль без сопоставления
// получает пустое множество категорий (а не отсутствие фильтра).
func TestSearchService_Search_UnmappedSeesNothing(t *testing.T) {
	repo := &mockDocumentRepo{
		searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
			if params.Unrestricted {
				t.Error("Unrestricted недопустим для несопоставленной роли")
			}
			if len(params.AllowedCategories) != 0 {
				t.Errorf("AllowedCategories = %v, ожидалось пустое множество", params.AllowedCategories)
			}
			return nil, 0, nil
		},
	}
	svc := newSearchService(repo)

	result, err := svc.Search(context.Background(), unmappedCaller, SearchQuery{})
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("Total = %d, ожидался 0", result.Total)
	}
}

// TestSearchService_Search_DateHint: эвристика добавляет окно дат,
// не трогая текстовый матч.
func TestSearchService_Search_DateHint(t *testing.T) {
	repo := &mockDocumentRepo{
		searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
			if params.FreeText == nil || *params.FreeText != "facturas noviembre 2025" {
				t.Errorf("FreeText = %v, текстовый матч должен сохраниться", params.FreeText)
			}
			if params.DocumentDateFrom == nil || params.DocumentDateTo == nil {
				t.Fatal("ожидалось окно дат от эвристики")
			}
			wantFrom := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
			if !params.DocumentDateFrom.Equal(wantFrom) {
				t.Errorf("DocumentDateFrom = %v, ожидалось %v", params.DocumentDateFrom, wantFrom)
			}
			if !params.DocumentDateTo.Equal(wantFrom.AddDate(0, 1, 0)) {
				t.Errorf("DocumentDateTo = %v, ожидался следующий месяц", params.DocumentDateTo)
			}
			return nil, 0, nil
		},
	}
	svc := newSearchService(repo)

	result, err := svc.Search(context.Background(), adminCaller, SearchQuery{
		FreeText: "facturas noviembre 2025",
	})
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if result.DateWindow == nil {
		t.Error("DateWindow не заполнено в результате")
	}
}

// TestSearchService_Search_ExplicitDatesWin: явные фильтры дат
// отключают эвристику.
func TestSearchService_Search_ExplicitDatesWin(t *testing.T) {
	explicitFrom := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockDocumentRepo{
		searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
			if params.DocumentDateFrom == nil || !params.DocumentDateFrom.Equal(explicitFrom) {
				t.Errorf("DocumentDateFrom = %v, ожидался явный фильтр", params.DocumentDateFrom)
			}
			return nil, 0, nil
		},
	}
	svc := newSearchService(repo)

	result, err := svc.Search(context.Background(), adminCaller, SearchQuery{
		FreeText:         "facturas noviembre 2025",
		DocumentDateFrom: timePtr(explicitFrom),
	})
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if result.DateWindow != nil {
		t.Error("эвристика не должна срабатывать при явных фильтрах")
	}
}

// TestSearchService_Search_LimitNormalization проверяет нормализацию пагинации.
func TestSearchService_Search_LimitNormalization(t *testing.T) {
	cases := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
	}{
		{"Ноль", 0, 0, defaultSearchLimit},
		{"Отрицательный", -1, -5, defaultSearchLimit},
		{"Выше предела", 10000, 0, maxSearchLimit},
		{"Обычный", 20, 40, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockDocumentRepo{
				searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
					if params.Limit != tc.wantLimit {
						t.Errorf("Limit = %d, ожидался %d", params.Limit, tc.wantLimit)
					}
					if params.Offset < 0 {
						t.Errorf("Offset = %d, отрицательное смещение недопустимо", params.Offset)
					}
					return nil, 0, nil
				},
			}
			svc := newSearchService(repo)
			if _, err := svc.Search(context.Background(), adminCaller, SearchQuery{Limit: tc.limit, Offset: tc.offset}); err != nil {
				t.Fatalf("Search ошибка: %v", err)
			}
		})
	}
}

// TestSearchService_Search_HasMore проверяет расчёт пагинации.
func TestSearchService_Search_HasMore(t *testing.T) {
	repo := &mockDocumentRepo{
		searchFn: func(_ context.Context, params repository.SearchParams) ([]*model.DocumentSummary, int, error) {
			return []*model.DocumentSummary{{ID: 1}, {ID: 2}}, 10, nil
		},
	}
	svc := newSearchService(repo)

	result, err := svc.Search(context.Background(), adminCaller, SearchQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if !result.HasMore {
		t.Error("HasMore = false, ожидалось true (10 совпадений, отдано 2)")
	}
}
