// search.go — сервис поиска документов.
// Сшивает структурные фильтры с множеством видимых категорий,
// добавляет эвристическое окно дат из свободного текста и
// обновляет Prometheus-метрики.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/repository"
)

// Пределы пагинации.
const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dms_search_total",
		Help: "Общее количество поисковых запросов.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dms_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
	searchDateHintTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dms_search_date_hint_total",
		Help: "Количество запросов, в которых эвристика распознала дату.",
	})
)

// SearchQuery — параметры поиска на уровне сервиса.
type SearchQuery struct {
	// FreeText — свободный текст запроса
	FreeText string
	// UseFullText — дополнительно ранжировать tsvector-матчем
	UseFullText bool
	// CategoryID — фильтр по категории
	CategoryID *int64
	// SubcategoryID — фильтр по подкатегории
	SubcategoryID *int64
	// DocumentTypeID — фильтр по типу документа
	DocumentTypeID *int64
	// DocumentDateFrom / DocumentDateTo — явное окно официальной даты
	DocumentDateFrom *time.Time
	DocumentDateTo   *time.Time
	// UploadedFrom / UploadedTo — окно даты загрузки
	UploadedFrom *time.Time
	UploadedTo   *time.Time
	// Limit и Offset — пагинация
	Limit  int
	Offset int
}

// SearchResult — результат поиска с пагинацией.
type SearchResult struct {
	// Items — найденные документы
	Items []*model.DocumentSummary
	// Total — общее количество совпадений
	Total int
	// Limit — применённый лимит
	Limit int
	// Offset — текущее смещение
	Offset int
	// HasMore — есть ли ещё результаты
	HasMore bool
	// DateWindow — окно, распознанное эвристикой (nil, если не сработала)
	DateWindow *DateWindow
}

// SearchService — сервис поиска документов.
type SearchService struct {
	docRepo  repository.DocumentRepository
	resolver *access.Resolver
	logger   *slog.Logger
}

// NewSearchService создаёт сервис поиска.
func NewSearchService(
	docRepo repository.DocumentRepository,
	resolver *access.Resolver,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		docRepo:  docRepo,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "search_service")),
	}
}

// Search выполняет поиск документов в пределах видимых категорий.
// Структурные фильтры пересекаются с множеством категорий вызывающего,
// поэтому фильтр по чужой категории даёт пустой результат, а не утечку.
func (s *SearchService) Search(ctx context.Context, caller access.Identity, query SearchQuery) (*SearchResult, error) {
	start := time.Now()
	searchTotal.Inc()

	params := repository.SearchParams{
		Unrestricted:     s.resolver.IsAdmin(caller),
		CategoryID:       query.CategoryID,
		SubcategoryID:    query.SubcategoryID,
		DocumentTypeID:   query.DocumentTypeID,
		UseFullText:      query.UseFullText,
		DocumentDateFrom: query.DocumentDateFrom,
		DocumentDateTo:   query.DocumentDateTo,
		UploadedFrom:     query.UploadedFrom,
		UploadedTo:       query.UploadedTo,
		Limit:            normalizeLimit(query.Limit),
		Offset:           max(query.Offset, 0),
	}
	if !params.Unrestricted {
		params.AllowedCategories = s.resolver.AllowedCategories(caller)
	}
	if query.FreeText != "" {
		text := query.FreeText
		params.FreeText = &text
	}

	// Эвристика дат: подсказка поверх текстового матча, явные
	// фильтры оператора всегда приоритетнее
	var window *DateWindow
	if query.DocumentDateFrom == nil && query.DocumentDateTo == nil && query.FreeText != "" {
		if w, ok := TryParseDateFromQuery(query.FreeText); ok {
			window = w
			params.DocumentDateFrom = &w.From
			params.DocumentDateTo = &w.To
			searchDateHintTotal.Inc()
		}
	}

	items, total, err := s.docRepo.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("поиск документов: %w", err)
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	s.logger.Debug("Поиск выполнен",
		slog.Int("total", total),
		slog.Int("returned", len(items)),
		slog.Bool("date_hint", window != nil),
		slog.Duration("duration", duration),
	)

	return &SearchResult{
		Items:      items,
		Total:      total,
		Limit:      params.Limit,
		Offset:     params.Offset,
		HasMore:    params.Offset+len(items) < total,
		DateWindow: window,
	}, nil
}

// normalizeLimit приводит лимит к допустимому диапазону.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}
