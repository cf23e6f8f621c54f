// Пакет service — бизнес-логика DMS.
// CacheService — LRU-кэш разрешённых путей классификации с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godms/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dms_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш путей классификации.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dms_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша путей классификации.",
	})
)

// CacheService — LRU-кэш путей классификации с автоматическим TTL.
// Путь типа документа меняется редко (только правкой справочника),
// поэтому короткий TTL достаточен для согласованности.
type CacheService struct {
	cache *expirable.LRU[int64, *model.ClassificationPath]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[int64, *model.ClassificationPath](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает путь классификации из кэша по id типа документа.
// Возвращает (путь, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(documentTypeID int64) (*model.ClassificationPath, bool) {
	val, ok := c.cache.Get(documentTypeID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(documentTypeID int64, path *model.ClassificationPath) {
	c.cache.Add(documentTypeID, path)
}

// Delete удаляет запись из кэша (инвалидация при правке справочника).
func (c *CacheService) Delete(documentTypeID int64) {
	c.cache.Remove(documentTypeID)
}
