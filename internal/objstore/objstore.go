// Пакет objstore — привязка к объектному хранилищу блобов.
// Единственный бакет на всю систему; ключи объектов глобально уникальны
// (случайный токен + детерминированный префикс по типу документа).
// Store реализуется MinIO-клиентом (production) и in-memory хранилищем (тесты).
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"
)

// ErrObjectNotFound — объект отсутствует в хранилище.
var ErrObjectNotFound = errors.New("объект не найден в хранилище")

// Store — интерфейс объектного хранилища.
type Store interface {
	// Put записывает блоб под указанным ключом.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Get возвращает поток блоба. Закрыть — обязанность вызывающего.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// PresignGet выпускает временную ссылку на скачивание объекта.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error)
	// EnsureBucket идемпотентно создаёт бакет, если его нет.
	EnsureBucket(ctx context.Context) error
	// Remove удаляет объект (используется только компенсирующей очисткой).
	Remove(ctx context.Context, key string) error
}

// New создаёт Store по типу из конфигурации.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "minio":
		return NewMinioStore(cfg)
	case "memory":
		return NewMemoryStore(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("неизвестный тип объектного хранилища: %q", cfg.Type)
	}
}

// ReadinessChecker — проверка доступности объектного хранилища
// для readiness probe.
type ReadinessChecker struct {
	store Store
}

// NewReadinessChecker создаёт проверку готовности хранилища.
func NewReadinessChecker(store Store) *ReadinessChecker {
	return &ReadinessChecker{store: store}
}

// CheckReady проверяет доступность бакета.
// Возвращает статус ("ok" или "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.EnsureBucket(ctx); err != nil {
		return "fail", fmt.Sprintf("объектное хранилище недоступно: %v", err)
	}
	return "ok", "объектное хранилище доступно"
}

// Config — параметры подключения к объектному хранилищу.
type Config struct {
	// Type — тип хранилища: minio или memory
	Type string
	// Endpoint — адрес MinIO (host:port)
	Endpoint string
	// AccessKey — ключ доступа
	AccessKey string
	// SecretKey — секретный ключ
	SecretKey string
	// Bucket — единственный бакет системы
	Bucket string
	// UseSSL — TLS при обращении к endpoint
	UseSSL bool
}
