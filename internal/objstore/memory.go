// memory.go — in-memory реализация Store для unit-тестов.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// memoryObject — объект в памяти.
type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore — потокобезопасное in-memory объектное хранилище.
// Позволяет инъецировать ошибки для тестирования компенсирующей логики.
type MemoryStore struct {
	mu      sync.Mutex
	bucket  string
	ensured bool
	objects map[string]memoryObject

	// PutErr — если задана, Put возвращает эту ошибку (инъекция сбоя)
	PutErr error
	// PutFailures — сколько вызовов Put завершатся PutErr до успеха;
	// отрицательное значение = отказывать всегда
	PutFailures int
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutErr != nil && s.PutFailures != 0 {
		if s.PutFailures > 0 {
			s.PutFailures--
		}
		return s.PutErr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("ошибка чтения потока: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("размер потока %d не совпадает с заявленным %d", len(data), size)
	}
	s.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (*url.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return nil, ErrObjectNotFound
	}
	raw := fmt.Sprintf("https://memory.invalid/%s/%s?expires=%d", s.bucket, key, int(ttl.Seconds()))
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки URL: %w", err)
	}
	return u, nil
}

func (s *MemoryStore) EnsureBucket(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = true
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len возвращает количество объектов (для проверок в тестах).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Has проверяет наличие объекта (для проверок в тестах).
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}
