package objstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// TestMemoryStore_PutGet проверяет round-trip блоба.
func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore("dms")
	ctx := context.Background()

	content := "hola mundo"
	err := s.Put(ctx, "td/1/abc_file.txt", strings.NewReader(content), int64(len(content)), "text/plain")
	if err != nil {
		t.Fatalf("Put ошибка: %v", err)
	}

	rc, err := s.Get(ctx, "td/1/abc_file.txt")
	if err != nil {
		t.Fatalf("Get ошибка: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll ошибка: %v", err)
	}
	if string(data) != content {
		t.Errorf("содержимое = %q, ожидалось %q", data, content)
	}
}

// TestMemoryStore_GetMissing проверяет ErrObjectNotFound.
func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore("dms")
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrObjectNotFound", err)
	}
}

// TestMemoryStore_PutSizeMismatch проверяет контроль заявленного размера.
func TestMemoryStore_PutSizeMismatch(t *testing.T) {
	s := NewMemoryStore("dms")
	err := s.Put(context.Background(), "k", strings.NewReader("abc"), 10, "text/plain")
	if err == nil {
		t.Fatal("ожидалась ошибка несовпадения размера")
	}
}

// TestMemoryStore_PutFailureInjection проверяет инъекцию ограниченного числа сбоев.
func TestMemoryStore_PutFailureInjection(t *testing.T) {
	s := NewMemoryStore("dms")
	s.PutErr = errors.New("временный сбой")
	s.PutFailures = 2
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"); err == nil {
			t.Fatalf("попытка %d: ожидалась инъецированная ошибка", i+1)
		}
	}
	// Третья попытка проходит
	if err := s.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatalf("третья попытка должна быть успешной, получено: %v", err)
	}
	if !s.Has("k") {
		t.Error("объект не сохранён после успешного Put")
	}
}

// TestMemoryStore_PresignGet проверяет выпуск ссылки только на существующий объект.
func TestMemoryStore_PresignGet(t *testing.T) {
	s := NewMemoryStore("dms")
	ctx := context.Background()

	if _, err := s.PresignGet(ctx, "missing", time.Minute); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrObjectNotFound", err)
	}

	_ = s.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain")
	u, err := s.PresignGet(ctx, "k", 10*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet ошибка: %v", err)
	}
	if !strings.Contains(u.String(), "expires=600") {
		t.Errorf("URL = %q, ожидалось expires=600", u.String())
	}
}
