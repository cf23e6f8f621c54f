package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/objstore"
	"github.com/bigkaa/godms/internal/repository"
)

// fakeTxRunner выполняет fn без настоящей транзакции.
type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) RunInTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// docServiceEnv — собранный сервис документов с моками.
type docServiceEnv struct {
	svc       *DocumentService
	docRepo   *mockDocumentRepo
	classRepo *mockClassificationRepo
	store     *objstore.MemoryStore
	auditRepo *mockAuditRepo
}

// invoiceTypePath — путь типа 18 (Факту́ра, категория 3).
func invoiceTypePath(_ context.Context, documentTypeID int64) (*model.ClassificationPath, error) {
	return &model.ClassificationPath{
		Category: &model.Category{ID: 3, Name: "Gestión Financiera y Contable"},
		Subcategory: &model.Subcategory{
			ID: 8, CategoryID: 3, Name: "Facturas",
			RetentionActiveYears: 5, FinalDisposition: model.DispositionEliminate,
		},
		DocumentType: &model.DocumentType{
			ID: documentTypeID, SubcategoryID: 8, Name: "Factura de proveedor", IsActive: true,
		},
	}, nil
}

func newDocServiceEnv(t *testing.T, txErr error) *docServiceEnv {
	t.Helper()

	env := &docServiceEnv{
		docRepo:   &mockDocumentRepo{},
		classRepo: &mockClassificationRepo{resolvePathFn: invoiceTypePath},
		store:     objstore.NewMemoryStore("dms"),
		auditRepo: &mockAuditRepo{},
	}

	resolver := access.NewResolver(access.DefaultRoleMapping())
	cache := NewCacheService(100, 5*time.Minute)
	logger := slog.Default()
	classSvc := NewClassificationService(env.classRepo, resolver, cache, logger)
	audit := NewAuditService(env.auditRepo, logger)

	env.svc = NewDocumentService(env.docRepo, classSvc, resolver,
		env.store, audit, &fakeTxRunner{err: txErr}, logger)
	// Транзакционный репозиторий подменяется тем же моком
	env.svc.newDocRepo = func(_ repository.DBTX) repository.DocumentRepository {
		return env.docRepo
	}
	return env
}

var financialCaller = access.Identity{UserID: 5, Role: "GestFinYCon"}

func uploadParams(content string) UploadParams {
	return UploadParams{
		OriginalName:   "factura_noviembre.txt",
		ContentType:    "text/plain",
		Content:        strings.NewReader(content),
		DocumentTypeID: 18,
	}
}

// TestDocumentService_Upload_OK проверяет полный цикл загрузки.
func TestDocumentService_Upload_OK(t *testing.T) {
	env := newDocServiceEnv(t, nil)

	var createdDoc *model.Document
	var insertedVersion *model.DocumentVersion
	env.docRepo.createFn = func(_ context.Context, d *model.Document) error {
		d.ID = 42
		createdDoc = d
		return nil
	}
	env.docRepo.insertVersionFn = func(_ context.Context, v *model.DocumentVersion) error {
		insertedVersion = v
		return nil
	}
	var audited []string
	env.auditRepo.appendFn = func(_ context.Context, e *model.AuditLogEntry) error {
		audited = append(audited, e.Action)
		return nil
	}

	doc, err := env.svc.Upload(context.Background(), financialCaller, uploadParams("factura proveedor noviembre"))
	if err != nil {
		t.Fatalf("Upload ошибка: %v", err)
	}

	if doc.ID != 42 {
		t.Errorf("ID = %d, ожидался 42", doc.ID)
	}
	if doc.CurrentVersion != 1 {
		t.Errorf("CurrentVersion = %d, ожидалась 1", doc.CurrentVersion)
	}
	if createdDoc == nil || createdDoc.ObjectKey == "" {
		t.Fatal("документ не создан или без object_key")
	}
	if !env.store.Has(createdDoc.ObjectKey) {
		t.Error("блоб не записан в хранилище")
	}
	if insertedVersion == nil || insertedVersion.VersionNumber != 1 {
		t.Fatalf("версия = %+v, ожидалась версия 1", insertedVersion)
	}
	if insertedVersion.ObjectKey != createdDoc.ObjectKey {
		t.Error("ключ блоба версии 1 должен совпадать с ключом документа")
	}
	// Retention: 5 лет оперативного хранения от даты загрузки
	if createdDoc.ActiveUntil == nil || createdDoc.ActiveUntil.Year() != time.Now().UTC().Year()+5 {
		t.Errorf("ActiveUntil = %v, ожидался сдвиг на 5 лет", createdDoc.ActiveUntil)
	}
	// Извлечённый текст попал в search_text
	if !strings.Contains(createdDoc.SearchText, "factura proveedor noviembre") {
		t.Errorf("SearchText = %q, ожидался извлечённый текст", createdDoc.SearchText)
	}
	if len(audited) != 1 || audited[0] != model.AuditActionUpload {
		t.Errorf("аудит = %v, ожидался [UPLOAD]", audited)
	}
}

// TestDocumentService_Upload_Forbidden: чужая категория — отказ до записи блоба.
func TestDocumentService_Upload_Forbidden(t *testing.T) {
	env := newDocServiceEnv(t, nil)

	_, err := env.svc.Upload(context.Background(), clinicalCaller, uploadParams("x"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("ошибка = %v, ожидалась ErrForbidden", err)
	}
	if env.store.Len() != 0 {
		t.Error("блоб не должен записываться при отказе в доступе")
	}
}

// TestDocumentService_Upload_InactiveType: неактивный тип отклоняется.
func TestDocumentService_Upload_InactiveType(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.classRepo.resolvePathFn = func(ctx context.Context, id int64) (*model.ClassificationPath, error) {
		path, _ := invoiceTypePath(ctx, id)
		path.DocumentType.IsActive = false
		return path, nil
	}

	_, err := env.svc.Upload(context.Background(), financialCaller, uploadParams("x"))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("ошибка = %v, ожидалась ErrValidation", err)
	}
}

// TestDocumentService_Upload_UnknownType: несуществующий тип — ошибка валидации.
func TestDocumentService_Upload_UnknownType(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.classRepo.resolvePathFn = nil // дефолт мока: ErrNotFound

	_, err := env.svc.Upload(context.Background(), financialCaller, uploadParams("x"))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("ошибка = %v, ожидалась ErrValidation", err)
	}
}

// TestDocumentService_Upload_BlobRetry: временные сбои хранилища переживаются.
func TestDocumentService_Upload_BlobRetry(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.store.PutErr = errors.New("timeout")
	env.store.PutFailures = 2

	doc, err := env.svc.Upload(context.Background(), financialCaller, uploadParams("contenido"))
	if err != nil {
		t.Fatalf("Upload ошибка после повторов: %v", err)
	}
	if !env.store.Has(doc.ObjectKey) {
		t.Error("блоб не записан после успешного повтора")
	}
}

// TestDocumentService_Upload_BlobFailure: исчерпание повторов — ErrUpstream,
// запись в реестре не создаётся.
func TestDocumentService_Upload_BlobFailure(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.store.PutErr = errors.New("storage down")
	env.store.PutFailures = -1 // всегда отказывать
	env.docRepo.createFn = func(_ context.Context, _ *model.Document) error {
		t.Error("Create не должен вызываться при сбое блоба")
		return nil
	}

	_, err := env.svc.Upload(context.Background(), financialCaller, uploadParams("x"))
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("ошибка = %v, ожидалась ErrUpstream", err)
	}
}

// TestDocumentService_Upload_TxFailure: сбой транзакции оставляет осиротевший блоб.
func TestDocumentService_Upload_TxFailure(t *testing.T) {
	env := newDocServiceEnv(t, errors.New("deadlock"))

	_, err := env.svc.Upload(context.Background(), financialCaller, uploadParams("x"))
	if err == nil {
		t.Fatal("ожидалась ошибка транзакции")
	}
	// Блоб записан до транзакции и остаётся мусором в хранилище
	if env.store.Len() != 1 {
		t.Errorf("блобов в хранилище = %d, ожидался 1 (сирота)", env.store.Len())
	}
}

// TestDocumentService_Get_SoftDeleted: удалённый неотличим от несуществующего.
func TestDocumentService_Get_SoftDeleted(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
		return &model.Document{ID: id, DocumentTypeID: 18, IsDeleted: true}, nil
	}

	_, err := env.svc.Get(context.Background(), adminCaller, 7)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

// TestDocumentService_Get_Forbidden: документ чужой категории.
func TestDocumentService_Get_Forbidden(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
		return &model.Document{ID: id, DocumentTypeID: 18}, nil
	}

	_, err := env.svc.Get(context.Background(), clinicalCaller, 7)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("ошибка = %v, ожидалась ErrForbidden", err)
	}

	// Admin тот же документ видит
	if _, err := env.svc.Get(context.Background(), adminCaller, 7); err != nil {
		t.Errorf("Get для Admin ошибка: %v", err)
	}
}

// TestDocumentService_SoftDelete_Idempotent: повторное удаление — no-op.
func TestDocumentService_SoftDelete_Idempotent(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	deleted := false
	env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
		return &model.Document{ID: id, DocumentTypeID: 18, IsDeleted: deleted}, nil
	}
	env.docRepo.softDeleteFn = func(_ context.Context, _ int64, _ *int64) (bool, error) {
		if deleted {
			return false, nil
		}
		deleted = true
		return true, nil
	}
	auditCount := 0
	env.auditRepo.appendFn = func(_ context.Context, _ *model.AuditLogEntry) error {
		auditCount++
		return nil
	}
	ctx := context.Background()

	if err := env.svc.SoftDelete(ctx, financialCaller, 7); err != nil {
		t.Fatalf("первое удаление ошибка: %v", err)
	}
	if err := env.svc.SoftDelete(ctx, financialCaller, 7); err != nil {
		t.Fatalf("повторное удаление должно быть no-op, ошибка: %v", err)
	}
	if auditCount != 1 {
		t.Errorf("записей аудита = %d, ожидалась 1 (повтор не аудируется)", auditCount)
	}
}

// TestDocumentService_AddVersion_OK: версия 2 и переключение головного блоба.
func TestDocumentService_AddVersion_OK(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
		return &model.Document{
			ID: id, DocumentTypeID: 18, OriginalName: "factura.txt",
			ContentType: "text/plain", ObjectKey: "dt18/old", CurrentVersion: 1,
		}, nil
	}
	var headKey string
	env.docRepo.updateHeadFn = func(_ context.Context, _ int64, objectKey, _ string, _ int64, _, _ string) error {
		headKey = objectKey
		return nil
	}

	v, err := env.svc.AddVersion(context.Background(), financialCaller, 7, VersionParams{
		Content: strings.NewReader("versión corregida"),
	})
	if err != nil {
		t.Fatalf("AddVersion ошибка: %v", err)
	}
	if v.VersionNumber != 2 {
		t.Errorf("VersionNumber = %d, ожидался 2", v.VersionNumber)
	}
	if headKey == "" || headKey == "dt18/old" {
		t.Errorf("головной блоб не переключён: %q", headKey)
	}
	if v.ObjectKey != headKey {
		t.Error("ключ версии должен совпадать с новым головным ключом")
	}
	if !env.store.Has(v.ObjectKey) {
		t.Error("блоб новой версии не записан")
	}
}

// TestDocumentService_PresignDownload_TTLClamp: TTL ограничивается [60s, 24h].
func TestDocumentService_PresignDownload_TTLClamp(t *testing.T) {
	cases := []struct {
		name        string
		ttl         time.Duration
		wantExpires string
	}{
		{"Слишком короткий", time.Second, "expires=60"},
		{"Слишком длинный", 48 * time.Hour, "expires=86400"},
		{"В границах", 10 * time.Minute, "expires=600"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newDocServiceEnv(t, nil)
			env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
				return &model.Document{ID: id, DocumentTypeID: 18, ObjectKey: "dt18/key"}, nil
			}
			_ = env.store.Put(context.Background(), "dt18/key", strings.NewReader("x"), 1, "text/plain")

			u, err := env.svc.PresignDownload(context.Background(), financialCaller, 7, tc.ttl)
			if err != nil {
				t.Fatalf("PresignDownload ошибка: %v", err)
			}
			if !strings.Contains(u, tc.wantExpires) {
				t.Errorf("URL = %q, ожидалось %q", u, tc.wantExpires)
			}
		})
	}
}

// TestDocumentService_Download_OK: скачивание отдаёт содержимое блоба.
func TestDocumentService_Download_OK(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
		return &model.Document{ID: id, DocumentTypeID: 18, ObjectKey: "dt18/key", OriginalName: "factura.txt"}, nil
	}
	_ = env.store.Put(context.Background(), "dt18/key", strings.NewReader("contenido"), 9, "text/plain")

	rc, doc, err := env.svc.Download(context.Background(), financialCaller, 7)
	if err != nil {
		t.Fatalf("Download ошибка: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "contenido" {
		t.Errorf("содержимое = %q, ожидалось %q", data, "contenido")
	}
	if doc.OriginalName != "factura.txt" {
		t.Errorf("OriginalName = %q", doc.OriginalName)
	}
}

// TestDocumentService_Download_BlobMissing: рассинхрон реестра и хранилища.
func TestDocumentService_Download_BlobMissing(t *testing.T) {
	env := newDocServiceEnv(t, nil)
	env.docRepo.getByIDFn = func(_ context.Context, id int64) (*model.Document, error) {
		return &model.Document{ID: id, DocumentTypeID: 18, ObjectKey: "dt18/missing"}, nil
	}

	_, _, err := env.svc.Download(context.Background(), financialCaller, 7)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("ошибка = %v, ожидалась ErrUpstream", err)
	}
}
