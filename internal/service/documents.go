// documents.go — сервис жизненного цикла документов.
// Загрузка идёт blob-first: сначала блоб в объектное хранилище
// (с ограниченным числом повторов), затем запись Document + версия 1
// в одной транзакции. Осиротевший блоб при сбое транзакции — логируемый
// мусор, компенсирующего удаления нет.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/domain/retention"
	"github.com/bigkaa/godms/internal/objstore"
	"github.com/bigkaa/godms/internal/repository"
	"github.com/bigkaa/godms/internal/textextract"
)

// Пределы и параметры загрузки.
const (
	// maxUploadSize — максимальный размер загружаемого файла (100 MiB).
	maxUploadSize = 100 << 20
	// blobPutAttempts — количество попыток записи блоба.
	blobPutAttempts = 3
	// blobPutBackoff — базовая задержка между попытками.
	blobPutBackoff = 100 * time.Millisecond
	// presignTTLMin и presignTTLMax — границы TTL временной ссылки.
	presignTTLMin = 60 * time.Second
	presignTTLMax = 86400 * time.Second
)

// Prometheus-метрики документов.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dms_uploads_total",
		Help: "Количество загрузок документов по результату.",
	}, []string{"status"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dms_upload_bytes_total",
		Help: "Общее количество принятых байт.",
	})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dms_downloads_total",
		Help: "Количество скачиваний по результату.",
	}, []string{"status"})

	orphanedBlobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dms_orphaned_blobs_total",
		Help: "Количество осиротевших блобов (блоб записан, транзакция не прошла).",
	})
)

// txRunner выполняет функцию внутри транзакции БД.
type txRunner interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// UploadParams — вход операции Upload.
type UploadParams struct {
	// OriginalName — имя загружаемого файла
	OriginalName string
	// ContentType — MIME-тип
	ContentType string
	// Content — содержимое файла
	Content io.Reader
	// DocumentTypeID — обязательная классификация
	DocumentTypeID int64
	// FolderID — папка (опционально)
	FolderID *int64
	// DocumentDate — официальная дата документа (опционально)
	DocumentDate *time.Time
	// MetadataJSON — произвольные метаданные (опционально)
	MetadataJSON *string
}

// VersionParams — вход операции AddVersion.
type VersionParams struct {
	// OriginalName — имя файла новой версии
	OriginalName string
	// ContentType — MIME-тип
	ContentType string
	// Content — содержимое
	Content io.Reader
}

// DocumentService — сервис жизненного цикла документов.
type DocumentService struct {
	docRepo  repository.DocumentRepository
	classSvc *ClassificationService
	resolver *access.Resolver
	store    objstore.Store
	audit    *AuditService
	tx       txRunner
	logger   *slog.Logger

	// newDocRepo строит репозиторий поверх транзакции (подменяется в тестах)
	newDocRepo func(db repository.DBTX) repository.DocumentRepository
}

// NewDocumentService создаёт сервис документов.
func NewDocumentService(
	docRepo repository.DocumentRepository,
	classSvc *ClassificationService,
	resolver *access.Resolver,
	store objstore.Store,
	audit *AuditService,
	tx txRunner,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:    docRepo,
		classSvc:   classSvc,
		resolver:   resolver,
		store:      store,
		audit:      audit,
		tx:         tx,
		logger:     logger.With(slog.String("component", "document_service")),
		newDocRepo: repository.NewDocumentRepository,
	}
}

// Upload загружает новый документ.
// Порядок: валидация → доступ → retention → блоб → транзакция
// (Document + версия 1). Возвращает созданную запись.
func (s *DocumentService) Upload(ctx context.Context, caller access.Identity, params UploadParams) (*model.Document, error) {
	if params.OriginalName == "" {
		uploadsTotal.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("%w: пустое имя файла", ErrValidation)
	}
	if params.Content == nil {
		uploadsTotal.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("%w: пустое содержимое", ErrValidation)
	}

	path, err := s.classSvc.ResolvePath(ctx, params.DocumentTypeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			uploadsTotal.WithLabelValues("validation_error").Inc()
			return nil, fmt.Errorf("%w: тип документа %d не существует", ErrValidation, params.DocumentTypeID)
		}
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !path.DocumentType.IsActive {
		uploadsTotal.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("%w: тип документа %d неактивен", ErrValidation, params.DocumentTypeID)
	}
	if !s.resolver.CanSeeCategory(caller, path.Category.ID) {
		uploadsTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("%w: категория %q недоступна", ErrForbidden, path.Category.Name)
	}

	blob, err := io.ReadAll(io.LimitReader(params.Content, maxUploadSize+1))
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("чтение содержимого: %w", err)
	}
	if len(blob) == 0 {
		uploadsTotal.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("%w: пустой файл", ErrValidation)
	}
	if len(blob) > maxUploadSize {
		uploadsTotal.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("%w: файл больше %d байт", ErrValidation, maxUploadSize)
	}

	now := time.Now().UTC()
	milestones := retention.Compute(path.DocumentType, path.Subcategory, params.DocumentDate, now)
	extracted := textextract.Extract(blob, params.ContentType)
	searchText := buildSearchText(params.OriginalName, params.MetadataJSON, extracted)
	objectKey := newObjectKey(params.DocumentTypeID, params.OriginalName)

	// Блоб первым: запись в реестре без блоба бесполезна,
	// обратное — всего лишь мусор в хранилище
	if err := s.putBlobWithRetry(ctx, objectKey, blob, params.ContentType); err != nil {
		uploadsTotal.WithLabelValues("upstream_error").Inc()
		return nil, err
	}

	doc := &model.Document{
		OriginalName:   params.OriginalName,
		ObjectKey:      objectKey,
		ContentType:    params.ContentType,
		SizeBytes:      int64(len(blob)),
		DocumentTypeID: params.DocumentTypeID,
		FolderID:       params.FolderID,
		CurrentVersion: 1,
		MetadataJSON:   params.MetadataJSON,
		SearchText:     searchText,
		DocumentDate:   params.DocumentDate,
		ActiveUntil:    &milestones.ActiveUntil,
		ArchiveUntil:   &milestones.ArchiveUntil,
		CreatedBy:      callerID(caller),
		CreatedAt:      now,
		UpdatedBy:      callerID(caller),
		UpdatedAt:      &now,
	}
	if extracted != "" {
		doc.ExtractedText = &extracted
	}

	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := s.newDocRepo(tx)
		if err := repo.Create(ctx, doc); err != nil {
			return err
		}
		return repo.InsertVersion(ctx, &model.DocumentVersion{
			DocumentID:    doc.ID,
			VersionNumber: 1,
			ObjectKey:     objectKey,
			UploadedBy:    callerID(caller),
			UploadedAt:    now,
		})
	})
	if err != nil {
		// Блоб уже записан — фиксируем сироту и отдаём ошибку
		orphanedBlobsTotal.Inc()
		s.logger.Error("Транзакция загрузки не прошла, блоб осиротел",
			slog.String("object_key", objectKey),
			slog.String("error", err.Error()),
		)
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("регистрация документа: %w", err)
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	uploadBytesTotal.Add(float64(len(blob)))
	s.audit.Record(ctx, callerID(caller), model.AuditActionUpload, "document", &doc.ID, &doc.OriginalName)

	s.logger.Info("Документ загружен",
		slog.Int64("document_id", doc.ID),
		slog.String("object_key", objectKey),
		slog.Int64("size_bytes", doc.SizeBytes),
		slog.String("classification", path.String()),
	)
	return doc, nil
}

// Get возвращает документ по id.
// Отсутствующий и мягко удалённый неразличимы (ErrNotFound);
// документ чужой категории даёт ErrForbidden.
func (s *DocumentService) Get(ctx context.Context, caller access.Identity, id int64) (*model.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: документ %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение документа: %w", err)
	}
	if doc.IsDeleted {
		return nil, fmt.Errorf("%w: документ %d", ErrNotFound, id)
	}

	if err := s.checkAccess(ctx, caller, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Download возвращает поток блоба текущей версии документа.
// Закрыть поток — обязанность вызывающего.
func (s *DocumentService) Download(ctx context.Context, caller access.Identity, id int64) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, caller, id)
	if err != nil {
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, nil, err
	}

	rc, err := s.store.Get(ctx, doc.ObjectKey)
	if err != nil {
		if errors.Is(err, objstore.ErrObjectNotFound) {
			// Реестр ссылается на несуществующий блоб — рассинхрон хранилищ
			downloadsTotal.WithLabelValues("blob_missing").Inc()
			s.logger.Error("Блоб отсутствует в хранилище",
				slog.Int64("document_id", doc.ID),
				slog.String("object_key", doc.ObjectKey),
			)
			return nil, nil, fmt.Errorf("%w: блоб документа %d", ErrUpstream, id)
		}
		downloadsTotal.WithLabelValues("upstream_error").Inc()
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	downloadsTotal.WithLabelValues("ok").Inc()
	return rc, doc, nil
}

// PresignDownload выпускает временную ссылку на блоб документа.
// TTL принудительно ограничивается диапазоном [60s, 24h].
func (s *DocumentService) PresignDownload(ctx context.Context, caller access.Identity, id int64, ttl time.Duration) (string, error) {
	doc, err := s.Get(ctx, caller, id)
	if err != nil {
		return "", err
	}

	if ttl < presignTTLMin {
		ttl = presignTTLMin
	}
	if ttl > presignTTLMax {
		ttl = presignTTLMax
	}

	u, err := s.store.PresignGet(ctx, doc.ObjectKey, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: выпуск ссылки: %v", ErrUpstream, err)
	}
	return u.String(), nil
}

// SoftDelete помечает документ удалённым. Идемпотентна: повторное
// удаление — no-op без ошибки. Блоб и версии не трогаются.
func (s *DocumentService) SoftDelete(ctx context.Context, caller access.Identity, id int64) error {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: документ %d", ErrNotFound, id)
		}
		return fmt.Errorf("получение документа: %w", err)
	}

	if err := s.checkAccess(ctx, caller, doc); err != nil {
		return err
	}

	changed, err := s.docRepo.SoftDelete(ctx, id, callerID(caller))
	if err != nil {
		return fmt.Errorf("мягкое удаление: %w", err)
	}
	if !changed {
		// Уже удалён — идемпотентный повтор
		return nil
	}

	s.audit.Record(ctx, callerID(caller), model.AuditActionDelete, "document", &id, nil)
	s.logger.Info("Документ помечен удалённым",
		slog.Int64("document_id", id),
	)
	return nil
}

// AddVersion добавляет новую версию документа.
// Инкремент current_version и вставка строки версии идут в одной
// транзакции; UPDATE берёт блокировку строки документа, поэтому
// конкурентные вызовы сериализуются без пропусков и дублей номеров.
func (s *DocumentService) AddVersion(ctx context.Context, caller access.Identity, id int64, params VersionParams) (*model.DocumentVersion, error) {
	doc, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if params.Content == nil {
		return nil, fmt.Errorf("%w: пустое содержимое", ErrValidation)
	}

	blob, err := io.ReadAll(io.LimitReader(params.Content, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("чтение содержимого: %w", err)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: пустой файл", ErrValidation)
	}
	if len(blob) > maxUploadSize {
		return nil, fmt.Errorf("%w: файл больше %d байт", ErrValidation, maxUploadSize)
	}

	name := params.OriginalName
	if name == "" {
		name = doc.OriginalName
	}
	contentType := params.ContentType
	if contentType == "" {
		contentType = doc.ContentType
	}

	now := time.Now().UTC()
	objectKey := newObjectKey(doc.DocumentTypeID, name)
	extracted := textextract.Extract(blob, contentType)
	searchText := buildSearchText(name, doc.MetadataJSON, extracted)

	if err := s.putBlobWithRetry(ctx, objectKey, blob, contentType); err != nil {
		return nil, err
	}

	version := &model.DocumentVersion{
		DocumentID: id,
		ObjectKey:  objectKey,
		UploadedBy: callerID(caller),
		UploadedAt: now,
	}
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := s.newDocRepo(tx)
		newVersion, err := repo.BumpVersion(ctx, id, callerID(caller))
		if err != nil {
			return err
		}
		version.VersionNumber = newVersion
		if err := repo.InsertVersion(ctx, version); err != nil {
			return err
		}
		return repo.UpdateHead(ctx, id, objectKey, contentType, int64(len(blob)), extracted, searchText)
	})
	if err != nil {
		orphanedBlobsTotal.Inc()
		s.logger.Error("Транзакция новой версии не прошла, блоб осиротел",
			slog.String("object_key", objectKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("регистрация версии: %w", err)
	}

	s.audit.Record(ctx, callerID(caller), model.AuditActionNewVersion, "document", &id, &name)
	s.logger.Info("Добавлена версия документа",
		slog.Int64("document_id", id),
		slog.Int("version", version.VersionNumber),
	)
	return version, nil
}

// ListVersions возвращает версии документа по возрастанию номера.
func (s *DocumentService) ListVersions(ctx context.Context, caller access.Identity, id int64) ([]*model.DocumentVersion, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	versions, err := s.docRepo.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("получение версий: %w", err)
	}
	return versions, nil
}

// checkAccess проверяет, что выведенная категория документа видна вызывающему.
func (s *DocumentService) checkAccess(ctx context.Context, caller access.Identity, doc *model.Document) error {
	if s.resolver.IsAdmin(caller) {
		return nil
	}
	path, err := s.classSvc.ResolvePath(ctx, doc.DocumentTypeID)
	if err != nil {
		return err
	}
	if !s.resolver.CanSeeCategory(caller, path.Category.ID) {
		return fmt.Errorf("%w: документ %d", ErrForbidden, doc.ID)
	}
	return nil
}

// putBlobWithRetry записывает блоб с ограниченным числом повторов.
func (s *DocumentService) putBlobWithRetry(ctx context.Context, objectKey string, blob []byte, contentType string) error {
	var lastErr error
	for attempt := 1; attempt <= blobPutAttempts; attempt++ {
		err := s.store.Put(ctx, objectKey, bytes.NewReader(blob), int64(len(blob)), contentType)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("Запись блоба не удалась",
			slog.String("object_key", objectKey),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt < blobPutAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
			case <-time.After(blobPutBackoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("%w: запись блоба: %v", ErrUpstream, lastErr)
}

// buildSearchText собирает плоский индексируемый текст документа.
func buildSearchText(originalName string, metadataJSON *string, extracted string) string {
	parts := []string{originalName}
	if metadataJSON != nil && *metadataJSON != "" {
		parts = append(parts, *metadataJSON)
	}
	if extracted != "" {
		parts = append(parts, extracted)
	}
	return strings.Join(parts, " ")
}

// newObjectKey строит ключ блоба: детерминированный префикс по типу
// документа + случайный токен. Оригинальное имя сохраняется в хвосте
// ключа, небезопасные символы заменяются.
func newObjectKey(documentTypeID int64, originalName string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, originalName)
	return fmt.Sprintf("dt%d/%s_%s", documentTypeID, uuid.New().String(), safe)
}

// callerID возвращает указатель на id вызывающего (nil для системных операций).
func callerID(caller access.Identity) *int64 {
	if caller.UserID == 0 {
		return nil
	}
	id := caller.UserID
	return &id
}
