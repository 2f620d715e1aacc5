// minio предоставляет реализацию storage.RawArchive на базе MinIO/S3.
// minio.go — конструктор клиента: нормализует endpoint,
// настраивает Secure/creds и проверяет наличие целевого бакета.
// archive.go — запись сырых ответов API.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-marketplace-monitor/internal/config"
	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
)

// Archive — адаптер MinIO для архива сырых ответов.
type Archive struct {
	client *mclient.Client
	bucket string
	now    func() time.Time
	newID  func() string
}

// New создает и инициализирует клиент MinIO.
// Убирает схему из endpoint, подбирает Secure по схеме
// и выполняет fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	const op = "storage/minio/New"

	endpoint := cfg.Endpoint
	secure := cfg.UseSSL || strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.RawArchive = (*Archive)(nil)
