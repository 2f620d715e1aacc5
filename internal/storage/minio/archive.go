package minio

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	mclient "github.com/minio/minio-go/v7"
)

// Put кладёт тело ответа в бакет под ключом raw/<дата>/<запрос>/p<страница>-<uuid>.json.
func (a *Archive) Put(ctx context.Context, query string, page int, body []byte) (string, error) {
	const op = "storage/minio/Put"

	key := objectKey(a.now(), a.newID(), query, page)

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)),
		mclient.PutObjectOptions{
			ContentType:  "application/json",
			UserMetadata: map[string]string{"query": query},
		})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return key, nil
}

// objectKey строит ключ объекта; запрос нормализуется в безопасный сегмент пути.
func objectKey(now time.Time, id, query string, page int) string {
	return fmt.Sprintf("raw/%s/%s/p%d-%s.json", now.UTC().Format("2006-01-02"), pathSegment(query), page, id)
}

func pathSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
