package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/redis"
)

// TextCache caches extracted text so a norm's PDF is never fetched or
// decoded twice across runs. Cache failures degrade to a miss: the
// pipeline never fails because Redis is down.
type TextCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewTextCache(client *redis.Client, ttl time.Duration) *TextCache {
	return &TextCache{
		client: client,
		ttl:    ttl,
		logger: logger.WithComponent("pdftext-cache"),
	}
}

func key(idNorma int64) string {
	return fmt.Sprintf("pdftext:%d", idNorma)
}

// Get returns the cached text for a norm, if present.
func (c *TextCache) Get(ctx context.Context, idNorma int64) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	text, err := c.client.Get(ctx, key(idNorma))
	if err != nil {
		if !redis.IsNilError(err) {
			c.logger.Warn("cache read failed", "id_norma", idNorma, "error", err)
		}
		return "", false
	}
	return text, true
}

// Put stores the extracted text for a norm.
func (c *TextCache) Put(ctx context.Context, idNorma int64, text string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key(idNorma), text, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "id_norma", idNorma, "error", err)
	}
}
