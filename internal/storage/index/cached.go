package index

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_index_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_index_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей.",
	})
)

// Cached — индекс с LRU-кэшем записей по ID и автоматическим TTL.
// Insert и Update проходят в нижележащий индекс и обновляют кэш
// (write-through). FindByName и ListAll не кэшируются: проверка
// уникальности имени всегда идёт в источник.
type Cached struct {
	next  Index
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewCached оборачивает next кэшем размера maxSize с временем жизни ttl.
func NewCached(next Index, maxSize int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl),
	}
}

// Insert вставляет запись и кладёт её в кэш.
func (c *Cached) Insert(ctx context.Context, rec *model.FileRecord) (string, error) {
	id, err := c.next.Insert(ctx, rec)
	if err != nil {
		return "", err
	}

	stored := rec.Clone()
	stored.ID = id
	c.cache.Add(id, stored)
	return id, nil
}

// FindByID сначала ищет в кэше.
func (c *Cached) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if rec, ok := c.cache.Get(id); ok {
		cacheHitsTotal.Inc()
		return rec.Clone(), nil
	}
	cacheMissesTotal.Inc()

	rec, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, rec.Clone())
	return rec, nil
}

func (c *Cached) FindByName(ctx context.Context, name string) ([]*model.FileRecord, error) {
	return c.next.FindByName(ctx, name)
}

func (c *Cached) ListAll(ctx context.Context) ([]*model.FileRecord, error) {
	return c.next.ListAll(ctx)
}

// Update обновляет запись. При ошибке запись удаляется из кэша,
// следующее чтение пойдёт в источник.
func (c *Cached) Update(ctx context.Context, rec *model.FileRecord) error {
	if err := c.next.Update(ctx, rec); err != nil {
		c.cache.Remove(rec.ID)
		return err
	}
	c.cache.Add(rec.ID, rec.Clone())
	return nil
}

func (c *Cached) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}
