// cache.go — LRU-кэш панелей с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cw_panel_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш панелей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cw_panel_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша панелей.",
	})
)

// PanelCache — LRU-кэш панелей по ID с автоматическим TTL.
// Хранит копии: вызывающий код может менять полученную панель.
// Инвалидируется при любом изменении панели (в том числе при валидации проверки).
type PanelCache struct {
	cache *expirable.LRU[string, model.Panel]
}

// NewPanelCache создаёт кэш с указанным максимальным размером и TTL.
func NewPanelCache(maxSize int, ttl time.Duration) *PanelCache {
	return &PanelCache{cache: expirable.NewLRU[string, model.Panel](maxSize, nil, ttl)}
}

// Get возвращает копию панели при hit или (nil, false) при miss.
func (c *PanelCache) Get(id string) (*model.Panel, bool) {
	val, ok := c.cache.Get(id)
	if !ok {
		cacheMissesTotal.Inc()
		return nil, false
	}
	cacheHitsTotal.Inc()
	return &val, true
}

// Set добавляет или обновляет запись.
func (c *PanelCache) Set(p *model.Panel) {
	c.cache.Add(p.ID, *p)
}

// Delete удаляет запись (инвалидация).
func (c *PanelCache) Delete(id string) {
	c.cache.Remove(id)
}

// Len возвращает количество записей в кэше.
func (c *PanelCache) Len() int {
	return c.cache.Len()
}
