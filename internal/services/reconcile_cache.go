package services

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ReconcileCache remembers recently reconciled vendor ids so webhook redeliveries can be
// answered without touching the database. The persisted markers stay authoritative; a miss
// here only means the database is consulted.
type ReconcileCache struct {
	lru *expirable.LRU[string, struct{}]
}

func NewReconcileCache(size int, ttl time.Duration) *ReconcileCache {
	if size <= 0 {
		size = 4096
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ReconcileCache{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (c *ReconcileCache) MarkTranscode(jobID string) { c.mark("transcode:" + jobID) }

func (c *ReconcileCache) SeenTranscode(jobID string) bool { return c.seen("transcode:" + jobID) }

func (c *ReconcileCache) MarkCaptionOrder(orderID string) { c.mark("caption:" + orderID) }

func (c *ReconcileCache) SeenCaptionOrder(orderID string) bool { return c.seen("caption:" + orderID) }

// Forget drops a transcode id, e.g. when an admin restarts the pipeline.
func (c *ReconcileCache) Forget(jobID string) {
	if c == nil || jobID == "" {
		return
	}
	c.lru.Remove("transcode:" + jobID)
}

func (c *ReconcileCache) mark(key string) {
	if c == nil || len(key) == 0 || key[len(key)-1] == ':' {
		return
	}
	c.lru.Add(key, struct{}{})
}

func (c *ReconcileCache) seen(key string) bool {
	if c == nil || key[len(key)-1] == ':' {
		return false
	}
	_, ok := c.lru.Get(key)
	return ok
}
