// Package cache provides a read-through Redis cache for workflow
// definitions. Workflows are read on every PR initialization but change
// rarely, so a short TTL removes most of the hot-path reads.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/procurio/be-pr-approvals/internal/model"
)

// WorkflowCache caches workflow definitions (rules included) in Redis.
// A nil *WorkflowCache is valid and disables caching; all cache failures
// are logged and treated as misses, never surfaced to callers.
type WorkflowCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewWorkflowCache creates a cache backed by the given Redis client.
func NewWorkflowCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *WorkflowCache {
	return &WorkflowCache{rdb: rdb, ttl: ttl, log: log}
}

func workflowKey(id string) string { return "workflow:" + id }

// Get returns the cached workflow, or nil on a miss.
func (c *WorkflowCache) Get(ctx context.Context, id string) *model.Workflow {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, workflowKey(id)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.log.Warn().Err(err).Str("workflow_id", id).Msg("workflow cache read failed")
		return nil
	}
	wf := &model.Workflow{}
	if err := json.Unmarshal(data, wf); err != nil {
		c.log.Warn().Err(err).Str("workflow_id", id).Msg("workflow cache entry corrupt; dropping")
		c.Invalidate(ctx, id)
		return nil
	}
	return wf
}

// Set stores a workflow with the configured TTL.
func (c *WorkflowCache) Set(ctx context.Context, wf *model.Workflow) {
	if c == nil || c.rdb == nil || wf == nil {
		return
	}
	data, err := json.Marshal(wf)
	if err != nil {
		c.log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("workflow cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, workflowKey(wf.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("workflow cache write failed")
	}
}

// Invalidate drops a workflow from the cache. Called after a rule append.
func (c *WorkflowCache) Invalidate(ctx context.Context, id string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, workflowKey(id)).Err(); err != nil {
		c.log.Warn().Err(err).Str("workflow_id", id).Msg("workflow cache invalidation failed")
	}
}
