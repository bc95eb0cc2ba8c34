package plans

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const draftCacheKeyPrefix = "plans:draft:"

// CachedDraft is a drafted plan kept for repeat prompts.
type CachedDraft struct {
	Plan      string    `json:"plan"`
	Provider  string    `json:"provider,omitempty"`
	DraftedAt time.Time `json:"draftedAt"`
}

// DraftCache stores drafted plans in Redis keyed by a hash of the prompt and settings.
type DraftCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftCache creates a cache. A nil client or non-positive ttl disables it.
func NewDraftCache(client *redis.Client, ttl time.Duration) *DraftCache {
	return &DraftCache{client: client, ttl: ttl}
}

// Enabled reports whether the cache will read and write.
func (c *DraftCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Key hashes everything that changes the model's answer.
func (c *DraftCache) Key(req LLMRequest) string {
	h := sha256.New()
	payload, _ := json.Marshal(req)
	h.Write(payload)
	return draftCacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached draft for req, or nil when there is none.
func (c *DraftCache) Get(ctx context.Context, req LLMRequest) (*CachedDraft, error) {
	if !c.Enabled() {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.Key(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("plans: cache get: %w", err)
	}
	var draft CachedDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("plans: cache unmarshal: %w", err)
	}
	return &draft, nil
}

// Set stores draft for req until the ttl passes.
func (c *DraftCache) Set(ctx context.Context, req LLMRequest, draft CachedDraft) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("plans: cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("plans: cache set: %w", err)
	}
	return nil
}
