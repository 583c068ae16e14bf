package cache

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/logger"
)

// CachedUsageSummary represents a cached per-feature usage snapshot for the
// subscription info read model.
type CachedUsageSummary struct {
	Quota      int64     // Per-cycle credit quota
	UsedAmount int64     // Credits burned in the current cycle
	CycleStart time.Time // Current cycle window start
	CycleEnd   time.Time // Current cycle window end
	NotFound   bool      // Null marker: user confirmed not provisioned in DB
}

// UsageSummaryCache defines the interface for usage summary caching
type UsageSummaryCache interface {
	GetSummary(ctx context.Context, userID uint, feature vo.FeatureKey) (*CachedUsageSummary, error)
	SetSummary(ctx context.Context, userID uint, feature vo.FeatureKey, summary *CachedUsageSummary) error
	InvalidateSummary(ctx context.Context, userID uint, feature vo.FeatureKey) error
	InvalidateUser(ctx context.Context, userID uint) error
	// SetNullMarker caches a short-lived marker indicating the user has no
	// provisioned access, preventing repeated DB lookups (cache penetration
	// protection).
	SetNullMarker(ctx context.Context, userID uint, feature vo.FeatureKey) error
}

const (
	summaryKeyPrefix = "metering:summary:"
	baseSummaryTTL   = 10 * time.Minute
	summaryTTLJitter = 5 * time.Minute // TTL range: 10-15 min (anti-stampede)
	nullMarkerTTL    = 2 * time.Minute // Short TTL for not-found markers (anti-penetration)
	fieldQuota       = "quota"
	fieldUsedAmount  = "used_amount"
	fieldCycleStart  = "cycle_start"
	fieldCycleEnd    = "cycle_end"
	fieldNullMarker  = "_null"
)

// RedisUsageSummaryCache implements UsageSummaryCache using Redis Hash
type RedisUsageSummaryCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisUsageSummaryCache creates a new Redis-based usage summary cache
func NewRedisUsageSummaryCache(client *redis.Client, logger logger.Interface) *RedisUsageSummaryCache {
	return &RedisUsageSummaryCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisUsageSummaryCache) key(userID uint, feature vo.FeatureKey) string {
	return fmt.Sprintf("%s%d:%s", summaryKeyPrefix, userID, feature)
}

// GetSummary retrieves a usage summary from cache
func (c *RedisUsageSummaryCache) GetSummary(ctx context.Context, userID uint, feature vo.FeatureKey) (*CachedUsageSummary, error) {
	key := c.key(userID, feature)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get usage summary from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil // Cache miss
	}

	// Detect null marker (anti-penetration)
	if result[fieldNullMarker] == "1" {
		return &CachedUsageSummary{NotFound: true}, nil
	}

	summary := &CachedUsageSummary{}

	if quotaStr, ok := result[fieldQuota]; ok {
		summary.Quota, _ = strconv.ParseInt(quotaStr, 10, 64)
	}

	if usedStr, ok := result[fieldUsedAmount]; ok {
		summary.UsedAmount, _ = strconv.ParseInt(usedStr, 10, 64)
	}

	if startStr, ok := result[fieldCycleStart]; ok {
		startUnix, _ := strconv.ParseInt(startStr, 10, 64)
		summary.CycleStart = time.Unix(startUnix, 0).UTC()
	}

	if endStr, ok := result[fieldCycleEnd]; ok {
		endUnix, _ := strconv.ParseInt(endStr, 10, 64)
		summary.CycleEnd = time.Unix(endUnix, 0).UTC()
	}

	return summary, nil
}

// SetSummary stores a usage summary in cache
func (c *RedisUsageSummaryCache) SetSummary(ctx context.Context, userID uint, feature vo.FeatureKey, summary *CachedUsageSummary) error {
	key := c.key(userID, feature)

	fields := map[string]interface{}{
		fieldQuota:      summary.Quota,
		fieldUsedAmount: summary.UsedAmount,
		fieldCycleStart: summary.CycleStart.Unix(),
		fieldCycleEnd:   summary.CycleEnd.Unix(),
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, summaryTTLWithJitter())

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set usage summary in cache: %w", err)
	}

	c.logger.Debugw("usage summary cached",
		"user_id", userID,
		"feature_key", feature,
		"used_amount", summary.UsedAmount,
	)

	return nil
}

// InvalidateSummary removes one feature's summary from cache
func (c *RedisUsageSummaryCache) InvalidateSummary(ctx context.Context, userID uint, feature vo.FeatureKey) error {
	key := c.key(userID, feature)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate usage summary cache: %w", err)
	}

	c.logger.Debugw("usage summary cache invalidated",
		"user_id", userID,
		"feature_key", feature,
	)

	return nil
}

// InvalidateUser removes every feature summary of a user, used after plan
// changes and anniversary resets.
func (c *RedisUsageSummaryCache) InvalidateUser(ctx context.Context, userID uint) error {
	keys := make([]string, 0, len(vo.AllFeatureKeys()))
	for _, feature := range vo.AllFeatureKeys() {
		keys = append(keys, c.key(userID, feature))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user summary cache: %w", err)
	}

	c.logger.Debugw("user usage summaries invalidated", "user_id", userID)

	return nil
}

// SetNullMarker stores a short-lived marker indicating that the user has no
// provisioned access. This prevents cache penetration from repeated lookups
// of unknown users.
func (c *RedisUsageSummaryCache) SetNullMarker(ctx context.Context, userID uint, feature vo.FeatureKey) error {
	key := c.key(userID, feature)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fieldNullMarker, "1")
	pipe.Expire(ctx, key, nullMarkerTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set null marker in cache: %w", err)
	}

	c.logger.Debugw("usage summary null marker set",
		"user_id", userID,
		"feature_key", feature,
		"ttl", nullMarkerTTL,
	)

	return nil
}

// summaryTTLWithJitter returns a randomized TTL to prevent cache stampede.
// Range: [baseSummaryTTL, baseSummaryTTL + summaryTTLJitter) i.e. 10-15 minutes.
func summaryTTLWithJitter() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(summaryTTLJitter)))
	return baseSummaryTTL + jitter
}
