package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/coverage-service/internal/domain"
)

const (
	historyKeyPrefix = "escalation:history:"
	versionKeyPrefix = "escalation:history-version:"
	versionKeyTTL    = 24 * time.Hour
)

// HistoryCache stores rendered history lists per escalation.
//
// Readers take a Version before querying the database and hand it back to
// Set; Set stores nothing when an Invalidate happened in between, so a list
// read before a write can never outlive that write.
type HistoryCache interface {
	Get(ctx context.Context, escalationID string) ([]domain.EscalationHistoryEntry, bool, error)
	Version(ctx context.Context, escalationID string) (int64, error)
	Set(ctx context.Context, escalationID string, version int64, entries []domain.EscalationHistoryEntry) (bool, error)
	Invalidate(ctx context.Context, escalationID string) error
}

type redisHistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHistoryCache returns a Redis backed cache. A nil client or a
// non-positive ttl yields a cache that never hits.
func NewRedisHistoryCache(client *redis.Client, ttl time.Duration) HistoryCache {
	if client == nil || ttl <= 0 {
		return noopHistoryCache{}
	}
	return &redisHistoryCache{client: client, ttl: ttl}
}

type cachedEntry struct {
	ID           string    `json:"id"`
	EscalationID string    `json:"escalation_id"`
	UserID       string    `json:"user_id"`
	OldStatus    *string   `json:"old_status,omitempty"`
	NewStatus    string    `json:"new_status"`
	Notes        *string   `json:"notes,omitempty"`
	ChangedAt    time.Time `json:"changed_at"`
}

func (c *redisHistoryCache) Get(ctx context.Context, escalationID string) ([]domain.EscalationHistoryEntry, bool, error) {
	raw, err := c.client.Get(ctx, historyKeyPrefix+escalationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cached []cachedEntry
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, err
	}
	entries := make([]domain.EscalationHistoryEntry, 0, len(cached))
	for _, ce := range cached {
		entry := domain.EscalationHistoryEntry{
			ID:           ce.ID,
			EscalationID: ce.EscalationID,
			UserID:       ce.UserID,
			NewStatus:    domain.AppStatus(ce.NewStatus),
			Notes:        ce.Notes,
			ChangedAt:    ce.ChangedAt,
		}
		if ce.OldStatus != nil {
			old := domain.AppStatus(*ce.OldStatus)
			entry.OldStatus = &old
		}
		entries = append(entries, entry)
	}
	return entries, true, nil
}

func (c *redisHistoryCache) Version(ctx context.Context, escalationID string) (int64, error) {
	version, err := c.client.Get(ctx, versionKeyPrefix+escalationID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// Set writes entries only if the version is still the one the caller read.
func (c *redisHistoryCache) Set(ctx context.Context, escalationID string, version int64, entries []domain.EscalationHistoryEntry) (bool, error) {
	cached := make([]cachedEntry, 0, len(entries))
	for _, entry := range entries {
		ce := cachedEntry{
			ID:           entry.ID,
			EscalationID: entry.EscalationID,
			UserID:       entry.UserID,
			NewStatus:    string(entry.NewStatus),
			Notes:        entry.Notes,
			ChangedAt:    entry.ChangedAt,
		}
		if entry.OldStatus != nil {
			old := string(*entry.OldStatus)
			ce.OldStatus = &old
		}
		cached = append(cached, ce)
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return false, err
	}

	versionKey := versionKeyPrefix + escalationID
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, historyKeyPrefix+escalationID, payload, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, versionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate drops the cached list and bumps the version so in-flight
// readers discard what they loaded.
func (c *redisHistoryCache) Invalidate(ctx context.Context, escalationID string) error {
	versionKey := versionKeyPrefix + escalationID
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey)
		p.Expire(ctx, versionKey, c.ttl+versionKeyTTL)
		p.Del(ctx, historyKeyPrefix+escalationID)
		return nil
	})
	return err
}

type noopHistoryCache struct{}

func (noopHistoryCache) Get(context.Context, string) ([]domain.EscalationHistoryEntry, bool, error) {
	return nil, false, nil
}

func (noopHistoryCache) Version(context.Context, string) (int64, error) {
	return 0, nil
}

func (noopHistoryCache) Set(context.Context, string, int64, []domain.EscalationHistoryEntry) (bool, error) {
	return false, nil
}

func (noopHistoryCache) Invalidate(context.Context, string) error {
	return nil
}
