// Package database implements the bot's persistent state on Redis: user
// profiles, pending captcha answers (TTL), per-user invite history
// (append-only lists) and daily issuance counters (hashes with a retention
// TTL). Key construction and TTL policy live here; callers see only typed
// operations.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"invitebot/entity"
	"invitebot/internal/config"
	"invitebot/lib/clock"
)

const (
	prefixUser    = "user:"
	prefixCaptcha = "captcha:"
	prefixInvites = "invite_code:"
	prefixStats   = "stats:"
)

const connectTimeout = 5 * time.Second

type RedisDB struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRedisClient(conf *config.Config) (*RedisDB, error) {
	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = conf.Redis.PoolSize
	opts.MinIdleConns = conf.Redis.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisDB{
		client:    client,
		retention: time.Duration(conf.App.StatsRetentionDays) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

func (d *RedisDB) Close() error {
	return d.client.Close()
}

func (d *RedisDB) Health(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// UpsertUser overwrites the stored profile for user.ID. The admin flag is
// computed by the caller from the allow-list before the write.
func (d *RedisDB) UpsertUser(ctx context.Context, user *entity.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %d: %w", user.ID, err)
	}
	if err = d.client.Set(ctx, prefixUser+formatID(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save user %d: %w", user.ID, err)
	}
	return nil
}

// GetUser returns nil without error when the user is unknown.
func (d *RedisDB) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	data, err := d.client.Get(ctx, prefixUser+formatID(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	var user entity.User
	if err = json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}
	return &user, nil
}

// SaveCaptcha stores the expected answer with a TTL, replacing any pending
// challenge for the same user.
func (d *RedisDB) SaveCaptcha(ctx context.Context, id int64, answer string, ttl time.Duration) error {
	if err := d.client.Set(ctx, prefixCaptcha+formatID(id), answer, ttl).Err(); err != nil {
		return fmt.Errorf("save captcha for %d: %w", id, err)
	}
	return nil
}

// GetCaptcha returns the pending answer, or "" when none is active
// (never issued, consumed, or expired).
func (d *RedisDB) GetCaptcha(ctx context.Context, id int64) (string, error) {
	answer, err := d.client.Get(ctx, prefixCaptcha+formatID(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load captcha for %d: %w", id, err)
	}
	return answer, nil
}

func (d *RedisDB) DeleteCaptcha(ctx context.Context, id int64) error {
	if err := d.client.Del(ctx, prefixCaptcha+formatID(id)).Err(); err != nil {
		return fmt.Errorf("delete captcha for %d: %w", id, err)
	}
	return nil
}

// AppendInvite appends one record to the user's history. RPUSH is atomic on
// the server, so concurrent appends cannot lose records.
func (d *RedisDB) AppendInvite(ctx context.Context, id int64, record *entity.InviteRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal invite record: %w", err)
	}
	if err = d.client.RPush(ctx, prefixInvites+formatID(id), data).Err(); err != nil {
		return fmt.Errorf("append invite for %d: %w", id, err)
	}
	return nil
}

// InviteHistory returns the user's records oldest first.
func (d *RedisDB) InviteHistory(ctx context.Context, id int64) ([]entity.InviteRecord, error) {
	items, err := d.client.LRange(ctx, prefixInvites+formatID(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load invite history for %d: %w", id, err)
	}
	history := make([]entity.InviteRecord, 0, len(items))
	for _, item := range items {
		var record entity.InviteRecord
		if err = json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("decode invite record for %d: %w", id, err)
		}
		history = append(history, record)
	}
	return history, nil
}

// RecordIssuance bumps today's counters in one transaction and refreshes the
// bucket's retention TTL. Hash increments keep total == admin + user without
// a read-modify-write cycle.
func (d *RedisDB) RecordIssuance(ctx context.Context, id int64, adminGenerated bool) error {
	key := prefixStats + clock.Day(d.now())
	field := "user"
	if adminGenerated {
		field = "admin"
	}

	pipe := d.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "total", 1)
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.HIncrBy(ctx, key, "u:"+formatID(id), 1)
	pipe.Expire(ctx, key, d.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record issuance for %d: %w", id, err)
	}
	return nil
}

// Stats returns one bucket per day for the trailing window, most recent day
// first. Days without activity come back zero-valued so callers can always
// iterate a fixed-length window.
func (d *RedisDB) Stats(ctx context.Context, days int) ([]entity.DailyStats, error) {
	stats := make([]entity.DailyStats, 0, days)
	for _, day := range clock.LastDays(d.now(), days) {
		fields, err := d.client.HGetAll(ctx, prefixStats+day).Result()
		if err != nil {
			return nil, fmt.Errorf("load stats for %s: %w", day, err)
		}
		stats = append(stats, decodeStats(day, fields))
	}
	return stats, nil
}

func decodeStats(day string, fields map[string]string) entity.DailyStats {
	stats := entity.DailyStats{Date: day, Users: map[int64]int{}}
	for field, value := range fields {
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch {
		case field == "total":
			stats.Total = n
		case field == "admin":
			stats.Admin = n
		case field == "user":
			stats.User = n
		case strings.HasPrefix(field, "u:"):
			id, err := strconv.ParseInt(strings.TrimPrefix(field, "u:"), 10, 64)
			if err == nil {
				stats.Users[id] = n
			}
		}
	}
	return stats
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
