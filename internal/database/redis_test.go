package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invitebot/entity"
	"invitebot/lib/clock"
)

func newTestDB(t *testing.T) (*RedisDB, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &RedisDB{
		client:    client,
		retention: 30 * 24 * time.Hour,
		now:       time.Now,
	}, mr
}

func TestUserRoundTrip(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	user, err := db.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, user, "unknown user is not an error")

	registered := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertUser(ctx, &entity.User{
		ID:           42,
		Username:     "alice",
		FirstName:    "Alice",
		IsAdmin:      true,
		RegisteredAt: registered,
	}))

	user, err = db.GetUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsAdmin)
	assert.True(t, user.RegisteredAt.Equal(registered))
}

func TestCaptchaLifecycle(t *testing.T) {
	db, mr := newTestDB(t)
	ctx := context.Background()

	answer, err := db.GetCaptcha(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, answer, "no pending challenge reads as empty")

	require.NoError(t, db.SaveCaptcha(ctx, 42, "AbC4", 300*time.Second))
	answer, err = db.GetCaptcha(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "AbC4", answer)

	require.NoError(t, db.DeleteCaptcha(ctx, 42))
	answer, err = db.GetCaptcha(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, answer)

	// The challenge evaporates when its TTL runs out.
	require.NoError(t, db.SaveCaptcha(ctx, 42, "XyZ9", 300*time.Second))
	mr.FastForward(301 * time.Second)
	answer, err = db.GetCaptcha(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestInviteHistoryOrder(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	history, err := db.InviteHistory(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, history)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	expires := base.Add(7 * 24 * time.Hour)
	first := entity.InviteRecord{Code: "AAA", RequestedAt: base, ExpiresAt: &expires}
	second := entity.InviteRecord{Code: "BBB", RequestedAt: base.Add(time.Hour), AdminGenerated: true}

	require.NoError(t, db.AppendInvite(ctx, 42, &first))
	require.NoError(t, db.AppendInvite(ctx, 42, &second))

	history, err = db.InviteHistory(ctx, 42)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "AAA", history[0].Code, "append order is preserved")
	require.NotNil(t, history[0].ExpiresAt)
	assert.True(t, history[0].ExpiresAt.Equal(expires))
	assert.Equal(t, "BBB", history[1].Code)
	assert.Nil(t, history[1].ExpiresAt)
	assert.True(t, history[1].AdminGenerated)
}

func TestRecordIssuance(t *testing.T) {
	db, mr := newTestDB(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	require.NoError(t, db.RecordIssuance(ctx, 42, false))
	require.NoError(t, db.RecordIssuance(ctx, 42, false))
	require.NoError(t, db.RecordIssuance(ctx, 7, true))

	stats, err := db.Stats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	day := stats[0]
	assert.Equal(t, clock.Day(now), day.Date)
	assert.Equal(t, 3, day.Total)
	assert.Equal(t, 1, day.Admin)
	assert.Equal(t, 2, day.User)
	assert.Equal(t, day.Total, day.Admin+day.User)
	assert.Equal(t, map[int64]int{42: 2, 7: 1}, day.Users)

	// Buckets carry the retention TTL.
	ttl := mr.TTL(prefixStats + clock.Day(now))
	assert.Equal(t, 30*24*time.Hour, ttl)
}

func TestStatsZeroFill(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	require.NoError(t, db.RecordIssuance(ctx, 42, false))

	// Issue again "yesterday" by shifting the clock back.
	db.now = func() time.Time { return now.Add(-24 * time.Hour) }
	require.NoError(t, db.RecordIssuance(ctx, 42, true))
	db.now = func() time.Time { return now }

	stats, err := db.Stats(ctx, 3)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, clock.Day(now), stats[0].Date)
	assert.Equal(t, 1, stats[0].Total)
	assert.Equal(t, 1, stats[1].Total)
	assert.Equal(t, 1, stats[1].Admin)

	// The empty day is present and zero-valued.
	assert.Equal(t, clock.Day(now.Add(-48*time.Hour)), stats[2].Date)
	assert.Equal(t, 0, stats[2].Total)
	assert.Empty(t, stats[2].Users)
}
