package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	permanent := InviteRecord{Code: "P", AdminGenerated: true}
	assert.False(t, permanent.Expired(now), "codes without expiry never expire")

	expiry := now.Add(time.Hour)
	live := InviteRecord{Code: "L", ExpiresAt: &expiry}
	assert.False(t, live.Expired(now))
	assert.False(t, live.Expired(expiry), "a code is valid through its expiry instant")
	assert.True(t, live.Expired(expiry.Add(time.Second)))
}
