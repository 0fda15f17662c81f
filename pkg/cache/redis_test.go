package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-timetable-api/pkg/config"
)

func TestOptionsAppliesTimeouts(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache", Port: 6380, DB: 2, PoolSize: 20, DialTimeout: time.Second, OpTimeout: 300 * time.Millisecond})

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 300*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 300*time.Millisecond, opts.WriteTimeout)
}

func TestOptionsLeavesLibraryDefaults(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "localhost", Port: 6379})

	assert.Zero(t, opts.PoolSize)
	assert.Zero(t, opts.DialTimeout)
}
