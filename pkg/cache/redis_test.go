package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-market-api/pkg/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache", Port: 6380, DB: 2, PoolSize: 20, DialTimeout: 2 * time.Second})

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, "course-market-api", opts.ClientName)
}

func TestOptionsDefaultsDialTimeout(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "localhost", Port: 6379})

	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}
