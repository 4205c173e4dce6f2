package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientDegradesGracefully(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "enrollment:stats:all", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "enrollment:stats:all", map[string]int{"total": 1}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "enrollment:stats:all"))
	require.NoError(t, repo.DeleteByPattern(ctx, "enrollment:stats:*"))
	require.NoError(t, repo.Close())
}

func TestRateLimitRepositoryWithoutClientNeverLimits(t *testing.T) {
	count, ttl, err := NewRateLimitRepository(nil).Hit(context.Background(), "user:u1", time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, time.Hour, ttl)
}
