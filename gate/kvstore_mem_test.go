package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemKVStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemKVStore(100, time.Minute)

	ok, err := kv.Exists(ctx, "ip_block:1.2.3.4")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(kv.SetWithTTL(ctx, "ip_block:1.2.3.4", "1", 30*time.Millisecond))

	ok, err = kv.Exists(ctx, "ip_block:1.2.3.4")
	assert.NoError(err)
	assert.True(ok)

	time.Sleep(60 * time.Millisecond)

	ok, err = kv.Exists(ctx, "ip_block:1.2.3.4")
	assert.NoError(err)
	assert.False(ok)
}
