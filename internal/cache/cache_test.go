package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"geo-gateway/internal/cache"
)

func TestGetMissingKey(t *testing.T) {
	c := cache.New[string]("t_missing", 10, time.Minute)
	_, ok := c.Get("nope")
	require.False(t, ok)
}

func TestSetGetWithinTTL(t *testing.T) {
	c := cache.New[string]("t_within", 10, time.Minute)
	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)
}

func TestExpiryDeletesLazily(t *testing.T) {
	c := cache.New[int]("t_expiry", 10, time.Minute)
	c.SetTTL("k", 42, 30*time.Millisecond)
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, got)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok)
	// 过期读取的副作用是删除
	require.Equal(t, 0, c.Len())
}

func TestEvictsOldestInsertedFirst(t *testing.T) {
	c := cache.New[string]("t_evict", 2, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Set("c", "C")

	_, ok := c.Get("a")
	require.False(t, ok)
	vb, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, "B", vb)
	vc, ok := c.Get("c")
	require.True(t, ok)
	require.Equal(t, "C", vc)
}

func TestReadDoesNotTouchEvictionOrder(t *testing.T) {
	// 非 LRU：读取 a 不改变它作为最老条目的顺位
	c := cache.New[string]("t_notouch", 2, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	_, _ = c.Get("a")
	c.Set("c", "C")

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestUpdateExistingKeepsPosition(t *testing.T) {
	c := cache.New[string]("t_update", 2, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Set("a", "A2")
	c.Set("c", "C")

	// a 原位更新后仍是最老条目，插入 c 时被淘汰
	_, ok := c.Get("a")
	require.False(t, ok)
	vb, _ := c.Get("b")
	require.Equal(t, "B", vb)
}

func TestClear(t *testing.T) {
	c := cache.New[string]("t_clear", 10, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok)
}
