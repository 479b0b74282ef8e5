package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("k", 42, 0)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("short", "v", 20*time.Millisecond)
	_, ok := c.Get("short")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok)
	// lazy expiry removed the entry on read
	assert.Equal(t, 0, c.Len())
}

func TestZeroDefaultMeansNoExpiry(t *testing.T) {
	c := New(0, 0)
	defer c.Close()

	c.Set("forever", 1, 0)
	time.Sleep(10 * time.Millisecond)
	_, ok := c.Get("forever")
	assert.True(t, ok)
}

func TestDeletePattern(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("directories:drivers:list:true", 1, 0)
	c.Set("directories:drivers:list:false", 2, 0)
	c.Set("directories:vehicles:list:true", 3, 0)

	c.DeletePattern("directories:drivers:*")

	_, ok := c.Get("directories:drivers:list:true")
	assert.False(t, ok)
	_, ok = c.Get("directories:drivers:list:false")
	assert.False(t, ok)
	_, ok = c.Get("directories:vehicles:list:true")
	assert.True(t, ok)
}

func TestGetOrSet(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	calls := 0
	factory := func() (interface{}, error) {
		calls++
		return "computed", nil
	}

	v, err := c.GetOrSet("k", 0, factory)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)

	v, err = c.GetOrSet("k", 0, factory)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetErrorNotCached(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	boom := errors.New("boom")
	_, err := c.GetOrSet("k", 0, func() (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestClear(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestSweepRemovesExpired(t *testing.T) {
	c := New(time.Minute, 10*time.Millisecond)
	defer c.Close()

	c.Set("short", 1, 15*time.Millisecond)
	c.Set("long", 2, time.Minute)

	time.Sleep(50 * time.Millisecond)
	// sweep dropped the expired entry without any read touching it
	assert.Equal(t, 1, c.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	c.Close()
	c.Close()
}
