package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct{ name string }

func TestGetOrComputeReturnsSamePointer(t *testing.T) {
	c := New[*result]()
	calls := 0
	compute := func() (*result, error) {
		calls++
		return &result{name: "v2.6.13"}, nil
	}

	first, err := c.GetOrCompute("linux\x00abc", compute)
	require.NoError(t, err)
	second, err := c.GetOrCompute("linux\x00abc", compute)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), c.Misses())
	assert.Equal(t, int64(1), c.Hits())
	assert.Equal(t, 1, c.Len())
}

func TestGetOrComputeDoesNotStoreErrors(t *testing.T) {
	c := New[*result]()
	boom := errors.New("boom")

	_, err := c.GetOrCompute("k", func() (*result, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCompute("k", func() (*result, error) { return &result{name: "ok"}, nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v.name)
}

func TestGetOrComputeStoresNil(t *testing.T) {
	c := New[*result]()
	calls := 0
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("none", func() (*result, error) {
			calls++
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeConcurrentCallersShareOneComputation(t *testing.T) {
	c := New[*result]()
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 16
	results := make([]*result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("shared", func() (*result, error) {
				calls.Add(1)
				<-release
				return &result{name: "shared"}, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "linux\x00abc", Key("linux", "abc"))
	assert.NotEqual(t, Key("a", "bc"), Key("ab", "c"))
}
