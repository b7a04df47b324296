package orderedmap

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/errors"
)

func TestPutAndGet(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, m.KeySet())
	assert.Equal(t, 3, m.Len())

	v, err := m.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	m.Put("a", 10)
	assert.Equal(t, []string{"a", "b", "c"}, m.KeySet(), "re-put keeps position")
	v, _ = m.Get("a")
	assert.Equal(t, 10, v)
}

func TestGetMissing(t *testing.T) {
	m := New[string, int]()
	_, err := m.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeKeyNotFound))
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{name: "front", index: 0, want: []string{"x", "a", "b", "c"}},
		{name: "middle", index: 2, want: []string{"a", "b", "x", "c"}},
		{name: "end", index: 3, want: []string{"a", "b", "c", "x"}},
		{name: "past end clamps", index: 99, want: []string{"a", "b", "c", "x"}},
		{name: "negative clamps", index: -1, want: []string{"x", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New[string, int]()
			m.Put("a", 1)
			m.Put("b", 2)
			m.Put("c", 3)
			m.Insert("x", 0, tt.index)
			assert.Equal(t, tt.want, m.KeySet())
		})
	}
}

func TestInsertExistingMoves(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	m.Insert("c", 30, 0)
	assert.Equal(t, []string{"c", "a", "b"}, m.KeySet())
	v, _ := m.Get("c")
	assert.Equal(t, 30, v)
}

func TestRemove(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)

	v, err := m.Remove("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, m.ContainsKey("a"))
	assert.Equal(t, []string{"b"}, m.KeySet())

	_, err = m.Remove("a")
	assert.True(t, errors.Is(err, errors.ErrCodeKeyNotFound))
}

func TestKeySetIsSnapshot(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	keys := m.KeySet()
	keys[0] = "mutated"
	assert.Equal(t, []string{"a"}, m.KeySet())
}

func TestEachAndValues(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)

	var visited []string
	m.Each(func(k string, v int) {
		visited = append(visited, k)
	})
	assert.Equal(t, []string{"a", "b"}, visited)
	assert.Equal(t, []int{1, 2}, m.Values())
}

func TestIndexMap(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, m.IndexMap())
	assert.Equal(t, 1, m.IndexOf("b"))
	assert.Equal(t, -1, m.IndexOf("z"))
}

func TestUpdateOrder(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	changed, err := m.UpdateOrder([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = m.UpdateOrder([]string{"a", "c", "b"})
	require.NoError(t, err)
	assert.True(t, changed, "permutation must be detected")
	assert.Equal(t, []string{"a", "c", "b"}, m.KeySet())
}

func TestUpdateOrderRejectsMembershipChange(t *testing.T) {
	tests := []struct {
		name  string
		order []string
	}{
		{name: "missing key", order: []string{"a", "b"}},
		{name: "unknown key", order: []string{"a", "b", "z"}},
		{name: "duplicate key", order: []string{"a", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New[string, int]()
			m.Put("a", 1)
			m.Put("b", 2)
			m.Put("c", 3)

			_, err := m.UpdateOrder(tt.order)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidOrder))
			assert.Equal(t, []string{"a", "b", "c"}, m.KeySet())
		})
	}
}

func TestOrderChanged(t *testing.T) {
	assert.True(t, OrderChanged([]string{"a", "b", "c"}, []string{"a", "c", "b"}))
	assert.False(t, OrderChanged([]string{"a", "b", "c"}, []string{"a", "b", "c"}))
	assert.True(t, OrderChanged([]string{"a", "b"}, []string{"a", "b", "c"}))
	assert.False(t, OrderChanged[string](nil, []string{}))
}

func TestClear(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.KeySet())
	assert.False(t, m.ContainsKey("a"))
}

// TestRandomOperationsKeepKeysUnique drives random put/insert/remove/updateOrder
// sequences against a reference set.
func TestRandomOperationsKeepKeysUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	keys := []string{"a", "b", "c", "d", "e", "f"}

	for run := 0; run < 200; run++ {
		m := New[string, int]()
		present := map[string]bool{}

		for step := 0; step < 40; step++ {
			k := keys[rng.Intn(len(keys))]
			switch rng.Intn(4) {
			case 0:
				m.Put(k, step)
				present[k] = true
			case 1:
				m.Insert(k, step, rng.Intn(m.Len()+1))
				present[k] = true
			case 2:
				_, err := m.Remove(k)
				assert.Equal(t, present[k], err == nil)
				delete(present, k)
			case 3:
				order := m.KeySet()
				rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
				before := m.KeySet()
				changed, err := m.UpdateOrder(order)
				require.NoError(t, err)
				assert.Equal(t, OrderChanged(before, order), changed)
			}

			got := m.KeySet()
			assert.Len(t, got, len(present))
			seen := map[string]bool{}
			for _, key := range got {
				assert.False(t, seen[key], "duplicate key %s", key)
				seen[key] = true
				assert.True(t, present[key])
			}
			sorted := slices.Clone(got)
			slices.Sort(sorted)
			assert.Equal(t, len(slices.Compact(sorted)), len(got))
		}
	}
}
