package options

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	testCases := []struct {
		name     string
		base     map[string]any
		override map[string]any
		expected map[string]any
	}{
		{
			name:     "both nil",
			expected: nil,
		},
		{
			name:     "scalar overwrite",
			base:     map[string]any{"a": 1.0, "b": "x"},
			override: map[string]any{"a": 2.0},
			expected: map[string]any{"a": 2.0, "b": "x"},
		},
		{
			name:     "nested objects merge key by key",
			base:     map[string]any{"env": map[string]any{"A": "1", "B": "2"}},
			override: map[string]any{"env": map[string]any{"B": "3", "C": "4"}},
			expected: map[string]any{"env": map[string]any{"A": "1", "B": "3", "C": "4"}},
		},
		{
			name:     "arrays replace",
			base:     map[string]any{"args": []any{"--a", "--b"}},
			override: map[string]any{"args": []any{"--c"}},
			expected: map[string]any{"args": []any{"--c"}},
		},
		{
			name:     "object replaced by scalar",
			base:     map[string]any{"x": map[string]any{"y": 1.0}},
			override: map[string]any{"x": "flat"},
			expected: map[string]any{"x": "flat"},
		},
		{
			name:     "nil base",
			override: map[string]any{"a": true},
			expected: map[string]any{"a": true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.base, tc.override)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_DoesNotAlias(t *testing.T) {
	base := map[string]any{"env": map[string]any{"A": "1"}}
	override := map[string]any{"list": []any{"x"}}

	merged := Merge(base, override)
	merged["env"].(map[string]any)["A"] = "changed"
	merged["list"].([]any)[0] = "changed"

	assert.Equal(t, "1", base["env"].(map[string]any)["A"])
	assert.Equal(t, "x", override["list"].([]any)[0])
}

// TestMerge_RightBiased checks on random bags that every key of the override
// ends up with the override's value unless both sides are objects, and that
// base keys absent from the override survive unchanged.
func TestMerge_RightBiased(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		base := randomBag(rng, 3)
		override := randomBag(rng, 3)
		merged := Merge(base, override)
		checkRightBiased(t, base, override, merged, fmt.Sprintf("iteration %d", i))
	}
}

func checkRightBiased(t *testing.T, base, override, merged map[string]any, where string) {
	t.Helper()
	for k, ov := range override {
		bv := base[k]
		bObj, bIsObj := bv.(map[string]any)
		oObj, oIsObj := ov.(map[string]any)
		if bIsObj && oIsObj {
			mObj, ok := merged[k].(map[string]any)
			require.True(t, ok, "%s: key %q should stay an object", where, k)
			checkRightBiased(t, bObj, oObj, mObj, where+"."+k)
			continue
		}
		require.True(t, cmp.Equal(ov, merged[k]), "%s: key %q should take the override value", where, k)
	}
	for k, bv := range base {
		if _, ok := override[k]; ok {
			continue
		}
		require.True(t, cmp.Equal(bv, merged[k]), "%s: key %q should keep the base value", where, k)
	}
}

func randomBag(rng *rand.Rand, depth int) map[string]any {
	keys := []string{"a", "b", "c", "d"}
	bag := make(map[string]any)
	for _, k := range keys {
		switch rng.Intn(5) {
		case 0:
			continue
		case 1:
			bag[k] = float64(rng.Intn(10))
		case 2:
			bag[k] = []any{fmt.Sprint(rng.Intn(3))}
		case 3:
			if depth > 0 {
				bag[k] = randomBag(rng, depth-1)
			} else {
				bag[k] = true
			}
		default:
			bag[k] = fmt.Sprintf("s%d", rng.Intn(3))
		}
	}
	return bag
}

func TestLookup(t *testing.T) {
	bag := map[string]any{"server": map[string]any{"port": 8080.0}, "name": "x"}

	v, ok := Lookup(bag, "server.port")
	require.True(t, ok)
	assert.Equal(t, 8080.0, v)

	_, ok = Lookup(bag, "server.host")
	assert.False(t, ok)
	_, ok = Lookup(bag, "name.inner")
	assert.False(t, ok)
	_, ok = Lookup(bag, "")
	assert.False(t, ok)
}

func TestMergeAll(t *testing.T) {
	got := MergeAll(
		map[string]any{"a": 1.0},
		nil,
		map[string]any{"b": 2.0},
		map[string]any{"a": 3.0},
	)
	assert.Equal(t, map[string]any{"a": 3.0, "b": 2.0}, got)
}

func TestMerge_KeepsLoaderNumberTypes(t *testing.T) {
	base := map[string]any{"retries": 2, "ratio": 0.5}
	override := map[string]any{"nested": map[string]any{"port": 8080}}

	merged := Merge(base, override)

	assert.IsType(t, 0, merged["retries"])
	assert.IsType(t, 0.0, merged["ratio"])
	port, ok := Lookup(merged, "nested.port")
	require.True(t, ok)
	assert.Equal(t, 8080, port)
}
