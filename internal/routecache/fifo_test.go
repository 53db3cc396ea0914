package routecache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

func TestFIFO_EvictsOldestInsertion(t *testing.T) {
	f := newFIFO(3)
	for i := 0; i < 3; i++ {
		_, evicted := f.put(fmt.Sprintf("k%d", i), []models.LatLng{{float64(i), 1}}, false)
		assert.False(t, evicted)
	}

	// Reading k0 must not protect it from eviction
	_, ok := f.get("k0")
	assert.True(t, ok)

	key, evicted := f.put("k3", nil, false)
	assert.True(t, evicted)
	assert.Equal(t, "k0", key)
	assert.Equal(t, []string{"k1", "k2", "k3"}, f.keys())
	assert.Equal(t, 3, f.len())
}

func TestFIFO_ReplaceKeepsSlot(t *testing.T) {
	f := newFIFO(2)
	f.put("a", []models.LatLng{{1, 1}}, false)
	f.put("b", []models.LatLng{{2, 2}}, false)

	_, evicted := f.put("a", []models.LatLng{{3, 3}}, false)
	assert.False(t, evicted)
	assert.Equal(t, []string{"a", "b"}, f.keys())

	coords, _ := f.get("a")
	assert.Equal(t, []models.LatLng{{3, 3}}, coords)

	key, evicted := f.put("c", nil, false)
	assert.True(t, evicted)
	assert.Equal(t, "a", key)
}

func TestFIFO_NeverExceedsCapacity(t *testing.T) {
	f := newFIFO(100)
	for i := 0; i < 250; i++ {
		f.put(fmt.Sprintf("L%d-G", i), nil, false)
		assert.LessOrEqual(t, f.len(), 100)
	}
	keys := f.keys()
	assert.Equal(t, "L150-G", keys[0])
	assert.Equal(t, "L249-G", keys[len(keys)-1])
}

func TestFIFO_DropDerived(t *testing.T) {
	f := newFIFO(5)
	f.put("geom", []models.LatLng{{1, 1}, {2, 2}}, false)
	f.put("stops", []models.LatLng{{3, 3}}, true)
	f.put("empty", []models.LatLng{}, false)
	f.put("geom2", []models.LatLng{{4, 4}}, false)

	assert.Equal(t, 2, f.dropDerived())
	assert.Equal(t, []string{"geom", "geom2"}, f.keys())

	_, ok := f.get("stops")
	assert.False(t, ok)
	assert.Equal(t, 0, f.dropDerived())
}
