package routecache

import (
	"container/list"

	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

// fifo is a bounded map that evicts the oldest inserted key first.
// Reads do not refresh an entry's position. Not safe for concurrent use.
type fifo struct {
	capacity int
	order    *list.List // Front = oldest insertion
	items    map[string]*list.Element
}

type fifoEntry struct {
	key    string
	coords []models.LatLng
	// derived marks coordinates built from stops rather than route geometry
	derived bool
}

func newFIFO(capacity int) *fifo {
	return &fifo{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (f *fifo) get(key string) ([]models.LatLng, bool) {
	el, ok := f.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*fifoEntry).coords, true
}

// put inserts or replaces key. Replacing keeps the original insertion slot.
// Returns the evicted key, if any.
func (f *fifo) put(key string, coords []models.LatLng, derived bool) (string, bool) {
	if el, ok := f.items[key]; ok {
		e := el.Value.(*fifoEntry)
		e.coords = coords
		e.derived = derived
		return "", false
	}

	var evicted string
	var didEvict bool
	if f.order.Len() >= f.capacity {
		oldest := f.order.Front()
		if oldest != nil {
			evicted = oldest.Value.(*fifoEntry).key
			f.order.Remove(oldest)
			delete(f.items, evicted)
			didEvict = true
		}
	}

	f.items[key] = f.order.PushBack(&fifoEntry{key: key, coords: coords, derived: derived})
	return evicted, didEvict
}

// dropDerived removes every entry built from stop coordinates or left empty
// and returns how many were removed.
func (f *fifo) dropDerived() int {
	var n int
	for el := f.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*fifoEntry)
		if e.derived || len(e.coords) == 0 {
			f.order.Remove(el)
			delete(f.items, e.key)
			n++
		}
		el = next
	}
	return n
}

func (f *fifo) len() int {
	return f.order.Len()
}

// keys returns keys from oldest to newest insertion
func (f *fifo) keys() []string {
	out := make([]string, 0, f.order.Len())
	for el := f.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*fifoEntry).key)
	}
	return out
}
