package coord

import (
	"sync"

	"github.com/signalnine/tuneloop/internal/record"
)

// DirtyTracker remembers parameter vectors already handed out as work but not
// yet reported. It lives only in process memory.
type DirtyTracker struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{set: make(map[string]struct{})}
}

func (d *DirtyTracker) Has(params []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.set[record.Key(params)]
	return ok
}

func (d *DirtyTracker) Mark(params []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set[record.Key(params)] = struct{}{}
}

// Reset forgets every claimed vector. Single entries are never removed.
func (d *DirtyTracker) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set = make(map[string]struct{})
}

func (d *DirtyTracker) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.set)
}
