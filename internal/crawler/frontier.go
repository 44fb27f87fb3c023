package crawler

import "sync"

// queueItem is one frontier entry.
type queueItem struct {
	url   string
	depth int
}

// frontier is the FIFO work queue shared by the workers of a concurrent
// run. pending counts items queued plus items being processed; the run is
// complete when it drops to zero.
type frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []queueItem
	pending int
	closed  bool
}

func newFrontier() *frontier {
	f := &frontier{items: make([]queueItem, 0)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push appends items. It must be called before done for the item whose
// processing produced them.
func (f *frontier) push(items ...queueItem) {
	if len(items) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.items = append(f.items, items...)
	f.pending += len(items)
	f.cond.Broadcast()
}

// pop blocks until an item is available. It returns false when the
// frontier is closed or all work is done.
func (f *frontier) pop() (queueItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.items) == 0 && f.pending > 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed || len(f.items) == 0 {
		return queueItem{}, false
	}

	item := f.items[0]
	f.items = f.items[1:]
	return item, true
}

// done marks one popped item as fully processed.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending--
	if f.pending <= 0 {
		f.cond.Broadcast()
	}
}

// close wakes all waiters and makes pop return false.
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}
