package core

import "sync"

// treeLocks serializes mutating operations per item tree. Operations lock the
// tree of the item's topmost ancestor, so two cascades on overlapping
// subtrees never interleave their writes, while disjoint trees proceed
// independently. There is no global lock.
type treeLocks struct {
	mu    sync.Mutex
	locks map[int]*treeLock
}

type treeLock struct {
	sync.Mutex
	refs int
}

func (t *treeLocks) lock(rootID int) {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[int]*treeLock)
	}
	l, ok := t.locks[rootID]
	if !ok {
		l = &treeLock{}
		t.locks[rootID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.Lock()
}

func (t *treeLocks) unlock(rootID int) {
	t.mu.Lock()
	l := t.locks[rootID]
	l.refs--
	if l.refs == 0 {
		delete(t.locks, rootID)
	}
	t.mu.Unlock()

	l.Unlock()
}

// LockTree acquires the mutation scope of the tree containing item and
// returns the release func. The scope must be held until every write of the
// operation has committed or the operation has been abandoned.
func (c *CoreDB) LockTree(item *Item) func() {
	var rootID = item.Root().ID()
	c.trees.lock(rootID)
	return func() {
		c.trees.unlock(rootID)
	}
}
