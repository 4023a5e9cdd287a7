// File: threadlocal/backend.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Live-node tracking strategies. Which one a build uses is fixed by build tags
// (see backend_native.go and backend_tracked.go); both guarantee that every
// object is cleaned exactly once, either on thread exit or on Destroy.

package threadlocal

import "github.com/momentics/hioload-sync/internal/concurrency"

type backend interface {
	name() string
	// attach registers a node created for the calling thread.
	attach(n *node)
	// detach unregisters a node on thread exit. It returns false when Destroy
	// has already claimed the node.
	detach(n *node) bool
	// release frees the thread key and returns the nodes Destroy must clean.
	release(key *concurrency.ThreadKey) []*node
}

// nativeBackend leans on the thread key itself: freeing the key runs the
// destructor for every live value, so no bookkeeping is needed.
type nativeBackend struct{}

func (nativeBackend) name() string      { return "native" }
func (nativeBackend) attach(*node)      {}
func (nativeBackend) detach(*node) bool { return true }
func (nativeBackend) release(key *concurrency.ThreadKey) []*node {
	key.Free()
	return nil
}

// trackedBackend keeps an intrusive list of live nodes because deleting the
// key discards values without running destructors.
type trackedBackend struct {
	lock concurrency.Spinlock
	head *node
}

func (b *trackedBackend) name() string { return "tracked" }

func (b *trackedBackend) attach(n *node) {
	b.lock.Lock()
	n.prev = nil
	n.next = b.head
	if b.head != nil {
		b.head.prev = n
	}
	b.head = n
	n.linked = true
	b.lock.Unlock()
}

func (b *trackedBackend) detach(n *node) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !n.linked {
		return false
	}
	b.unlinkLocked(n)
	return true
}

func (b *trackedBackend) release(key *concurrency.ThreadKey) []*node {
	key.Delete()
	var nodes []*node
	b.lock.Lock()
	for b.head != nil {
		n := b.head
		b.unlinkLocked(n)
		nodes = append(nodes, n)
	}
	b.lock.Unlock()
	return nodes
}

func (b *trackedBackend) unlinkLocked(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		b.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
	n.linked = false
}
