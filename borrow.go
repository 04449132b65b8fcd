package depot

import "fmt"

// borrowTracker counts the live iterations touching each component so that
// aliasing mutable access panics instead of corrupting values.
type borrowTracker struct {
	enabled bool
	readers []int32 // by ComponentID
	writers []bool  // by ComponentID
}

func (b *borrowTracker) grow(id ComponentID) {
	for len(b.readers) <= int(id) {
		b.readers = append(b.readers, 0)
		b.writers = append(b.writers, false)
	}
}

// acquire registers access or panics when it conflicts with a live borrow.
// mutable selects whether declared writes are taken as writes.
func (b *borrowTracker) acquire(access *Access[ComponentID], mutable bool, components *Components) {
	if !b.enabled {
		return
	}
	reads := access.Reads()
	for _, id := range reads {
		b.grow(id)
		write := mutable && access.HasWrite(id)
		if b.writers[id] || (write && b.readers[id] > 0) {
			panic(fmt.Sprintf("depot: conflicting access to component %s by a live query", components.name(id)))
		}
	}
	for _, id := range reads {
		if mutable && access.HasWrite(id) {
			b.writers[id] = true
		} else {
			b.readers[id]++
		}
	}
}

func (b *borrowTracker) release(access *Access[ComponentID], mutable bool) {
	if !b.enabled {
		return
	}
	for _, id := range access.Reads() {
		if mutable && access.HasWrite(id) {
			b.writers[id] = false
		} else {
			b.readers[id]--
		}
	}
}
