package depot

import "unsafe"

// ComponentSparseSet stores one component's values densely, addressed by
// entity index through a sparse lookup array. Insertion and removal are O(1)
// and do not move the entity between tables.
type ComponentSparseSet struct {
	dense    *Column
	entities []Entity
	sparse   []int32 // by entity index; -1 when absent
}

func newComponentSparseSet(info *ComponentInfo, capacity int) *ComponentSparseSet {
	return &ComponentSparseSet{
		dense:    newColumn(info, capacity),
		entities: make([]Entity, 0, capacity),
	}
}

func (s *ComponentSparseSet) Len() int           { return len(s.entities) }
func (s *ComponentSparseSet) Entities() []Entity { return s.entities }

func (s *ComponentSparseSet) denseIndex(e Entity) (int, bool) {
	if int(e.index) >= len(s.sparse) {
		return 0, false
	}
	idx := s.sparse[e.index]
	if idx < 0 || s.entities[idx] != e {
		return 0, false
	}
	return int(idx), true
}

func (s *ComponentSparseSet) Contains(e Entity) bool {
	_, ok := s.denseIndex(e)
	return ok
}

// insert stores a copy of src for e, replacing (and dropping) any existing value.
func (s *ComponentSparseSet) insert(e Entity, src unsafe.Pointer) {
	if idx, ok := s.denseIndex(e); ok {
		s.dense.replace(idx, src)
		return
	}
	for len(s.sparse) <= int(e.index) {
		s.sparse = append(s.sparse, -1)
	}
	s.sparse[e.index] = int32(s.dense.push(src, FlagAdded))
	s.entities = append(s.entities, e)
}

// Get returns the address of e's value or nil.
func (s *ComponentSparseSet) Get(e Entity) unsafe.Pointer {
	idx, ok := s.denseIndex(e)
	if !ok {
		return nil
	}
	return s.dense.Get(idx)
}

func (s *ComponentSparseSet) getWithFlags(e Entity) (unsafe.Pointer, *ComponentFlags) {
	idx, ok := s.denseIndex(e)
	if !ok {
		return nil, nil
	}
	return s.dense.Get(idx), &s.dense.flags[idx]
}

// fetch returns e's value, flagging it mutated when write is set.
func (s *ComponentSparseSet) fetch(e Entity, write bool) unsafe.Pointer {
	idx, ok := s.denseIndex(e)
	if !ok {
		return nil
	}
	if write {
		s.dense.flags[idx] |= FlagMutated
	}
	return s.dense.Get(idx)
}

func (s *ComponentSparseSet) flags(e Entity) (ComponentFlags, bool) {
	idx, ok := s.denseIndex(e)
	if !ok {
		return 0, false
	}
	return s.dense.flags[idx], true
}

func (s *ComponentSparseSet) unlink(e Entity, idx int) {
	last := len(s.entities) - 1
	if idx != last {
		moved := s.entities[last]
		s.entities[idx] = moved
		s.sparse[moved.index] = int32(idx)
	}
	s.entities = s.entities[:last]
	s.sparse[e.index] = -1
}

// removeAndForget detaches e's value without dropping it. The pointer is
// valid until releaseScratch.
func (s *ComponentSparseSet) removeAndForget(e Entity) (unsafe.Pointer, bool) {
	idx, ok := s.denseIndex(e)
	if !ok {
		return nil, false
	}
	p, _ := s.dense.swapRemoveAndForget(idx)
	s.unlink(e, idx)
	return p, true
}

func (s *ComponentSparseSet) releaseScratch() {
	s.dense.releaseScratch()
}

// remove drops e's value.
func (s *ComponentSparseSet) remove(e Entity) bool {
	idx, ok := s.denseIndex(e)
	if !ok {
		return false
	}
	s.dense.swapRemove(idx)
	s.unlink(e, idx)
	return true
}

func (s *ComponentSparseSet) clear() {
	s.dense.clear()
	for _, e := range s.entities {
		s.sparse[e.index] = -1
	}
	s.entities = s.entities[:0]
}

func (s *ComponentSparseSet) clearFlags() {
	s.dense.clearFlags()
}

// SparseSets holds the sparse set of every sparse-stored component.
type SparseSets struct {
	sets     []*ComponentSparseSet // by ComponentID
	capacity int
}

// Get returns the set of id, or nil when none was created yet.
func (ss *SparseSets) Get(id ComponentID) *ComponentSparseSet {
	if int(id) >= len(ss.sets) {
		return nil
	}
	return ss.sets[id]
}

func (ss *SparseSets) getOrInsert(info *ComponentInfo) *ComponentSparseSet {
	for len(ss.sets) <= int(info.id) {
		ss.sets = append(ss.sets, nil)
	}
	if s := ss.sets[info.id]; s != nil {
		return s
	}
	s := newComponentSparseSet(info, ss.capacity)
	ss.sets[info.id] = s
	return s
}

func (ss *SparseSets) clear() {
	for _, s := range ss.sets {
		if s != nil {
			s.clear()
		}
	}
}

func (ss *SparseSets) clearFlags() {
	for _, s := range ss.sets {
		if s != nil {
			s.clearFlags()
		}
	}
}
