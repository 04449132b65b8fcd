package depot

import (
	"iter"
	"unsafe"
)

// Cursor is a pull-style iteration over a QueryState. The world stays locked
// from the first Next until Next returns false or Reset is called; always
// Reset a cursor that is abandoned early.
type Cursor struct {
	state   *QueryState
	world   *World
	mutable bool
	filter  *compositeState
	terms   []termCursor
	slots   []int16 // by ComponentID; -1 when not fetched

	// Current iteration state
	storageIndex int
	entities     []Entity
	rows         []int // nil when walking a table
	entityIndex  int
	remaining    int
	row          int
	entity       Entity

	initialized bool
}

func newCursor(state *QueryState, w *World, mutable bool) *Cursor {
	c := &Cursor{
		state:   state,
		world:   w,
		mutable: mutable,
		filter:  bindAll(w, state.filters),
		terms:   state.newTermCursors(mutable),
	}
	for i, term := range state.terms {
		for len(c.slots) <= int(term.ID) {
			c.slots = append(c.slots, -1)
		}
		c.slots[term.ID] = int16(i)
	}
	return c
}

// Next advances to the next matching entity.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	for {
		for c.entityIndex < c.remaining {
			idx := c.entityIndex
			c.entityIndex++
			e := c.entities[idx]
			row := idx
			if c.rows != nil {
				row = c.rows[idx]
			}
			if c.state.rowFiltered && !c.filter.matchesRow(row, e) {
				continue
			}
			c.row, c.entity = row, e
			return true
		}
		if !c.advance() {
			c.Reset()
			return false
		}
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.state.begin(c.world, c.mutable)
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.initialized = true
}

// advance moves to the next non-empty table or archetype.
func (c *Cursor) advance() bool {
	s, w := c.state, c.world
	if s.dense {
		for c.storageIndex < len(s.matchedTableIDs) {
			t := w.tables.get(s.matchedTableIDs[c.storageIndex])
			c.storageIndex++
			if t.IsEmpty() {
				continue
			}
			for i := range c.terms {
				c.terms[i].setTable(t)
			}
			if s.rowFiltered {
				c.filter.setTable(w, t)
			}
			c.entities, c.rows = t.entities, nil
			c.entityIndex, c.remaining = 0, len(t.entities)
			return true
		}
		return false
	}
	for c.storageIndex < len(s.matchedArchetypeIDs) {
		a := w.archetypes.get(s.matchedArchetypeIDs[c.storageIndex])
		c.storageIndex++
		if a.IsEmpty() {
			continue
		}
		t := w.tables.get(a.tableID)
		for i := range c.terms {
			c.terms[i].setArchetype(w, a, t)
		}
		if s.rowFiltered {
			c.filter.setArchetype(w, a, t)
		}
		c.entities, c.rows = a.entities, a.tableRows
		c.entityIndex, c.remaining = 0, len(a.entities)
		return true
	}
	return false
}

// Reset abandons the iteration and unlocks the world.
func (c *Cursor) Reset() {
	if c.initialized {
		c.state.end(c.world, c.mutable)
	}
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.entities, c.rows = nil, nil
	c.initialized = false
}

// Entities iterates the remaining matches, yielding a running index and the
// entity. Breaking out of the loop resets the cursor.
func (c *Cursor) Entities() iter.Seq2[int, Entity] {
	return func(yield func(int, Entity) bool) {
		i := 0
		for c.Next() {
			if !yield(i, c.entity) {
				c.Reset()
				return
			}
			i++
		}
	}
}

// Entity returns the entity the cursor is positioned on.
func (c *Cursor) Entity() Entity { return c.entity }

func (c *Cursor) RemainingInStorage() int {
	return c.remaining - c.entityIndex
}

// TotalMatched counts every entity the query matches, independent of the
// cursor position.
func (c *Cursor) TotalMatched() int {
	if c.initialized {
		total := 0
		c.state.forEachRow(c.world, nil, c.state.getFilter, func(int, Entity) bool {
			total++
			return true
		})
		return total
	}
	return c.state.Count(c.world)
}

// fetch returns the current value of id, or nil when the archetype lacks an
// optional term. It panics when id is not part of the query.
func (c *Cursor) fetch(id ComponentID) unsafe.Pointer {
	slot := c.slot(id)
	if slot < 0 {
		panic("depot: component is not fetched by this query")
	}
	return c.terms[slot].fetch(c.row, c.entity)
}

func (c *Cursor) slot(id ComponentID) int {
	if int(id) >= len(c.slots) {
		return -1
	}
	return int(c.slots[id])
}

// has reports whether the current entity has the fetched component id.
func (c *Cursor) has(id ComponentID) bool {
	slot := c.slot(id)
	if slot < 0 {
		return false
	}
	tc := &c.terms[slot]
	if tc.column != nil {
		return true
	}
	return tc.sparse != nil && tc.sparse.Contains(c.entity)
}
