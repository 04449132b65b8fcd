package depot

import (
	"fmt"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	"github.com/bits-and-blooms/bitset"
)

// FetchMode declares how a query term accesses its component.
type FetchMode uint8

const (
	// Read fetches a component the entity must have, without flagging it.
	Read FetchMode = iota
	// Write fetches a component the entity must have and flags it mutated
	// when iterated mutably.
	Write
	// Opt fetches a component if present, yielding nil otherwise.
	Opt
	// OptMut is Opt with write access.
	OptMut
)

func (m FetchMode) optional() bool { return m == Opt || m == OptMut }
func (m FetchMode) writes() bool   { return m == Write || m == OptMut }

func (m FetchMode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	case Opt:
		return "opt"
	case OptMut:
		return "opt_mut"
	}
	return fmt.Sprintf("FetchMode(%d)", uint8(m))
}

// FetchTerm is one fetched component of a type-erased query.
type FetchTerm struct {
	ID   ComponentID
	Mode FetchMode
}

type queryConfig struct {
	modes   []FetchMode
	filters []Filter
}

type modesOption []FetchMode

func (m modesOption) applyQuery(cfg *queryConfig) { cfg.modes = m }

// Modes sets the fetch mode of each type parameter of a typed query, in order.
// Unset modes default to Read.
func Modes(modes ...FetchMode) QueryOption { return modesOption(modes) }

// QueryState caches which tables and archetypes a query matches. It is
// updated incrementally: only archetypes created since the last update are
// tested. A QueryState belongs to the world it was built for.
type QueryState struct {
	worldID uint64
	terms   []FetchTerm
	storage []StorageType
	filters []Filter
	// bound filter states: one for iteration, one for single-entity lookups
	filter    *compositeState
	getFilter *compositeState
	iterating int

	required    mask.Mask
	dense       bool
	rowFiltered bool
	writes      bool

	archetypeGeneration ArchetypeGeneration
	matchedTables       bitset.BitSet
	matchedArchetypes   bitset.BitSet
	matchedTableIDs     []TableID
	matchedArchetypeIDs []ArchetypeID

	componentAccess          Access[ComponentID]
	archetypeComponentAccess Access[ArchetypeComponentID]
}

// NewQueryState builds a type-erased query over terms. Fetching a component
// twice where either term writes it panics.
func NewQueryState(w *World, terms []FetchTerm, opts ...QueryOption) *QueryState {
	var cfg queryConfig
	for _, opt := range opts {
		opt.applyQuery(&cfg)
	}
	return newQueryState(w, terms, cfg.filters)
}

func newQueryState(w *World, terms []FetchTerm, filters []Filter) *QueryState {
	s := &QueryState{
		worldID: w.id,
		terms:   append([]FetchTerm(nil), terms...),
		storage: make([]StorageType, len(terms)),
		filters: filters,
		dense:   true,
	}
	for i, term := range terms {
		info := w.components.Info(term.ID)
		if info == nil {
			panic(fmt.Sprintf("depot: query fetches unknown component id %d", term.ID))
		}
		for _, prev := range terms[:i] {
			if prev.ID == term.ID && (prev.Mode.writes() || term.Mode.writes()) {
				panic(fmt.Sprintf("depot: query fetches component %s more than once with write access", info.name))
			}
		}
		s.storage[i] = info.storage
		if info.storage != StorageTable {
			s.dense = false
		}
		if !term.Mode.optional() {
			s.required.Mark(uint32(term.ID))
		}
		if term.Mode.writes() {
			s.componentAccess.AddWrite(term.ID)
			s.writes = true
		} else {
			s.componentAccess.AddRead(term.ID)
		}
	}
	s.filter = bindAll(w, filters)
	s.getFilter = bindAll(w, filters)
	s.filter.updateAccess(&s.componentAccess)
	s.dense = s.dense && s.filter.dense()
	s.rowFiltered = s.filter.rowLevel()
	s.UpdateArchetypes(w)
	return s
}

func (s *QueryState) validateWorld(w *World) {
	if w.id != s.worldID {
		panic(fmt.Sprintf("depot: query built for world %d used with world %d", s.worldID, w.id))
	}
}

// UpdateArchetypes tests archetypes created since the last update.
func (s *QueryState) UpdateArchetypes(w *World) {
	s.validateWorld(w)
	gen := w.archetypes.Generation()
	for id := s.archetypeGeneration; id < gen; id++ {
		s.newArchetype(w.archetypes.get(ArchetypeID(id)))
	}
	s.archetypeGeneration = gen
}

func (s *QueryState) matches(a *Archetype) bool {
	return a.mask.ContainsAll(s.required) && s.filter.matchesArchetype(a)
}

func (s *QueryState) newArchetype(a *Archetype) {
	if !s.matches(a) {
		return
	}
	for _, term := range s.terms {
		acid, ok := a.ArchetypeComponentID(term.ID)
		if !ok {
			continue
		}
		if term.Mode.writes() {
			s.archetypeComponentAccess.AddWrite(acid)
		} else {
			s.archetypeComponentAccess.AddRead(acid)
		}
	}
	s.filter.updateArchetypeAccess(a, &s.archetypeComponentAccess)
	s.matchedArchetypes.Set(uint(a.id))
	s.matchedArchetypeIDs = append(s.matchedArchetypeIDs, a.id)
	if !s.matchedTables.Test(uint(a.tableID)) {
		s.matchedTables.Set(uint(a.tableID))
		s.matchedTableIDs = append(s.matchedTableIDs, a.tableID)
	}
}

func (s *QueryState) ArchetypeGeneration() ArchetypeGeneration { return s.archetypeGeneration }
func (s *QueryState) MatchedTables() []TableID                 { return s.matchedTableIDs }
func (s *QueryState) MatchedArchetypes() []ArchetypeID         { return s.matchedArchetypeIDs }
func (s *QueryState) MatchesArchetype(id ArchetypeID) bool     { return s.matchedArchetypes.Test(uint(id)) }
func (s *QueryState) MatchesTable(id TableID) bool             { return s.matchedTables.Test(uint(id)) }
func (s *QueryState) Terms() []FetchTerm                       { return s.terms }

// IsDense reports whether iteration walks tables rather than archetypes.
func (s *QueryState) IsDense() bool { return s.dense }

// ComponentAccess is the declared access of the query at component granularity.
func (s *QueryState) ComponentAccess() *Access[ComponentID] { return &s.componentAccess }

// ArchetypeComponentAccess is the declared access restricted to the
// archetypes matched so far.
func (s *QueryState) ArchetypeComponentAccess() *Access[ArchetypeComponentID] {
	return &s.archetypeComponentAccess
}

// IsCompatible reports whether two queries may iterate at the same time.
func (s *QueryState) IsCompatible(other *QueryState) bool {
	return s.componentAccess.IsCompatible(&other.componentAccess)
}

func (s *QueryState) begin(w *World, mutable bool) {
	s.UpdateArchetypes(w)
	w.borrows.acquire(&s.componentAccess, mutable, w.components)
	w.locks++
}

func (s *QueryState) end(w *World, mutable bool) {
	w.locks--
	w.borrows.release(&s.componentAccess, mutable)
}

func (s *QueryState) assertReadOnly(op string) {
	if s.writes {
		panic(fmt.Sprintf("depot: %s on a query that declares write access; use the Mut variant", op))
	}
}

// termCursor resolves one fetch term against the current table or archetype.
type termCursor struct {
	id      ComponentID
	storage StorageType
	write   bool
	column  *Column
	sparse  *ComponentSparseSet
}

func (s *QueryState) newTermCursors(mutable bool) []termCursor {
	tcs := make([]termCursor, len(s.terms))
	s.initTermCursors(tcs, mutable)
	return tcs
}

func (s *QueryState) initTermCursors(tcs []termCursor, mutable bool) {
	for i, term := range s.terms {
		tcs[i] = termCursor{id: term.ID, storage: s.storage[i], write: mutable && term.Mode.writes()}
	}
}

func (tc *termCursor) setTable(t *Table) {
	tc.column = t.Column(tc.id)
	tc.sparse = nil
}

func (tc *termCursor) setArchetype(w *World, a *Archetype, t *Table) {
	tc.column, tc.sparse = nil, nil
	if !a.Contains(tc.id) {
		return
	}
	if tc.storage == StorageTable {
		tc.column = t.Column(tc.id)
	} else {
		tc.sparse = w.sparseSets.Get(tc.id)
	}
}

// fetch returns the term's value for the entity at row, or nil for an
// absent optional component.
func (tc *termCursor) fetch(row int, e Entity) unsafe.Pointer {
	if tc.column != nil {
		if tc.write {
			tc.column.flags[row] |= FlagMutated
		}
		return tc.column.Get(row)
	}
	if tc.sparse != nil {
		return tc.sparse.fetch(e, tc.write)
	}
	return nil
}

// iterate locks w and calls fn with the table row and entity of every match
// until fn returns false.
func (s *QueryState) iterate(w *World, mutable bool, tcs []termCursor, fn func(row int, e Entity) bool) {
	s.begin(w, mutable)
	filter := s.filter
	if s.iterating > 0 && s.rowFiltered {
		// nested iteration of the same query needs its own row filter state
		filter = bindAll(w, s.filters)
	}
	s.iterating++
	defer func() {
		s.iterating--
		s.end(w, mutable)
	}()
	s.forEachRow(w, tcs, filter, fn)
}

func (s *QueryState) forEachRow(w *World, tcs []termCursor, filter *compositeState, fn func(row int, e Entity) bool) {
	if s.dense {
		for _, tid := range s.matchedTableIDs {
			t := w.tables.get(tid)
			n := t.Len()
			if n == 0 {
				continue
			}
			for i := range tcs {
				tcs[i].setTable(t)
			}
			entities := t.entities
			if s.rowFiltered {
				filter.setTable(w, t)
				for row := 0; row < n; row++ {
					if e := entities[row]; filter.matchesRow(row, e) && !fn(row, e) {
						return
					}
				}
				continue
			}
			for row := 0; row < n; row++ {
				if !fn(row, entities[row]) {
					return
				}
			}
		}
		return
	}
	for _, aid := range s.matchedArchetypeIDs {
		a := w.archetypes.get(aid)
		if a.IsEmpty() {
			continue
		}
		t := w.tables.get(a.tableID)
		for i := range tcs {
			tcs[i].setArchetype(w, a, t)
		}
		if s.rowFiltered {
			filter.setArchetype(w, a, t)
		}
		for idx, e := range a.entities {
			row := a.tableRows[idx]
			if s.rowFiltered && !filter.matchesRow(row, e) {
				continue
			}
			if !fn(row, e) {
				return
			}
		}
	}
}

// locate positions tcs on e and returns its table row.
func (s *QueryState) locate(w *World, e Entity, tcs []termCursor, mutable bool) (int, error) {
	s.UpdateArchetypes(w)
	w.borrows.acquire(&s.componentAccess, mutable, w.components)
	w.borrows.release(&s.componentAccess, mutable)
	loc, ok := w.entities.Get(e)
	if !ok {
		return 0, NoSuchEntityError{Entity: e}
	}
	if !s.matchedArchetypes.Test(uint(loc.ArchetypeID)) {
		return 0, QueryDoesNotMatchError{Entity: e}
	}
	a := w.archetypes.get(loc.ArchetypeID)
	t := w.tables.get(a.tableID)
	for i := range tcs {
		tcs[i].setArchetype(w, a, t)
	}
	row := a.tableRows[loc.Index]
	if s.rowFiltered {
		s.getFilter.setArchetype(w, a, t)
		if !s.getFilter.matchesRow(row, e) {
			return 0, QueryDoesNotMatchError{Entity: e}
		}
	}
	return row, nil
}

// Count returns the number of entities the query currently matches.
func (s *QueryState) Count(w *World) int {
	s.UpdateArchetypes(w)
	if !s.rowFiltered {
		total := 0
		if s.dense {
			for _, tid := range s.matchedTableIDs {
				total += w.tables.get(tid).Len()
			}
			return total
		}
		for _, aid := range s.matchedArchetypeIDs {
			total += w.archetypes.get(aid).Len()
		}
		return total
	}
	total := 0
	s.iterate(w, false, nil, func(int, Entity) bool {
		total++
		return true
	})
	return total
}

// ForEachEntity calls fn for every matched entity.
func (s *QueryState) ForEachEntity(w *World, fn func(Entity)) {
	s.iterate(w, false, nil, func(_ int, e Entity) bool {
		fn(e)
		return true
	})
}

// Cursor opens a pull-style iteration. Mutable cursors flag write terms.
func (s *QueryState) Cursor(w *World, mutable bool) *Cursor {
	s.validateWorld(w)
	return newCursor(s, w, mutable)
}
