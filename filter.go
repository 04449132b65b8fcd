package depot

import "github.com/TheBitDrifter/mask"

// filterState is a Filter bound to one world and one query.
type filterState interface {
	matchesArchetype(a *Archetype) bool
	// matchesTable is only consulted when dense reports true.
	matchesTable(t *Table) bool
	// dense reports whether the filter can be decided from table columns alone.
	dense() bool
	// rowLevel reports whether matchesRow must be consulted per entity.
	rowLevel() bool
	setTable(w *World, t *Table)
	setArchetype(w *World, a *Archetype, t *Table)
	matchesRow(row int, e Entity) bool
	updateAccess(access *Access[ComponentID])
	updateArchetypeAccess(a *Archetype, access *Access[ArchetypeComponentID])
}

type filterKind uint8

const (
	filterWith filterKind = iota
	filterWithout
	filterAdded
	filterMutated
	filterChanged
)

type componentFilter struct {
	kind    filterKind
	resolve func(w *World) ComponentID
}

func (f *componentFilter) applyQuery(cfg *queryConfig) { cfg.filters = append(cfg.filters, f) }

// With keeps entities that have T.
func With[T any]() Filter { return newComponentFilter[T](filterWith) }

// Without keeps entities that lack T.
func Without[T any]() Filter { return newComponentFilter[T](filterWithout) }

// Added keeps entities whose T was inserted since the last ClearTrackers.
func Added[T any]() Filter { return newComponentFilter[T](filterAdded) }

// Mutated keeps entities whose T was fetched mutably since the last ClearTrackers.
func Mutated[T any]() Filter { return newComponentFilter[T](filterMutated) }

// Changed is Added or Mutated.
func Changed[T any]() Filter { return newComponentFilter[T](filterChanged) }

func newComponentFilter[T any](kind filterKind) *componentFilter {
	return &componentFilter{kind: kind, resolve: ComponentIDOf[T]}
}

func WithID(id ComponentID) Filter    { return idFilter(filterWith, id) }
func WithoutID(id ComponentID) Filter { return idFilter(filterWithout, id) }
func AddedID(id ComponentID) Filter   { return idFilter(filterAdded, id) }
func MutatedID(id ComponentID) Filter { return idFilter(filterMutated, id) }
func ChangedID(id ComponentID) Filter { return idFilter(filterChanged, id) }

func idFilter(kind filterKind, id ComponentID) Filter {
	return &componentFilter{kind: kind, resolve: func(*World) ComponentID { return id }}
}

func (f *componentFilter) bind(w *World) filterState {
	id := f.resolve(w)
	info := w.components.Info(id)
	if info == nil {
		panic("depot: filter on unregistered component id")
	}
	s := &componentFilterState{kind: f.kind, id: id, storage: info.storage}
	s.mask.Mark(uint32(id))
	switch f.kind {
	case filterAdded:
		s.want = FlagAdded
	case filterMutated:
		s.want = FlagMutated
	case filterChanged:
		s.want = FlagAdded | FlagMutated
	}
	return s
}

type componentFilterState struct {
	kind    filterKind
	id      ComponentID
	storage StorageType
	mask    mask.Mask
	want    ComponentFlags
	col     *Column
	set     *ComponentSparseSet
}

func (s *componentFilterState) matchesArchetype(a *Archetype) bool {
	if s.kind == filterWithout {
		return a.mask.ContainsNone(s.mask)
	}
	return a.mask.ContainsAll(s.mask)
}

func (s *componentFilterState) matchesTable(t *Table) bool {
	if s.kind == filterWithout {
		return !t.HasColumn(s.id)
	}
	return t.HasColumn(s.id)
}

func (s *componentFilterState) dense() bool    { return s.storage == StorageTable }
func (s *componentFilterState) rowLevel() bool { return s.want != 0 }

func (s *componentFilterState) setTable(_ *World, t *Table) {
	s.col = t.Column(s.id)
}

func (s *componentFilterState) setArchetype(w *World, _ *Archetype, t *Table) {
	if s.storage == StorageTable {
		s.col = t.Column(s.id)
		s.set = nil
		return
	}
	s.col = nil
	s.set = w.sparseSets.Get(s.id)
}

func (s *componentFilterState) matchesRow(row int, e Entity) bool {
	if s.want == 0 {
		return true
	}
	if s.col != nil {
		return s.col.flags[row]&s.want != 0
	}
	if s.set != nil {
		flags, ok := s.set.flags(e)
		return ok && flags&s.want != 0
	}
	return false
}

func (s *componentFilterState) updateAccess(access *Access[ComponentID]) {
	if s.want != 0 {
		access.AddRead(s.id)
	}
}

func (s *componentFilterState) updateArchetypeAccess(a *Archetype, access *Access[ArchetypeComponentID]) {
	if s.want == 0 {
		return
	}
	if acid, ok := a.ArchetypeComponentID(s.id); ok {
		access.AddRead(acid)
	}
}

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
)

type compositeFilter struct {
	op       Operation
	children []Filter
}

func (f *compositeFilter) applyQuery(cfg *queryConfig) { cfg.filters = append(cfg.filters, f) }

// And keeps entities matched by every filter.
func And(filters ...Filter) Filter { return &compositeFilter{op: OpAnd, children: filters} }

// Or keeps entities matched by at least one filter.
func Or(filters ...Filter) Filter { return &compositeFilter{op: OpOr, children: filters} }

// Not keeps entities matched by none of the filters.
func Not(filters ...Filter) Filter { return &compositeFilter{op: OpNot, children: filters} }

func (f *compositeFilter) bind(w *World) filterState {
	s := &compositeState{
		op:       f.op,
		children: make([]filterState, len(f.children)),
		active:   make([]bool, len(f.children)),
	}
	for i, child := range f.children {
		s.children[i] = child.bind(w)
	}
	if f.op == OpNot {
		s.op = OpOr
		return &notState{inner: s}
	}
	return s
}

func bindAll(w *World, filters []Filter) *compositeState {
	return And(filters...).bind(w).(*compositeState)
}

type compositeState struct {
	op       Operation
	children []filterState
	// active marks Or children whose archetype-level check passed for the
	// current table or archetype.
	active []bool
}

func (s *compositeState) matchesArchetype(a *Archetype) bool {
	if s.op == OpOr {
		for _, c := range s.children {
			if c.matchesArchetype(a) {
				return true
			}
		}
		return len(s.children) == 0
	}
	for _, c := range s.children {
		if !c.matchesArchetype(a) {
			return false
		}
	}
	return true
}

func (s *compositeState) matchesTable(t *Table) bool {
	if s.op == OpOr {
		for _, c := range s.children {
			if c.matchesTable(t) {
				return true
			}
		}
		return len(s.children) == 0
	}
	for _, c := range s.children {
		if !c.matchesTable(t) {
			return false
		}
	}
	return true
}

func (s *compositeState) dense() bool {
	for _, c := range s.children {
		if !c.dense() {
			return false
		}
	}
	return true
}

func (s *compositeState) rowLevel() bool {
	for _, c := range s.children {
		if c.rowLevel() {
			return true
		}
	}
	return false
}

func (s *compositeState) setTable(w *World, t *Table) {
	for i, c := range s.children {
		c.setTable(w, t)
		if s.op == OpOr {
			s.active[i] = c.matchesTable(t)
		}
	}
}

func (s *compositeState) setArchetype(w *World, a *Archetype, t *Table) {
	for i, c := range s.children {
		c.setArchetype(w, a, t)
		if s.op == OpOr {
			s.active[i] = c.matchesArchetype(a)
		}
	}
}

func (s *compositeState) matchesRow(row int, e Entity) bool {
	if s.op == OpOr {
		for i, c := range s.children {
			if s.active[i] && c.matchesRow(row, e) {
				return true
			}
		}
		return len(s.children) == 0
	}
	for _, c := range s.children {
		if !c.matchesRow(row, e) {
			return false
		}
	}
	return true
}

func (s *compositeState) updateAccess(access *Access[ComponentID]) {
	for _, c := range s.children {
		c.updateAccess(access)
	}
}

func (s *compositeState) updateArchetypeAccess(a *Archetype, access *Access[ArchetypeComponentID]) {
	for _, c := range s.children {
		c.updateArchetypeAccess(a, access)
	}
}

// notState negates an Or over its children. Row-level children keep the
// archetype admitted and are negated per entity.
type notState struct {
	inner *compositeState
}

func (s *notState) matchesArchetype(a *Archetype) bool {
	if s.inner.rowLevel() {
		return true
	}
	return !s.inner.matchesArchetype(a)
}

func (s *notState) matchesTable(t *Table) bool {
	if s.inner.rowLevel() {
		return true
	}
	return !s.inner.matchesTable(t)
}

func (s *notState) dense() bool    { return s.inner.dense() }
func (s *notState) rowLevel() bool { return s.inner.rowLevel() }

func (s *notState) setTable(w *World, t *Table) { s.inner.setTable(w, t) }

func (s *notState) setArchetype(w *World, a *Archetype, t *Table) { s.inner.setArchetype(w, a, t) }

func (s *notState) matchesRow(row int, e Entity) bool {
	if !s.inner.rowLevel() {
		return true
	}
	return !s.inner.matchesRow(row, e)
}

func (s *notState) updateAccess(access *Access[ComponentID]) { s.inner.updateAccess(access) }

func (s *notState) updateArchetypeAccess(a *Archetype, access *Access[ArchetypeComponentID]) {
	s.inner.updateArchetypeAccess(a, access)
}
