package depot

import "iter"

func collectQueryOptions(opts []QueryOption) queryConfig {
	var cfg queryConfig
	for _, opt := range opts {
		opt.applyQuery(&cfg)
	}
	return cfg
}

// typedTerms pairs the component ids of a typed query with the configured
// modes; missing modes default to Read.
func typedTerms(modes []FetchMode, ids ...ComponentID) []FetchTerm {
	if len(modes) > len(ids) {
		panic("depot: more fetch modes than query components")
	}
	terms := make([]FetchTerm, len(ids))
	for i, id := range ids {
		terms[i] = FetchTerm{ID: id}
		if i < len(modes) {
			terms[i].Mode = modes[i]
		}
	}
	return terms
}

// Query1 fetches one component per entity. Use Modes to grant write or
// optional access and filters such as With or Changed to narrow the match.
type Query1[A any] struct {
	state *QueryState
}

func NewQuery1[A any](w *World, opts ...QueryOption) *Query1[A] {
	cfg := collectQueryOptions(opts)
	terms := typedTerms(cfg.modes, ComponentIDOf[A](w))
	return &Query1[A]{state: newQueryState(w, terms, cfg.filters)}
}

func (q *Query1[A]) State() *QueryState { return q.state }
func (q *Query1[A]) Count(w *World) int { return q.state.Count(w) }

// ForEach calls fn for every match. It panics when the query declares write
// access; use ForEachMut.
func (q *Query1[A]) ForEach(w *World, fn func(Entity, *A)) {
	q.state.assertReadOnly("ForEach")
	q.forEach(w, false, fn)
}

// ForEachMut calls fn for every match and flags write terms mutated.
func (q *Query1[A]) ForEachMut(w *World, fn func(Entity, *A)) {
	q.forEach(w, true, fn)
}

func (q *Query1[A]) forEach(w *World, mutable bool, fn func(Entity, *A)) {
	var tcs [1]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
		fn(e, (*A)(tcs[0].fetch(row, e)))
		return true
	})
}

// Iter ranges over the matches read-only.
func (q *Query1[A]) Iter(w *World) iter.Seq2[Entity, *A] {
	q.state.assertReadOnly("Iter")
	return q.iter(w, false)
}

func (q *Query1[A]) IterMut(w *World) iter.Seq2[Entity, *A] {
	return q.iter(w, true)
}

func (q *Query1[A]) iter(w *World, mutable bool) iter.Seq2[Entity, *A] {
	return func(yield func(Entity, *A) bool) {
		var tcs [1]termCursor
		q.state.initTermCursors(tcs[:], mutable)
		q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
			return yield(e, (*A)(tcs[0].fetch(row, e)))
		})
	}
}

// Get fetches the components of a single entity. It fails with
// NoSuchEntityError or QueryDoesNotMatchError.
func (q *Query1[A]) Get(w *World, e Entity) (*A, error) {
	q.state.assertReadOnly("Get")
	return q.get(w, e, false)
}

func (q *Query1[A]) GetMut(w *World, e Entity) (*A, error) {
	return q.get(w, e, true)
}

func (q *Query1[A]) get(w *World, e Entity, mutable bool) (*A, error) {
	var tcs [1]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	row, err := q.state.locate(w, e, tcs[:], mutable)
	if err != nil {
		return nil, err
	}
	return (*A)(tcs[0].fetch(row, e)), nil
}

// Query2 fetches two components per entity.
type Query2[A, B any] struct {
	state *QueryState
}

func NewQuery2[A, B any](w *World, opts ...QueryOption) *Query2[A, B] {
	cfg := collectQueryOptions(opts)
	terms := typedTerms(cfg.modes, ComponentIDOf[A](w), ComponentIDOf[B](w))
	return &Query2[A, B]{state: newQueryState(w, terms, cfg.filters)}
}

func (q *Query2[A, B]) State() *QueryState { return q.state }
func (q *Query2[A, B]) Count(w *World) int { return q.state.Count(w) }

// Item2 is the value Query2 iterators yield; optional terms may be nil.
type Item2[A, B any] struct {
	V0 *A
	V1 *B
}

func (q *Query2[A, B]) ForEach(w *World, fn func(Entity, *A, *B)) {
	q.state.assertReadOnly("ForEach")
	q.forEach(w, false, fn)
}

func (q *Query2[A, B]) ForEachMut(w *World, fn func(Entity, *A, *B)) {
	q.forEach(w, true, fn)
}

func (q *Query2[A, B]) forEach(w *World, mutable bool, fn func(Entity, *A, *B)) {
	var tcs [2]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
		fn(e, (*A)(tcs[0].fetch(row, e)), (*B)(tcs[1].fetch(row, e)))
		return true
	})
}

func (q *Query2[A, B]) Iter(w *World) iter.Seq2[Entity, Item2[A, B]] {
	q.state.assertReadOnly("Iter")
	return q.iter(w, false)
}

func (q *Query2[A, B]) IterMut(w *World) iter.Seq2[Entity, Item2[A, B]] {
	return q.iter(w, true)
}

func (q *Query2[A, B]) iter(w *World, mutable bool) iter.Seq2[Entity, Item2[A, B]] {
	return func(yield func(Entity, Item2[A, B]) bool) {
		var tcs [2]termCursor
		q.state.initTermCursors(tcs[:], mutable)
		q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
			return yield(e, Item2[A, B]{V0: (*A)(tcs[0].fetch(row, e)), V1: (*B)(tcs[1].fetch(row, e))})
		})
	}
}

func (q *Query2[A, B]) Get(w *World, e Entity) (*A, *B, error) {
	q.state.assertReadOnly("Get")
	return q.get(w, e, false)
}

func (q *Query2[A, B]) GetMut(w *World, e Entity) (*A, *B, error) {
	return q.get(w, e, true)
}

func (q *Query2[A, B]) get(w *World, e Entity, mutable bool) (*A, *B, error) {
	var tcs [2]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	row, err := q.state.locate(w, e, tcs[:], mutable)
	if err != nil {
		return nil, nil, err
	}
	return (*A)(tcs[0].fetch(row, e)), (*B)(tcs[1].fetch(row, e)), nil
}

type Query3[A, B, C any] struct {
	state *QueryState
}

func NewQuery3[A, B, C any](w *World, opts ...QueryOption) *Query3[A, B, C] {
	cfg := collectQueryOptions(opts)
	terms := typedTerms(cfg.modes, ComponentIDOf[A](w), ComponentIDOf[B](w), ComponentIDOf[C](w))
	return &Query3[A, B, C]{state: newQueryState(w, terms, cfg.filters)}
}

func (q *Query3[A, B, C]) State() *QueryState { return q.state }
func (q *Query3[A, B, C]) Count(w *World) int { return q.state.Count(w) }

// Item3 is the value Query3 iterators yield; optional terms may be nil.
type Item3[A, B, C any] struct {
	V0 *A
	V1 *B
	V2 *C
}

func (q *Query3[A, B, C]) ForEach(w *World, fn func(Entity, *A, *B, *C)) {
	q.state.assertReadOnly("ForEach")
	q.forEach(w, false, fn)
}

func (q *Query3[A, B, C]) ForEachMut(w *World, fn func(Entity, *A, *B, *C)) {
	q.forEach(w, true, fn)
}

func (q *Query3[A, B, C]) forEach(w *World, mutable bool, fn func(Entity, *A, *B, *C)) {
	var tcs [3]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
		fn(e, (*A)(tcs[0].fetch(row, e)), (*B)(tcs[1].fetch(row, e)), (*C)(tcs[2].fetch(row, e)))
		return true
	})
}

func (q *Query3[A, B, C]) Iter(w *World) iter.Seq2[Entity, Item3[A, B, C]] {
	q.state.assertReadOnly("Iter")
	return q.iter(w, false)
}

func (q *Query3[A, B, C]) IterMut(w *World) iter.Seq2[Entity, Item3[A, B, C]] {
	return q.iter(w, true)
}

func (q *Query3[A, B, C]) iter(w *World, mutable bool) iter.Seq2[Entity, Item3[A, B, C]] {
	return func(yield func(Entity, Item3[A, B, C]) bool) {
		var tcs [3]termCursor
		q.state.initTermCursors(tcs[:], mutable)
		q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
			return yield(e, Item3[A, B, C]{V0: (*A)(tcs[0].fetch(row, e)), V1: (*B)(tcs[1].fetch(row, e)), V2: (*C)(tcs[2].fetch(row, e))})
		})
	}
}

func (q *Query3[A, B, C]) Get(w *World, e Entity) (*A, *B, *C, error) {
	q.state.assertReadOnly("Get")
	return q.get(w, e, false)
}

func (q *Query3[A, B, C]) GetMut(w *World, e Entity) (*A, *B, *C, error) {
	return q.get(w, e, true)
}

func (q *Query3[A, B, C]) get(w *World, e Entity, mutable bool) (*A, *B, *C, error) {
	var tcs [3]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	row, err := q.state.locate(w, e, tcs[:], mutable)
	if err != nil {
		return nil, nil, nil, err
	}
	return (*A)(tcs[0].fetch(row, e)), (*B)(tcs[1].fetch(row, e)), (*C)(tcs[2].fetch(row, e)), nil
}

type Query4[A, B, C, D any] struct {
	state *QueryState
}

func NewQuery4[A, B, C, D any](w *World, opts ...QueryOption) *Query4[A, B, C, D] {
	cfg := collectQueryOptions(opts)
	terms := typedTerms(cfg.modes, ComponentIDOf[A](w), ComponentIDOf[B](w), ComponentIDOf[C](w), ComponentIDOf[D](w))
	return &Query4[A, B, C, D]{state: newQueryState(w, terms, cfg.filters)}
}

func (q *Query4[A, B, C, D]) State() *QueryState { return q.state }
func (q *Query4[A, B, C, D]) Count(w *World) int { return q.state.Count(w) }

// Item4 is the value Query4 iterators yield; optional terms may be nil.
type Item4[A, B, C, D any] struct {
	V0 *A
	V1 *B
	V2 *C
	V3 *D
}

func (q *Query4[A, B, C, D]) ForEach(w *World, fn func(Entity, *A, *B, *C, *D)) {
	q.state.assertReadOnly("ForEach")
	q.forEach(w, false, fn)
}

func (q *Query4[A, B, C, D]) ForEachMut(w *World, fn func(Entity, *A, *B, *C, *D)) {
	q.forEach(w, true, fn)
}

func (q *Query4[A, B, C, D]) forEach(w *World, mutable bool, fn func(Entity, *A, *B, *C, *D)) {
	var tcs [4]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
		fn(e, (*A)(tcs[0].fetch(row, e)), (*B)(tcs[1].fetch(row, e)), (*C)(tcs[2].fetch(row, e)), (*D)(tcs[3].fetch(row, e)))
		return true
	})
}

func (q *Query4[A, B, C, D]) Iter(w *World) iter.Seq2[Entity, Item4[A, B, C, D]] {
	q.state.assertReadOnly("Iter")
	return q.iter(w, false)
}

func (q *Query4[A, B, C, D]) IterMut(w *World) iter.Seq2[Entity, Item4[A, B, C, D]] {
	return q.iter(w, true)
}

func (q *Query4[A, B, C, D]) iter(w *World, mutable bool) iter.Seq2[Entity, Item4[A, B, C, D]] {
	return func(yield func(Entity, Item4[A, B, C, D]) bool) {
		var tcs [4]termCursor
		q.state.initTermCursors(tcs[:], mutable)
		q.state.iterate(w, mutable, tcs[:], func(row int, e Entity) bool {
			return yield(e, Item4[A, B, C, D]{V0: (*A)(tcs[0].fetch(row, e)), V1: (*B)(tcs[1].fetch(row, e)), V2: (*C)(tcs[2].fetch(row, e)), V3: (*D)(tcs[3].fetch(row, e))})
		})
	}
}

func (q *Query4[A, B, C, D]) Get(w *World, e Entity) (*A, *B, *C, *D, error) {
	q.state.assertReadOnly("Get")
	return q.get(w, e, false)
}

func (q *Query4[A, B, C, D]) GetMut(w *World, e Entity) (*A, *B, *C, *D, error) {
	return q.get(w, e, true)
}

func (q *Query4[A, B, C, D]) get(w *World, e Entity, mutable bool) (*A, *B, *C, *D, error) {
	var tcs [4]termCursor
	q.state.initTermCursors(tcs[:], mutable)
	row, err := q.state.locate(w, e, tcs[:], mutable)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return (*A)(tcs[0].fetch(row, e)), (*B)(tcs[1].fetch(row, e)), (*C)(tcs[2].fetch(row, e)), (*D)(tcs[3].fetch(row, e)), nil
}
