package depot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"
)

func TestQueryMovingEntities(t *testing.T) {
	w := NewWorld()
	mover := w.Spawn(Position{X: 0}, Velocity{X: 1})
	w.Spawn(Position{X: 5})

	both := NewQuery2[Position, Velocity](w)
	var items []Item2[Position, Velocity]
	var matched []Entity
	for e, item := range both.Iter(w) {
		matched = append(matched, e)
		items = append(items, item)
	}
	assert.Equal(t, len(items), 1)
	assert.Equal(t, matched[0], mover)
	assert.Equal(t, *items[0].V0, Position{X: 0})
	assert.Equal(t, *items[0].V1, Velocity{X: 1})

	positions := NewQuery1[Position](w)
	var xs []float64
	positions.ForEach(w, func(_ Entity, p *Position) {
		xs = append(xs, p.X)
	})
	assert.DeepEqual(t, xs, []float64{0, 5})
}

func TestQueryWithWithout(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(Position{}, Velocity{})
	_, err := Remove1[Velocity](w, e)
	assert.NilError(t, err)

	without := NewQuery1[Position](w, With[Position](), Without[Velocity]())
	with := NewQuery1[Position](w, With[Velocity]())

	_, err = without.Get(w, e)
	assert.NilError(t, err)
	_, err = with.Get(w, e)
	assert.ErrorIs(t, err, ErrQueryDoesNotMatch)
	assert.Equal(t, without.Count(w), 1)
	assert.Equal(t, with.Count(w), 0)
}

// Every entity whose components satisfy the query is visited exactly once;
// every other entity is never visited.
func TestQueryCompletenessAndExclusivity(t *testing.T) {
	w := NewWorld()
	_, err := FactoryNewSparseComponent[Marker](w)
	assert.NilError(t, err)

	want := map[Entity]bool{}
	for i := 0; i < 50; i++ {
		var e Entity
		switch i % 5 {
		case 0:
			e = w.Spawn(Position{}, Velocity{})
			want[e] = true
		case 1:
			e = w.Spawn(Position{}, Velocity{}, Health{})
			want[e] = true
		case 2:
			e = w.Spawn(Position{}, Velocity{}, Marker{})
		case 3:
			e = w.Spawn(Position{})
		case 4:
			e = w.Spawn(Velocity{}, Health{})
		}
		if i%7 == 0 && want[e] {
			assert.NilError(t, w.Despawn(e))
			delete(want, e)
		}
	}

	q := NewQuery2[Position, Velocity](w, Without[Marker]())
	seen := map[Entity]int{}
	q.ForEach(w, func(e Entity, _ *Position, _ *Velocity) {
		seen[e]++
	})

	assert.Equal(t, len(seen), len(want))
	for e, n := range seen {
		assert.Assert(t, want[e], "entity %v should not match", e)
		assert.Equal(t, n, 1, "entity %v visited %d times", e, n)
	}
	assert.Equal(t, q.Count(w), len(want))
}

func TestQueryMutationVisibility(t *testing.T) {
	w := NewWorld()
	_, err := FactoryNewSparseComponent[Health](w)
	assert.NilError(t, err)
	e := w.Spawn(Position{X: 1}, Health{Value: 1})

	writer := NewQuery2[Position, Health](w, Modes(Write, Write))
	writer.ForEachMut(w, func(_ Entity, p *Position, h *Health) {
		p.X = 42
		h.Value = 99
	})

	reader := NewQuery2[Position, Health](w)
	p, h, err := reader.Get(w, e)
	assert.NilError(t, err)
	assert.Equal(t, p.X, 42.0)
	assert.Equal(t, h.Value, 99)
}

func TestQueryOptionalTerms(t *testing.T) {
	w := NewWorld()
	a := w.Spawn(Position{X: 1}, Velocity{X: 2})
	b := w.Spawn(Position{X: 3})

	q := NewQuery2[Position, Velocity](w, Modes(Read, Opt))
	got := map[Entity]*Velocity{}
	for e, item := range q.Iter(w) {
		got[e] = item.V1
	}

	assert.Equal(t, len(got), 2)
	assert.Assert(t, got[a] != nil)
	assert.Equal(t, got[a].X, 2.0)
	assert.Assert(t, got[b] == nil)
	assert.Assert(t, q.State().IsDense())
	assert.Equal(t, len(q.State().MatchedTables()), 2)
}

func TestQueryUpdatesWithNewArchetypes(t *testing.T) {
	w := NewWorld()
	q := NewQuery1[Position](w)
	assert.Equal(t, q.Count(w), 0)

	w.Spawn(Position{})
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Velocity{})

	assert.Equal(t, q.Count(w), 2)
	assert.Equal(t, len(q.State().MatchedArchetypes()), 2)
	assert.Equal(t, q.State().ArchetypeGeneration(), w.ArchetypeGeneration())
}

func TestQueryGetErrors(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(Velocity{})
	q := NewQuery1[Position](w)

	_, err := q.Get(w, e)
	assert.ErrorIs(t, err, ErrQueryDoesNotMatch)

	assert.NilError(t, w.Despawn(e))
	_, err = q.Get(w, e)
	var missing NoSuchEntityError
	assert.Assert(t, errors.As(err, &missing))
	assert.Equal(t, missing.Entity, e)
}

func TestQueryReadOnlyContract(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(Position{})
	q := NewQuery1[Position](w, Modes(Write))

	require.Panics(t, func() { q.ForEach(w, func(Entity, *Position) {}) })
	require.Panics(t, func() { q.Iter(w) })
	require.Panics(t, func() { _, _ = q.Get(w, e) })

	p, err := q.GetMut(w, e)
	require.NoError(t, err)
	p.X = 7
	got, err := Get[Position](w, e)
	require.NoError(t, err)
	require.Equal(t, 7.0, got.X)
}

func TestQueryBorrowConflicts(t *testing.T) {
	w := NewWorld()
	w.Spawn(Position{}, Velocity{})
	readPos := NewQuery1[Position](w)
	writePos := NewQuery1[Position](w, Modes(Write))
	writeVel := NewQuery1[Velocity](w, Modes(Write))

	readPos.ForEach(w, func(Entity, *Position) {
		// Shared reads and disjoint writes are fine.
		readPos.ForEach(w, func(Entity, *Position) {})
		writeVel.ForEachMut(w, func(Entity, *Velocity) {})
		require.Panics(t, func() {
			writePos.ForEachMut(w, func(Entity, *Position) {})
		})
	})
	assert.Assert(t, !w.Locked())

	// Borrow checks can be disabled.
	unchecked := NewWorld(WithConfig(Config{BorrowChecks: false}))
	unchecked.Spawn(Position{})
	r := NewQuery1[Position](unchecked)
	wr := NewQuery1[Position](unchecked, Modes(Write))
	calls := 0
	r.ForEach(unchecked, func(Entity, *Position) {
		wr.ForEachMut(unchecked, func(Entity, *Position) { calls++ })
	})
	assert.Equal(t, calls, 1)
}

func TestQueryIterBreakUnlocks(t *testing.T) {
	w := NewWorld()
	for i := 0; i < 3; i++ {
		w.Spawn(Position{X: float64(i)})
	}
	q := NewQuery1[Position](w)
	for range q.Iter(w) {
		break
	}
	assert.Assert(t, !w.Locked())
	w.Spawn(Position{})
}

func TestQueryWorldMismatch(t *testing.T) {
	w1 := NewWorld()
	w2 := NewWorld()
	ComponentIDOf[Position](w2)
	q := NewQuery1[Position](w1)
	require.Panics(t, func() { q.Count(w2) })
}

func TestQueryDuplicateWriteTerm(t *testing.T) {
	w := NewWorld()
	pos := ComponentIDOf[Position](w)
	require.Panics(t, func() {
		NewQueryState(w, []FetchTerm{{ID: pos, Mode: Write}, {ID: pos, Mode: Read}})
	})
	require.NotPanics(t, func() {
		NewQueryState(w, []FetchTerm{{ID: pos, Mode: Read}, {ID: pos, Mode: Opt}})
	})
}

func TestQuery4(t *testing.T) {
	w := NewWorld()
	e := Spawn4(w, Position{X: 1}, Velocity{X: 2}, Health{Value: 3}, Name{Value: "n"})
	Spawn3(w, Position{}, Velocity{}, Health{})

	q := NewQuery4[Position, Velocity, Health, Name](w, Modes(Write))
	n := 0
	q.ForEachMut(w, func(got Entity, p *Position, v *Velocity, h *Health, name *Name) {
		n++
		assert.Equal(t, got, e)
		p.X += v.X * float64(h.Value)
		assert.Equal(t, name.Value, "n")
	})
	assert.Equal(t, n, 1)

	p, err := Get[Position](w, e)
	assert.NilError(t, err)
	assert.Equal(t, p.X, 7.0)
}

func TestCursorWithAccessibleComponents(t *testing.T) {
	w := NewWorld()
	position := FactoryNewComponent[Position](w)
	velocity := FactoryNewComponent[Velocity](w)
	w.Spawn(Position{X: 1}, Velocity{X: 1})
	w.Spawn(Position{X: 2})

	state := Factory.NewQueryState(w, []FetchTerm{position.Write(), velocity.Opt()})
	cursor := Factory.NewCursor(state, w)

	assert.Equal(t, cursor.TotalMatched(), 2)
	withVel := 0
	for cursor.Next() {
		assert.Assert(t, w.Locked())
		if ok, vel := velocity.GetFromCursorSafe(cursor); ok {
			withVel++
			position.GetFromCursor(cursor).X += vel.X
		}
		assert.Assert(t, position.CheckCursor(cursor))
	}
	assert.Assert(t, !w.Locked())
	assert.Equal(t, withVel, 1)

	e := w.Spawn(Position{X: 9})
	p, err := position.GetFromEntity(w, e)
	assert.NilError(t, err)
	assert.Equal(t, p.X, 9.0)
}

func TestCursorEntitiesAndReset(t *testing.T) {
	w := NewWorld()
	position := FactoryNewComponent[Position](w)
	var spawned []Entity
	for i := 0; i < 4; i++ {
		spawned = append(spawned, w.Spawn(Position{X: float64(i)}))
	}

	cursor := NewQueryState(w, []FetchTerm{position.Read()}).Cursor(w, false)
	var seen []Entity
	for i, e := range cursor.Entities() {
		assert.Equal(t, i, len(seen))
		seen = append(seen, e)
	}
	assert.Equal(t, len(seen), len(spawned))

	for range cursor.Entities() {
		break
	}
	assert.Assert(t, !w.Locked())

	assert.Assert(t, cursor.Next())
	assert.Equal(t, cursor.TotalMatched(), 4)
	cursor.Reset()
	assert.Assert(t, !w.Locked())
}
