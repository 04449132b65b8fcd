package depot

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestChangeDetectionFilters(t *testing.T) {
	w := NewWorld()
	a := w.Spawn(Position{})
	b := w.Spawn(Position{}, Velocity{})

	added := NewQuery1[Position](w, Added[Position]())
	mutated := NewQuery1[Position](w, Mutated[Position]())
	changed := NewQuery1[Position](w, Changed[Position]())

	assert.Equal(t, added.Count(w), 2)
	assert.Equal(t, mutated.Count(w), 0)
	assert.Equal(t, changed.Count(w), 2)

	w.ClearTrackers()
	assert.Equal(t, added.Count(w), 0)
	assert.Equal(t, changed.Count(w), 0)

	p, err := GetMut[Position](w, b)
	assert.NilError(t, err)
	p.X = 1

	assert.Equal(t, mutated.Count(w), 1)
	_, err = mutated.Get(w, a)
	assert.ErrorIs(t, err, ErrQueryDoesNotMatch)
	_, err = mutated.Get(w, b)
	assert.NilError(t, err)

	c := w.Spawn(Position{})
	var fresh []Entity
	changed.ForEach(w, func(e Entity, _ *Position) { fresh = append(fresh, e) })
	assert.Equal(t, len(fresh), 2)
	assert.Assert(t, fresh[0] == b || fresh[1] == b)
	assert.Assert(t, fresh[0] == c || fresh[1] == c)
}

func TestMutableIterationFlagsWrites(t *testing.T) {
	w := NewWorld()
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Position{}, Velocity{})
	w.ClearTrackers()

	NewQuery2[Position, Velocity](w, Modes(Write, Read)).
		ForEachMut(w, func(Entity, *Position, *Velocity) {})

	assert.Equal(t, NewQuery1[Position](w, Mutated[Position]()).Count(w), 2)
	assert.Equal(t, NewQuery1[Velocity](w, Mutated[Velocity]()).Count(w), 0)
}

func TestSparseChangeDetection(t *testing.T) {
	w := NewWorld()
	_, err := FactoryNewSparseComponent[Marker](w)
	assert.NilError(t, err)
	w.Spawn(Position{}, Marker{})
	w.ClearTrackers()
	e := w.Spawn(Position{})
	assert.NilError(t, w.Insert(e, Marker{}))

	q := NewQuery1[Position](w, Added[Marker]())
	assert.Assert(t, !q.State().IsDense())
	var got []Entity
	q.ForEach(w, func(e Entity, _ *Position) { got = append(got, e) })
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0], e)
}

func TestCompositeFilters(t *testing.T) {
	w := NewWorld()
	w.Spawn(Position{})
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Position{}, Health{})
	w.Spawn(Position{}, Velocity{}, Health{})

	tests := []struct {
		name    string
		filters []QueryOption
		want    int
	}{
		{"no filter", nil, 4},
		{"with velocity", []QueryOption{With[Velocity]()}, 2},
		{"without velocity", []QueryOption{Without[Velocity]()}, 2},
		{"with both", []QueryOption{With[Velocity](), With[Health]()}, 1},
		{"and", []QueryOption{And(With[Velocity](), With[Health]())}, 1},
		{"or", []QueryOption{Or(With[Velocity](), With[Health]())}, 3},
		{"not", []QueryOption{Not(With[Velocity]())}, 2},
		{"not or", []QueryOption{Not(With[Velocity](), With[Health]())}, 1},
		{"nested", []QueryOption{Or(And(With[Velocity](), Without[Health]()), Not(With[Velocity]()))}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery1[Position](w, tt.filters...)
			assert.Equal(t, q.Count(w), tt.want)

			n := 0
			q.ForEach(w, func(Entity, *Position) { n++ })
			assert.Equal(t, n, tt.want)
		})
	}
}

func TestRowLevelOrAndNot(t *testing.T) {
	w := NewWorld()
	a := w.Spawn(Position{}, Velocity{})
	b := w.Spawn(Position{}, Health{})
	w.Spawn(Position{})
	w.ClearTrackers()

	_, err := GetMut[Velocity](w, a)
	assert.NilError(t, err)
	_, err = GetMut[Health](w, b)
	assert.NilError(t, err)

	either := NewQuery1[Position](w, Or(Mutated[Velocity](), Mutated[Health]()))
	assert.Equal(t, either.Count(w), 2)

	untouched := NewQuery1[Position](w, Not(Mutated[Velocity]()))
	assert.Equal(t, untouched.Count(w), 2)
	_, err = untouched.Get(w, a)
	assert.ErrorIs(t, err, ErrQueryDoesNotMatch)
}

func TestFilterSharedAcrossQueries(t *testing.T) {
	w := NewWorld()
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Velocity{})

	withVel := With[Velocity]()
	q1 := NewQuery1[Position](w, withVel)
	q2 := NewQuery1[Velocity](w, withVel)
	assert.Equal(t, q1.Count(w), 1)
	assert.Equal(t, q2.Count(w), 2)
}
