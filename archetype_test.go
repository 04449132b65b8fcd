package depot

import (
	"slices"
	"testing"

	"gotest.tools/v3/assert"
)

func archetypeOf(t *testing.T, w *World, e Entity) ArchetypeID {
	t.Helper()
	loc, ok := w.Entities().Get(e)
	assert.Assert(t, ok, "entity %v is not live", e)
	return loc.ArchetypeID
}

func TestArchetypeCreation(t *testing.T) {
	tests := []struct {
		name                string
		first               []any
		second              []any
		expectSameArchetype bool
	}{
		{
			name:                "Identical components",
			first:               []any{Position{}, Velocity{}},
			second:              []any{Position{}, Velocity{}},
			expectSameArchetype: true,
		},
		{
			name:                "Different order",
			first:               []any{Position{}, Velocity{}},
			second:              []any{Velocity{}, Position{}},
			expectSameArchetype: true,
		},
		{
			name:                "Different components",
			first:               []any{Position{}},
			second:              []any{Velocity{}},
			expectSameArchetype: false,
		},
		{
			name:                "Subset components",
			first:               []any{Position{}, Velocity{}},
			second:              []any{Position{}},
			expectSameArchetype: false,
		},
		{
			name:                "Superset components",
			first:               []any{Position{}},
			second:              []any{Position{}, Velocity{}, Health{}},
			expectSameArchetype: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld()
			a := archetypeOf(t, w, w.Spawn(tt.first...))
			b := archetypeOf(t, w, w.Spawn(tt.second...))
			assert.Equal(t, a == b, tt.expectSameArchetype)
		})
	}
}

func TestArchetypeFromDifferentPaths(t *testing.T) {
	w := NewWorld()

	direct := w.Spawn(Position{}, Velocity{}, Health{})
	stepwise := w.Spawn(Health{})
	assert.NilError(t, w.Insert(stepwise, Velocity{}))
	assert.NilError(t, w.Insert(stepwise, Position{}))
	generic := Spawn3(w, Velocity{}, Health{}, Position{})

	want := archetypeOf(t, w, direct)
	assert.Equal(t, archetypeOf(t, w, stepwise), want)
	assert.Equal(t, archetypeOf(t, w, generic), want)
}

func TestSparseComponentsShareTable(t *testing.T) {
	w := NewWorld()
	_, err := FactoryNewSparseComponent[Marker](w)
	assert.NilError(t, err)

	plain := w.Spawn(Position{})
	marked := w.Spawn(Position{}, Marker{})

	pa := w.Archetypes().Get(archetypeOf(t, w, plain))
	ma := w.Archetypes().Get(archetypeOf(t, w, marked))

	assert.Assert(t, pa.ID() != ma.ID())
	assert.Equal(t, pa.TableID(), ma.TableID())
	assert.Equal(t, len(ma.SparseSetComponents()), 1)

	// Adding and removing a sparse component keeps the entity in its table.
	before := w.Tables().Get(pa.TableID()).Len()
	assert.NilError(t, w.Insert(plain, Marker{}))
	assert.Equal(t, w.Tables().Get(pa.TableID()).Len(), before)
	assert.Equal(t, archetypeOf(t, w, plain), ma.ID())
}

func TestArchetypeEdgesAreMemoized(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(Position{})
	src := archetypeOf(t, w, e)

	assert.NilError(t, w.Insert(e, Velocity{}))
	dst := archetypeOf(t, w, e)
	gen := w.ArchetypeGeneration()

	info := w.dynamicBundleInfo([]ComponentID{ComponentIDOf[Velocity](w)})
	edge, ok := w.Archetypes().Get(src).edges.addBundle.Get(info.ID())
	assert.Assert(t, ok, "insert should record the add edge")
	assert.Equal(t, edge.target, dst)

	other := w.Spawn(Position{})
	assert.NilError(t, w.Insert(other, Velocity{}))
	assert.Equal(t, w.ArchetypeGeneration(), gen, "following a cached edge creates no archetype")
}

func TestArchetypeComponentIDsAreUnique(t *testing.T) {
	w := NewWorld()
	w.Spawn(Position{})
	w.Spawn(Position{}, Velocity{})

	seen := map[ArchetypeComponentID]bool{}
	for _, a := range w.Archetypes().All() {
		for _, id := range slices.Concat(a.TableComponents(), a.SparseSetComponents()) {
			acid, ok := a.ArchetypeComponentID(id)
			assert.Assert(t, ok)
			assert.Assert(t, !seen[acid], "archetype component id %d reused", acid)
			seen[acid] = true
		}
	}
	assert.Equal(t, len(seen), w.Archetypes().ArchetypeComponentCount())
}
