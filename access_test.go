package depot

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestAccessCompatibility(t *testing.T) {
	tests := []struct {
		name       string
		a, b       func(*Access[ComponentID])
		compatible bool
		conflicts  []ComponentID
	}{
		{
			name:       "shared reads",
			a:          func(a *Access[ComponentID]) { a.AddRead(1) },
			b:          func(a *Access[ComponentID]) { a.AddRead(1) },
			compatible: true,
		},
		{
			name:       "read and write",
			a:          func(a *Access[ComponentID]) { a.AddRead(1) },
			b:          func(a *Access[ComponentID]) { a.AddWrite(1) },
			compatible: false,
			conflicts:  []ComponentID{1},
		},
		{
			name:       "disjoint writes",
			a:          func(a *Access[ComponentID]) { a.AddWrite(1) },
			b:          func(a *Access[ComponentID]) { a.AddWrite(2) },
			compatible: true,
		},
		{
			name:       "read all against write",
			a:          func(a *Access[ComponentID]) { a.ReadAll() },
			b:          func(a *Access[ComponentID]) { a.AddWrite(3) },
			compatible: false,
			conflicts:  []ComponentID{3},
		},
		{
			name:       "read all against reads",
			a:          func(a *Access[ComponentID]) { a.ReadAll() },
			b:          func(a *Access[ComponentID]) { a.AddRead(3) },
			compatible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a, b Access[ComponentID]
			tt.a(&a)
			tt.b(&b)
			assert.Equal(t, a.IsCompatible(&b), tt.compatible)
			assert.Equal(t, b.IsCompatible(&a), tt.compatible)
			assert.DeepEqual(t, a.Conflicts(&b), tt.conflicts)
		})
	}
}

func TestAccessExtendAndClear(t *testing.T) {
	var a, b Access[ArchetypeComponentID]
	a.AddRead(1)
	b.AddWrite(4)
	a.Extend(&b)

	assert.Assert(t, a.HasRead(1))
	assert.Assert(t, a.HasRead(4))
	assert.Assert(t, a.HasWrite(4))
	assert.DeepEqual(t, a.Reads(), []ArchetypeComponentID{1, 4})
	assert.DeepEqual(t, a.Writes(), []ArchetypeComponentID{4})

	a.Clear()
	assert.Assert(t, !a.HasRead(1))
	assert.Equal(t, len(a.Reads()), 0)
}

func TestQueriesCompatible(t *testing.T) {
	w := NewWorld()
	w.Spawn(Position{}, Velocity{})

	readPos := NewQuery1[Position](w)
	writeVel := NewQuery1[Velocity](w, Modes(Write))
	moving := NewQuery2[Position, Velocity](w, Modes(Write))
	changedVel := NewQuery1[Position](w, Changed[Velocity]())

	assert.Assert(t, Compatible(readPos, writeVel))
	assert.Assert(t, !Compatible(readPos, moving))
	assert.Assert(t, !Compatible(writeVel, changedVel), "change filters read their component")
	assert.Assert(t, Compatible(readPos, changedVel))

	acc := moving.State().ArchetypeComponentAccess()
	assert.Equal(t, len(acc.Writes()), 1)
	assert.Equal(t, len(acc.Reads()), 2)
}
