package depot

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestBundleDuplicateComponentPanics(t *testing.T) {
	w := NewWorld()
	require.Panics(t, func() { w.Spawn(Position{}, Position{X: 1}) })
	require.Panics(t, func() { Spawn2(w, Velocity{}, Velocity{}) })

	pos := ComponentIDOf[Position](w)
	require.Panics(t, func() { _ = w.RemoveIDs(w.SpawnEmpty(), pos, pos) })
}

func TestStaticBundlesAreMemoized(t *testing.T) {
	w := NewWorld()
	Spawn2(w, Position{}, Velocity{})
	n := w.Bundles().Len()

	Spawn2(w, Position{X: 1}, Velocity{X: 1})
	require.Equal(t, n, w.Bundles().Len())

	// Same components in another order are another bundle but the same archetype.
	a := Spawn2(w, Position{}, Velocity{})
	b := Spawn2(w, Velocity{}, Position{})
	require.Equal(t, n+1, w.Bundles().Len())
	require.Equal(t, archetypeOf(t, w, a), archetypeOf(t, w, b))
}

func TestBundleInfoOrder(t *testing.T) {
	w := NewWorld()
	vel := ComponentIDOf[Velocity](w)
	pos := ComponentIDOf[Position](w)

	info := bundleInfo2[Position, Velocity](w)
	require.Equal(t, []ComponentID{pos, vel}, info.ComponentIDs())
	require.Same(t, info, w.Bundles().Get(info.ID()))
	require.Equal(t, 1, info.indexOf(vel))
	require.Equal(t, -1, info.indexOf(ComponentIDOf[Health](w)))
}

func TestDynamicBundleSpawnAndInsert(t *testing.T) {
	w := NewWorld()
	pos := ComponentIDOf[Position](w)
	health, err := w.RegisterComponent(DescriptorOf[Health](StorageSparseSet))
	require.NoError(t, err)

	p := Position{X: 3}
	e := w.SpawnBundle(NewDynamicBundle().Add(pos, unsafe.Pointer(&p)))
	p.X = 100 // values are copied on spawn

	require.NoError(t, w.InsertBundle(e, NewDynamicBundle().AddValue(health, Health{Value: 8})))

	got, err := Get[Position](w, e)
	require.NoError(t, err)
	require.Equal(t, 3.0, got.X)
	h, err := Get[Health](w, e)
	require.NoError(t, err)
	require.Equal(t, 8, h.Value)

	require.Panics(t, func() {
		w.SpawnBundle(NewDynamicBundle().AddValue(ComponentID(200), 1))
	})
}

type wideValue struct {
	A [8]int64
}

func TestDynamicBundleRejectsMismatchedValues(t *testing.T) {
	w := NewWorld()
	wide := ComponentIDOf[wideValue](w)
	name := ComponentIDOf[Name](w)

	require.Panics(t, func() {
		w.SpawnBundle(NewDynamicBundle().AddValue(wide, int8(1)))
	})
	require.Panics(t, func() {
		w.SpawnBundle(NewDynamicBundle().AddValue(name, "not a Name"))
	})
	require.Equal(t, 0, w.Len())

	e := w.Spawn(Position{})
	require.Panics(t, func() {
		_ = w.InsertBundle(e, NewDynamicBundle().AddValue(wide, &wideValue{}))
	})
	require.False(t, Has[wideValue](w, e))

	e = w.SpawnBundle(NewDynamicBundle().AddValue(wide, wideValue{A: [8]int64{7: 9}}))
	got, err := Get[wideValue](w, e)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.A[7])
}

func TestInsertHelpers(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEmpty()

	require.NoError(t, Insert1(w, e, Position{X: 1}))
	require.NoError(t, Insert2(w, e, Velocity{X: 2}, Health{Value: 3}))
	require.NoError(t, Insert3(w, e, Position{X: 4}, Velocity{X: 5}, Name{Value: "x"}))

	p, v, h, err := NewQuery3[Position, Velocity, Health](w).Get(w, e)
	require.NoError(t, err)
	require.Equal(t, 4.0, p.X)
	require.Equal(t, 5.0, v.X)
	require.Equal(t, 3, h.Value)

	a, b, c, err := Remove3[Position, Velocity, Name](w, e)
	require.NoError(t, err)
	require.Equal(t, 4.0, a.X)
	require.Equal(t, 5.0, b.X)
	require.Equal(t, "x", c.Value)
	require.True(t, Has[Health](w, e))
	require.False(t, Has[Position](w, e))

	require.NoError(t, w.Despawn(e))
	require.ErrorIs(t, Insert1(w, e, Position{}), ErrNoSuchEntity)
}
