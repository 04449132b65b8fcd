package depot

import "unsafe"

// Static bundle keys. Each instantiation is a distinct Go type, so the bundle
// registry resolves a helper's component ids once per type list.
type (
	bundle1[A any]          struct{}
	bundle2[A, B any]       struct{}
	bundle3[A, B, C any]    struct{}
	bundle4[A, B, C, D any] struct{}
)

func bundleInfo1[A any](w *World) *BundleInfo {
	return staticBundleInfo[bundle1[A]](w, func() []ComponentID {
		return []ComponentID{ComponentIDOf[A](w)}
	})
}

func bundleInfo2[A, B any](w *World) *BundleInfo {
	return staticBundleInfo[bundle2[A, B]](w, func() []ComponentID {
		return []ComponentID{ComponentIDOf[A](w), ComponentIDOf[B](w)}
	})
}

func bundleInfo3[A, B, C any](w *World) *BundleInfo {
	return staticBundleInfo[bundle3[A, B, C]](w, func() []ComponentID {
		return []ComponentID{ComponentIDOf[A](w), ComponentIDOf[B](w), ComponentIDOf[C](w)}
	})
}

func bundleInfo4[A, B, C, D any](w *World) *BundleInfo {
	return staticBundleInfo[bundle4[A, B, C, D]](w, func() []ComponentID {
		return []ComponentID{ComponentIDOf[A](w), ComponentIDOf[B](w), ComponentIDOf[C](w), ComponentIDOf[D](w)}
	})
}

// Spawn1 creates an entity with one component. Spawning panics while the
// world is locked by a query.
func Spawn1[A any](w *World, a A) Entity {
	w.assertUnlocked("spawn")
	return w.spawnBundle(bundleInfo1[A](w), []unsafe.Pointer{unsafe.Pointer(&a)})
}

// Spawn2 creates an entity with two components. A and B must differ.
func Spawn2[A, B any](w *World, a A, b B) Entity {
	w.assertUnlocked("spawn")
	return w.spawnBundle(bundleInfo2[A, B](w), []unsafe.Pointer{unsafe.Pointer(&a), unsafe.Pointer(&b)})
}

func Spawn3[A, B, C any](w *World, a A, b B, c C) Entity {
	w.assertUnlocked("spawn")
	return w.spawnBundle(bundleInfo3[A, B, C](w), []unsafe.Pointer{
		unsafe.Pointer(&a), unsafe.Pointer(&b), unsafe.Pointer(&c),
	})
}

func Spawn4[A, B, C, D any](w *World, a A, b B, c C, d D) Entity {
	w.assertUnlocked("spawn")
	return w.spawnBundle(bundleInfo4[A, B, C, D](w), []unsafe.Pointer{
		unsafe.Pointer(&a), unsafe.Pointer(&b), unsafe.Pointer(&c), unsafe.Pointer(&d),
	})
}

// Insert1 adds a to e, overwriting an existing A in place.
func Insert1[A any](w *World, e Entity, a A) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	return w.insertBundle(e, bundleInfo1[A](w), []unsafe.Pointer{unsafe.Pointer(&a)})
}

func Insert2[A, B any](w *World, e Entity, a A, b B) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	return w.insertBundle(e, bundleInfo2[A, B](w), []unsafe.Pointer{unsafe.Pointer(&a), unsafe.Pointer(&b)})
}

func Insert3[A, B, C any](w *World, e Entity, a A, b B, c C) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	return w.insertBundle(e, bundleInfo3[A, B, C](w), []unsafe.Pointer{
		unsafe.Pointer(&a), unsafe.Pointer(&b), unsafe.Pointer(&c),
	})
}

// Remove1 takes A out of e and returns it without dropping it.
func Remove1[A any](w *World, e Entity) (A, error) {
	var a A
	if err := w.checkUnlocked(); err != nil {
		return a, err
	}
	err := w.removeBundle(e, bundleInfo1[A](w), false, func(_ int, p unsafe.Pointer) {
		a = *(*A)(p)
	})
	return a, err
}

// Remove2 takes A and B out of e. When e lacks either, nothing is removed.
func Remove2[A, B any](w *World, e Entity) (A, B, error) {
	var (
		a A
		b B
	)
	if err := w.checkUnlocked(); err != nil {
		return a, b, err
	}
	err := w.removeBundle(e, bundleInfo2[A, B](w), false, func(i int, p unsafe.Pointer) {
		switch i {
		case 0:
			a = *(*A)(p)
		case 1:
			b = *(*B)(p)
		}
	})
	return a, b, err
}

func Remove3[A, B, C any](w *World, e Entity) (A, B, C, error) {
	var (
		a A
		b B
		c C
	)
	if err := w.checkUnlocked(); err != nil {
		return a, b, c, err
	}
	err := w.removeBundle(e, bundleInfo3[A, B, C](w), false, func(i int, p unsafe.Pointer) {
		switch i {
		case 0:
			a = *(*A)(p)
		case 1:
			b = *(*B)(p)
		case 2:
			c = *(*C)(p)
		}
	})
	return a, b, c, err
}
