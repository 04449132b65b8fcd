package depot

import (
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/rs/zerolog"
)

var worldIDs atomic.Uint64

// World owns every entity, component value, table, archetype and resource.
//
// A World is not safe for concurrent structural mutation. Query iterations
// lock it: while any iteration is live, Spawn panics and Insert, Remove and
// Despawn fail with WorldLockedError. Record such changes on Commands.
type World struct {
	id         uint64
	entities   *Entities
	components *Components
	archetypes *Archetypes
	tables     *Tables
	sparseSets *SparseSets
	bundles    *Bundles
	resources  *resources
	removed    [][]Entity // by ComponentID
	borrows    borrowTracker
	locks      int
	config     Config
	logger     zerolog.Logger
}

func NewWorld(opts ...WorldOption) *World {
	o := worldOptions{config: DefaultConfig(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if lvl, err := o.config.level(); err == nil {
		logger = logger.Level(lvl)
	}
	components := newComponents()
	w := &World{
		id:         worldIDs.Add(1),
		entities:   newEntities(o.config.EntityCapacity),
		components: components,
		archetypes: newArchetypes(),
		tables:     newTables(components, o.config.TableCapacity),
		sparseSets: &SparseSets{capacity: o.config.TableCapacity},
		bundles:    newBundles(),
		resources:  newResources(),
		borrows:    borrowTracker{enabled: o.config.BorrowChecks},
		config:     o.config,
	}
	w.logger = logger.With().Uint64("world_id", w.id).Logger()
	return w
}

func (w *World) ID() uint64                               { return w.id }
func (w *World) Config() Config                           { return w.config }
func (w *World) Entities() *Entities                      { return w.entities }
func (w *World) Components() *Components                  { return w.components }
func (w *World) Archetypes() *Archetypes                  { return w.archetypes }
func (w *World) Tables() *Tables                          { return w.tables }
func (w *World) SparseSets() *SparseSets                  { return w.sparseSets }
func (w *World) Bundles() *Bundles                        { return w.bundles }
func (w *World) Logger() *zerolog.Logger                  { return &w.logger }
func (w *World) Len() int                                 { return w.entities.Len() }
func (w *World) Contains(e Entity) bool                   { return w.entities.Contains(e) }
func (w *World) Locked() bool                             { return w.locks > 0 }
func (w *World) ArchetypeGeneration() ArchetypeGeneration { return w.archetypes.Generation() }

// RegisterComponent registers a component type explicitly, typically to pick
// sparse-set storage before the type is first used.
func (w *World) RegisterComponent(d ComponentDescriptor) (ComponentID, error) {
	id, err := w.components.add(d)
	if err != nil {
		return 0, err
	}
	w.logComponent(id)
	return id, nil
}

// ComponentIDOf returns the id of T, registering it with table storage on
// first use.
func ComponentIDOf[T any](w *World) ComponentID {
	id, created := w.components.getOrInsert(reflect.TypeFor[T](), func() ComponentDescriptor {
		return DescriptorOf[T](StorageTable)
	})
	if created {
		w.logComponent(id)
	}
	return id
}

func (w *World) logComponent(id ComponentID) {
	info := w.components.Info(id)
	w.logger.Debug().
		Uint32("component_id", uint32(id)).
		Str("name", info.name).
		Stringer("storage", info.storage).
		Uint64("size", uint64(info.size)).
		Msg("component registered")
}

func (w *World) checkUnlocked() error {
	if w.locks > 0 {
		return WorldLockedError{}
	}
	return nil
}

func (w *World) assertUnlocked(op string) {
	if w.locks > 0 {
		panic(fmt.Sprintf("depot: %s while the world is locked by a live query; queue it on Commands", op))
	}
}

// flush places every reserved entity in the empty archetype.
func (w *World) flush() {
	empty := w.archetypes.Empty()
	table := w.tables.get(EmptyTableID)
	n := w.entities.flush(func(e Entity, loc *Location) {
		*loc = empty.allocate(e, table.allocate(e))
	})
	if n > 0 {
		w.logger.Debug().Int("entities", n).Msg("reserved entities flushed")
	}
}

// Flush materializes entities handed out by Entities().Reserve.
func (w *World) Flush() {
	w.assertUnlocked("flush")
	w.flush()
}

// SpawnEmpty creates an entity with no components.
func (w *World) SpawnEmpty() Entity {
	w.assertUnlocked("spawn")
	w.flush()
	e := w.entities.Alloc()
	empty := w.archetypes.Empty()
	loc := empty.allocate(e, w.tables.get(EmptyTableID).allocate(e))
	w.entities.setLocation(e, loc)
	return e
}

// Spawn creates an entity from plain Go values. Unseen value types are
// registered with table storage.
func (w *World) Spawn(values ...any) Entity {
	w.assertUnlocked("spawn")
	info, ptrs := w.valuesBundle(values)
	return w.spawnBundle(info, ptrs)
}

// SpawnBundle creates an entity from a dynamic bundle.
func (w *World) SpawnBundle(b *DynamicBundle) Entity {
	w.assertUnlocked("spawn")
	info := w.dynamicBundleInfo(b.ids)
	w.checkBundleTypes(b)
	return w.spawnBundle(info, b.values)
}

// SpawnBatch creates n entities holding copies of values. The bundle is
// resolved once and the destination table grows once.
func (w *World) SpawnBatch(n int, values ...any) []Entity {
	w.assertUnlocked("spawn")
	info, ptrs := w.valuesBundle(values)
	w.flush()
	edge := w.addBundleEdge(EmptyArchetypeID, info)
	arch := w.archetypes.get(edge.target)
	table := w.tables.get(arch.tableID)
	table.reserve(n)
	out := make([]Entity, n)
	for i := range out {
		e := w.entities.Alloc()
		row := table.allocate(e)
		w.entities.setLocation(e, arch.allocate(e, row))
		w.writeBundle(info, nil, table, row, e, ptrs)
		out[i] = e
	}
	return out
}

func (w *World) spawnBundle(info *BundleInfo, values []unsafe.Pointer) Entity {
	w.assertUnlocked("spawn")
	w.flush()
	e := w.entities.Alloc()
	edge := w.addBundleEdge(EmptyArchetypeID, info)
	arch := w.archetypes.get(edge.target)
	table := w.tables.get(arch.tableID)
	row := table.allocate(e)
	w.entities.setLocation(e, arch.allocate(e, row))
	w.writeBundle(info, nil, table, row, e, values)
	return e
}

// writeBundle copies bundle values into freshly allocated or existing slots.
// existing marks components the entity already had; those are replaced.
func (w *World) writeBundle(info *BundleInfo, existing []bool, table *Table, row int, e Entity, values []unsafe.Pointer) {
	for i, id := range info.componentIDs {
		src := values[i]
		switch info.storageTypes[i] {
		case StorageTable:
			col := table.Column(id)
			if existing != nil && existing[i] {
				col.replace(row, src)
			} else {
				col.initialize(row, src)
			}
		case StorageSparseSet:
			w.sparseSets.getOrInsert(w.components.Info(id)).insert(e, src)
		}
	}
}

// addBundleEdge resolves (and memoizes) the archetype reached by adding the
// bundle to src.
func (w *World) addBundleEdge(srcID ArchetypeID, info *BundleInfo) *addBundleEdge {
	src := w.archetypes.get(srcID)
	if edge, ok := src.edges.addBundle.Get(info.id); ok {
		return edge
	}
	existing := make([]bool, len(info.componentIDs))
	var newTable, newSparse []ComponentID
	for i, id := range info.componentIDs {
		if src.Contains(id) {
			existing[i] = true
			continue
		}
		if info.storageTypes[i] == StorageTable {
			newTable = append(newTable, id)
		} else {
			newSparse = append(newSparse, id)
		}
	}
	target := srcID
	if len(newTable) > 0 || len(newSparse) > 0 {
		tableIDs, tableID := src.tableComponents, src.tableID
		if len(newTable) > 0 {
			tableIDs = sortedUnion(src.tableComponents, newTable)
			tableID = w.tableFor(tableIDs)
		}
		sparseIDs := src.sparseSetComponents
		if len(newSparse) > 0 {
			sparseIDs = sortedUnion(src.sparseSetComponents, newSparse)
		}
		target = w.archetypeFor(tableID, tableIDs, sparseIDs)
	}
	edge := &addBundleEdge{target: target, existing: existing}
	src.edges.addBundle.Put(info.id, edge)
	return edge
}

// removeBundleEdge resolves the archetype reached by removing the bundle from
// src. Without intersection, a bundle member src lacks makes the edge invalid.
func (w *World) removeBundleEdge(src *Archetype, info *BundleInfo, intersection bool) removeBundleEdge {
	edges := src.edges.removeBundle
	if intersection {
		edges = src.edges.removeBundleIntersection
	}
	if edge, ok := edges.Get(info.id); ok {
		return edge
	}
	tableIDs := slices.Clone(src.tableComponents)
	sparseIDs := slices.Clone(src.sparseSetComponents)
	for i, id := range info.componentIDs {
		if !src.Contains(id) {
			if intersection {
				continue
			}
			edge := removeBundleEdge{}
			edges.Put(info.id, edge)
			return edge
		}
		if info.storageTypes[i] == StorageTable {
			tableIDs = slices.DeleteFunc(tableIDs, func(c ComponentID) bool { return c == id })
		} else {
			sparseIDs = slices.DeleteFunc(sparseIDs, func(c ComponentID) bool { return c == id })
		}
	}
	tableID := src.tableID
	if len(tableIDs) != len(src.tableComponents) {
		tableID = w.tableFor(tableIDs)
	}
	edge := removeBundleEdge{target: w.archetypeFor(tableID, tableIDs, sparseIDs), ok: true}
	edges.Put(info.id, edge)
	return edge
}

func (w *World) tableFor(ids []ComponentID) TableID {
	id, created := w.tables.getIDOrInsert(ids, w.components)
	if created {
		w.logger.Debug().
			Uint32("table_id", uint32(id)).
			Interface("component_ids", ids).
			Msg("table created")
	}
	return id
}

func (w *World) archetypeFor(tableID TableID, tableIDs, sparseIDs []ComponentID) ArchetypeID {
	id, created := w.archetypes.getIDOrInsert(tableID, tableIDs, sparseIDs)
	if created {
		w.logger.Debug().
			Uint32("archetype_id", uint32(id)).
			Uint32("table_id", uint32(tableID)).
			Interface("table_components", tableIDs).
			Interface("sparse_components", sparseIDs).
			Msg("archetype created")
	}
	return id
}

func sortedUnion(a, b []ComponentID) []ComponentID {
	out := make([]ComponentID, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// detach removes the entity at index from a, fixing the location of the
// entity swapped into its place, and returns the removed table row.
func (w *World) detach(a *Archetype, index int) int {
	swapped, has, row := a.swapRemove(index)
	if has {
		w.entities.setLocation(swapped, Location{ArchetypeID: a.id, Index: index})
	}
	return row
}

// fixTableSwap points the entity moved into row by a table swap-remove at its
// new row.
func (w *World) fixTableSwap(swapped Entity, has bool, row int) {
	if !has {
		return
	}
	loc, ok := w.entities.Get(swapped)
	if !ok {
		return
	}
	w.archetypes.get(loc.ArchetypeID).setEntityTableRow(loc.Index, row)
}

func (w *World) insertBundle(e Entity, info *BundleInfo, values []unsafe.Pointer) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	w.flush()
	loc, ok := w.entities.Get(e)
	if !ok {
		return NoSuchEntityError{Entity: e}
	}
	src := w.archetypes.get(loc.ArchetypeID)
	edge := w.addBundleEdge(src.id, info)
	if edge.target == src.id {
		w.writeBundle(info, edge.existing, w.tables.get(src.tableID), src.tableRows[loc.Index], e, values)
		return nil
	}
	dst := w.archetypes.get(edge.target)
	row := w.detach(src, loc.Index)
	if src.tableID != dst.tableID {
		res := w.tables.get(src.tableID).moveToSuperset(row, w.tables.get(dst.tableID))
		w.fixTableSwap(res.Swapped, res.HasSwapped, row)
		row = res.NewRow
	}
	w.entities.setLocation(e, dst.allocate(e, row))
	w.writeBundle(info, edge.existing, w.tables.get(dst.tableID), row, e, values)
	return nil
}

// removeBundle moves e out of the bundle's components. take, when set,
// receives each removed value (by bundle index) instead of it being dropped;
// the pointer is only valid during the call.
func (w *World) removeBundle(e Entity, info *BundleInfo, intersection bool, take func(int, unsafe.Pointer)) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	w.flush()
	loc, ok := w.entities.Get(e)
	if !ok {
		return NoSuchEntityError{Entity: e}
	}
	src := w.archetypes.get(loc.ArchetypeID)
	edge := w.removeBundleEdge(src, info, intersection)
	if !edge.ok {
		for _, id := range info.componentIDs {
			if !src.Contains(id) {
				return MissingComponentError{Entity: e, Component: w.components.name(id)}
			}
		}
	}
	if edge.target == src.id {
		return nil
	}
	dst := w.archetypes.get(edge.target)

	for i, id := range info.componentIDs {
		if info.storageTypes[i] != StorageSparseSet || !src.Contains(id) {
			continue
		}
		set := w.sparseSets.Get(id)
		if take != nil {
			p, _ := set.removeAndForget(e)
			take(i, p)
			set.releaseScratch()
		} else {
			set.remove(e)
		}
		w.recordRemoved(id, e)
	}

	row := w.detach(src, loc.Index)
	if src.tableID != dst.tableID {
		srcTable, dstTable := w.tables.get(src.tableID), w.tables.get(dst.tableID)
		var res TableMoveResult
		if take != nil {
			res = srcTable.moveToAndForgetMissing(row, dstTable, func(id ComponentID, p unsafe.Pointer) {
				take(info.indexOf(id), p)
			})
		} else {
			res = srcTable.moveToAndDropMissing(row, dstTable)
		}
		w.fixTableSwap(res.Swapped, res.HasSwapped, row)
		row = res.NewRow
		for _, id := range src.tableComponents {
			if !dstTable.HasColumn(id) {
				w.recordRemoved(id, e)
			}
		}
	}
	w.entities.setLocation(e, dst.allocate(e, row))
	return nil
}

// Insert adds plain Go values to e, overwriting components it already has.
func (w *World) Insert(e Entity, values ...any) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	info, ptrs := w.valuesBundle(values)
	return w.insertBundle(e, info, ptrs)
}

func (w *World) InsertBundle(e Entity, b *DynamicBundle) error {
	info := w.dynamicBundleInfo(b.ids)
	w.checkBundleTypes(b)
	return w.insertBundle(e, info, b.values)
}

// RemoveIDs drops the given components from e. It is all-or-nothing: when e
// lacks any of them nothing changes and MissingComponentError is returned.
func (w *World) RemoveIDs(e Entity, ids ...ComponentID) error {
	return w.removeBundle(e, w.dynamicBundleInfo(ids), false, nil)
}

// RemoveIntersection drops whichever of the given components e has.
func (w *World) RemoveIntersection(e Entity, ids ...ComponentID) error {
	return w.removeBundle(e, w.dynamicBundleInfo(ids), true, nil)
}

// Despawn destroys e and drops all of its component values.
func (w *World) Despawn(e Entity) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	w.flush()
	loc, ok := w.entities.Free(e)
	if !ok {
		w.logger.Debug().Stringer("entity", e).Msg("despawn of missing entity")
		return NoSuchEntityError{Entity: e}
	}
	arch := w.archetypes.get(loc.ArchetypeID)
	for _, id := range arch.sparseSetComponents {
		w.sparseSets.Get(id).remove(e)
		w.recordRemoved(id, e)
	}
	row := w.detach(arch, loc.Index)
	swapped, has := w.tables.get(arch.tableID).swapRemove(row)
	w.fixTableSwap(swapped, has, row)
	for _, id := range arch.tableComponents {
		w.recordRemoved(id, e)
	}
	return nil
}

// Clear despawns every entity and drops every resource, running drop hooks on
// each value still stored. Handles issued before Clear no longer resolve.
// Registered components, bundles, tables and archetypes are kept, so existing
// query states stay valid. The removed log is reset rather than filled.
func (w *World) Clear() error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	w.flush()
	n := w.entities.Len()
	for _, a := range w.archetypes.archetypes {
		for _, e := range a.entities {
			w.entities.Free(e)
		}
		a.entities = a.entities[:0]
		a.tableRows = a.tableRows[:0]
	}
	w.tables.clear()
	w.sparseSets.clear()
	w.resources.clear()
	for i := range w.removed {
		w.removed[i] = w.removed[i][:0]
	}
	w.logger.Debug().Int("entities", n).Msg("world cleared")
	return nil
}

func (w *World) recordRemoved(id ComponentID, e Entity) {
	for len(w.removed) <= int(id) {
		w.removed = append(w.removed, nil)
	}
	w.removed[id] = append(w.removed[id], e)
}

// Removed lists the entities that lost component id since the last
// ClearTrackers, through removal or despawn.
func (w *World) Removed(id ComponentID) []Entity {
	if int(id) >= len(w.removed) {
		return nil
	}
	return w.removed[id]
}

// ClearTrackers resets every Added and Mutated flag and the removed log.
func (w *World) ClearTrackers() {
	w.tables.clearFlags()
	w.sparseSets.clearFlags()
	w.resources.clearFlags()
	for i := range w.removed {
		w.removed[i] = w.removed[i][:0]
	}
}

// fetchComponent returns the address of e's value of id along with its flag
// slot, or nil when e does not have it.
func (w *World) fetchComponent(loc Location, e Entity, id ComponentID) (unsafe.Pointer, *ComponentFlags) {
	arch := w.archetypes.get(loc.ArchetypeID)
	storage, ok := arch.StorageType(id)
	if !ok {
		return nil, nil
	}
	if storage == StorageSparseSet {
		return w.sparseSets.Get(id).getWithFlags(e)
	}
	col := w.tables.get(arch.tableID).Column(id)
	row := arch.tableRows[loc.Index]
	return col.Get(row), &col.flags[row]
}
