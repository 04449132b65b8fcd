package depot

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
)

// ArchetypeID indexes Archetypes. ArchetypeID 0 is the archetype with no
// components; ids are never reused.
type ArchetypeID uint32

const (
	EmptyArchetypeID   ArchetypeID = 0
	invalidArchetypeID ArchetypeID = math.MaxUint32
)

// ArchetypeComponentID names one component inside one archetype. Access
// tracking at this granularity lets disjoint archetypes be touched in parallel.
type ArchetypeComponentID uint32

// ArchetypeGeneration is the number of archetypes that existed at some point.
// Queries use it as a high-water mark.
type ArchetypeGeneration uint32

type archetypeComponentInfo struct {
	storage              StorageType
	archetypeComponentID ArchetypeComponentID
}

type addBundleEdge struct {
	target ArchetypeID
	// existing[i] reports whether the i-th bundle component was already
	// present in the source archetype.
	existing []bool
}

type removeBundleEdge struct {
	target ArchetypeID
	ok     bool
}

// Edges memoize bundle transitions out of an archetype.
type Edges struct {
	addBundle                *intmap.Map[BundleID, *addBundleEdge]
	removeBundle             *intmap.Map[BundleID, removeBundleEdge]
	removeBundleIntersection *intmap.Map[BundleID, removeBundleEdge]
}

func newEdges() Edges {
	return Edges{
		addBundle:                intmap.New[BundleID, *addBundleEdge](4),
		removeBundle:             intmap.New[BundleID, removeBundleEdge](4),
		removeBundleIntersection: intmap.New[BundleID, removeBundleEdge](4),
	}
}

// Archetype is a unique combination of table-stored and sparse-stored
// components. Entities of an archetype share one table, in which each entity
// sits at the row recorded next to it.
type Archetype struct {
	id                  ArchetypeID
	tableID             TableID
	tableComponents     []ComponentID
	sparseSetComponents []ComponentID
	mask                mask.Mask
	components          map[ComponentID]archetypeComponentInfo
	entities            []Entity
	tableRows           []int
	edges               Edges
}

func (a *Archetype) ID() ArchetypeID                    { return a.id }
func (a *Archetype) TableID() TableID                   { return a.tableID }
func (a *Archetype) Len() int                           { return len(a.entities) }
func (a *Archetype) IsEmpty() bool                      { return len(a.entities) == 0 }
func (a *Archetype) Entities() []Entity                 { return a.entities }
func (a *Archetype) TableComponents() []ComponentID     { return a.tableComponents }
func (a *Archetype) SparseSetComponents() []ComponentID { return a.sparseSetComponents }
func (a *Archetype) Mask() mask.Mask                    { return a.mask }
func (a *Archetype) EntityTableRow(index int) int       { return a.tableRows[index] }

func (a *Archetype) Contains(id ComponentID) bool {
	_, ok := a.components[id]
	return ok
}

// StorageType reports how id is stored in this archetype.
func (a *Archetype) StorageType(id ComponentID) (StorageType, bool) {
	info, ok := a.components[id]
	return info.storage, ok
}

func (a *Archetype) ArchetypeComponentID(id ComponentID) (ArchetypeComponentID, bool) {
	info, ok := a.components[id]
	return info.archetypeComponentID, ok
}

func (a *Archetype) allocate(e Entity, tableRow int) Location {
	a.entities = append(a.entities, e)
	a.tableRows = append(a.tableRows, tableRow)
	return Location{ArchetypeID: a.id, Index: len(a.entities) - 1}
}

func (a *Archetype) setEntityTableRow(index, row int) {
	a.tableRows[index] = row
}

// swapRemove removes the entity at index and reports the entity moved into
// index, if any, along with the removed entity's table row.
func (a *Archetype) swapRemove(index int) (swapped Entity, hasSwapped bool, tableRow int) {
	last := len(a.entities) - 1
	tableRow = a.tableRows[index]
	a.entities[index] = a.entities[last]
	a.tableRows[index] = a.tableRows[last]
	a.entities = a.entities[:last]
	a.tableRows = a.tableRows[:last]
	if index == last {
		return Entity{}, false, tableRow
	}
	return a.entities[index], true, tableRow
}

// Archetypes is the append-only archetype registry of a world.
type Archetypes struct {
	archetypes              []*Archetype
	ids                     map[string]ArchetypeID
	archetypeComponentCount uint32
}

func newArchetypes() *Archetypes {
	as := &Archetypes{ids: make(map[string]ArchetypeID)}
	as.getIDOrInsert(EmptyTableID, nil, nil)
	return as
}

func (as *Archetypes) Len() int { return len(as.archetypes) }

func (as *Archetypes) Generation() ArchetypeGeneration {
	return ArchetypeGeneration(len(as.archetypes))
}

// Get returns the archetype of id, or nil when out of range.
func (as *Archetypes) Get(id ArchetypeID) *Archetype {
	if int(id) >= len(as.archetypes) {
		return nil
	}
	return as.archetypes[id]
}

func (as *Archetypes) get(id ArchetypeID) *Archetype { return as.archetypes[id] }

func (as *Archetypes) Empty() *Archetype { return as.archetypes[EmptyArchetypeID] }

// All returns every archetype in id order.
func (as *Archetypes) All() []*Archetype { return as.archetypes }

// getIDOrInsert returns the archetype for the given sorted component sets,
// creating it (and its archetype component ids) on first sight.
func (as *Archetypes) getIDOrInsert(tableID TableID, tableComponents, sparseComponents []ComponentID) (ArchetypeID, bool) {
	key := archetypeKey(tableComponents, sparseComponents)
	if id, ok := as.ids[key]; ok {
		return id, false
	}
	id := ArchetypeID(len(as.archetypes))
	a := &Archetype{
		id:                  id,
		tableID:             tableID,
		tableComponents:     slices.Clone(tableComponents),
		sparseSetComponents: slices.Clone(sparseComponents),
		components:          make(map[ComponentID]archetypeComponentInfo, len(tableComponents)+len(sparseComponents)),
		edges:               newEdges(),
	}
	for _, cid := range tableComponents {
		a.mask.Mark(uint32(cid))
		a.components[cid] = archetypeComponentInfo{storage: StorageTable, archetypeComponentID: as.nextArchetypeComponentID()}
	}
	for _, cid := range sparseComponents {
		a.mask.Mark(uint32(cid))
		a.components[cid] = archetypeComponentInfo{storage: StorageSparseSet, archetypeComponentID: as.nextArchetypeComponentID()}
	}
	as.archetypes = append(as.archetypes, a)
	as.ids[key] = id
	return id, true
}

func (as *Archetypes) nextArchetypeComponentID() ArchetypeComponentID {
	id := ArchetypeComponentID(as.archetypeComponentCount)
	as.archetypeComponentCount++
	return id
}

// ArchetypeComponentCount is the number of archetype component ids handed out.
func (as *Archetypes) ArchetypeComponentCount() int {
	return int(as.archetypeComponentCount)
}

func archetypeKey(tableComponents, sparseComponents []ComponentID) string {
	prefix := binary.LittleEndian.AppendUint32(nil, uint32(len(tableComponents)))
	return string(prefix) + componentSetKey(tableComponents) + componentSetKey(sparseComponents)
}
