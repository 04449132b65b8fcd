package depot

import (
	"encoding/binary"
	"slices"
	"unsafe"
)

// TableID indexes Tables. TableID 0 is the table with no columns.
type TableID uint32

const EmptyTableID TableID = 0

// Table stores the table-stored components of every entity whose archetype
// maps to it, one Column per component with rows aligned across columns.
type Table struct {
	id           TableID
	componentIDs []ComponentID
	columns      []*Column
	columnIndex  []int16 // by ComponentID; -1 when absent
	entities     []Entity
	capacity     int
}

// TableMoveResult reports where a row landed and which entity, if any, was
// swapped into the vacated source row.
type TableMoveResult struct {
	NewRow     int
	Swapped    Entity
	HasSwapped bool
}

func newTable(id TableID, ids []ComponentID, components *Components, capacity int) *Table {
	t := &Table{
		id:           id,
		componentIDs: slices.Clone(ids),
		capacity:     capacity,
		entities:     make([]Entity, 0, capacity),
	}
	for _, cid := range ids {
		t.addColumn(components.Info(cid))
	}
	return t
}

func (t *Table) addColumn(info *ComponentInfo) {
	for len(t.columnIndex) <= int(info.id) {
		t.columnIndex = append(t.columnIndex, -1)
	}
	t.columnIndex[info.id] = int16(len(t.columns))
	t.columns = append(t.columns, newColumn(info, t.capacity))
}

func (t *Table) ID() TableID                 { return t.id }
func (t *Table) Len() int                    { return len(t.entities) }
func (t *Table) IsEmpty() bool               { return len(t.entities) == 0 }
func (t *Table) Entities() []Entity          { return t.entities }
func (t *Table) ComponentIDs() []ComponentID { return t.componentIDs }

// Column returns the column of id, or nil when the table does not store it.
func (t *Table) Column(id ComponentID) *Column {
	if int(id) >= len(t.columnIndex) {
		return nil
	}
	idx := t.columnIndex[id]
	if idx < 0 {
		return nil
	}
	return t.columns[idx]
}

func (t *Table) HasColumn(id ComponentID) bool {
	return t.Column(id) != nil
}

// allocate appends a row for e; column slots are zero until written.
func (t *Table) allocate(e Entity) int {
	row := len(t.entities)
	t.entities = append(t.entities, e)
	for _, col := range t.columns {
		col.pushUninit()
	}
	return row
}

func (t *Table) reserve(additional int) {
	t.entities = slices.Grow(t.entities, additional)
	for _, col := range t.columns {
		col.reserve(additional)
	}
}

func (t *Table) swapRemoveEntity(row int) (Entity, bool) {
	last := len(t.entities) - 1
	t.entities[row] = t.entities[last]
	t.entities = t.entities[:last]
	if row == last {
		return Entity{}, false
	}
	return t.entities[row], true
}

// swapRemove drops every value of row and reports the entity moved into it.
func (t *Table) swapRemove(row int) (Entity, bool) {
	for _, col := range t.columns {
		col.swapRemove(row)
	}
	return t.swapRemoveEntity(row)
}

// moveToSuperset moves row into dst, which must hold every column of t.
// Columns only dst has stay zero for the caller to initialize.
func (t *Table) moveToSuperset(row int, dst *Table) TableMoveResult {
	newRow := dst.allocate(t.entities[row])
	for i, col := range t.columns {
		dstCol := dst.Column(t.componentIDs[i])
		p, flags := col.swapRemoveAndForget(row)
		dstCol.set(newRow, p, flags)
		col.releaseScratch()
	}
	swapped, has := t.swapRemoveEntity(row)
	return TableMoveResult{NewRow: newRow, Swapped: swapped, HasSwapped: has}
}

// moveToAndDropMissing moves row into dst, dropping values dst has no column for.
func (t *Table) moveToAndDropMissing(row int, dst *Table) TableMoveResult {
	return t.moveTo(row, dst, nil)
}

// moveToAndForgetMissing moves row into dst and hands each value dst has no
// column for to forget instead of dropping it. The pointer is only valid for
// the duration of the call.
func (t *Table) moveToAndForgetMissing(row int, dst *Table, forget func(ComponentID, unsafe.Pointer)) TableMoveResult {
	return t.moveTo(row, dst, forget)
}

func (t *Table) moveTo(row int, dst *Table, forget func(ComponentID, unsafe.Pointer)) TableMoveResult {
	newRow := dst.allocate(t.entities[row])
	for i, col := range t.columns {
		id := t.componentIDs[i]
		dstCol := dst.Column(id)
		switch {
		case dstCol != nil:
			p, flags := col.swapRemoveAndForget(row)
			dstCol.set(newRow, p, flags)
			col.releaseScratch()
		case forget != nil:
			p, _ := col.swapRemoveAndForget(row)
			forget(id, p)
			col.releaseScratch()
		default:
			col.swapRemove(row)
		}
	}
	swapped, has := t.swapRemoveEntity(row)
	return TableMoveResult{NewRow: newRow, Swapped: swapped, HasSwapped: has}
}

// clear drops every row and keeps the column allocations.
func (t *Table) clear() {
	for _, col := range t.columns {
		col.clear()
	}
	t.entities = t.entities[:0]
}

func (t *Table) clearFlags() {
	for _, col := range t.columns {
		col.clearFlags()
	}
}

// Tables owns every table of a world. Tables are never removed.
type Tables struct {
	tables   []*Table
	ids      map[string]TableID
	capacity int
}

func newTables(components *Components, capacity int) *Tables {
	ts := &Tables{
		ids:      make(map[string]TableID),
		capacity: capacity,
	}
	ts.tables = append(ts.tables, newTable(EmptyTableID, nil, components, capacity))
	ts.ids[componentSetKey(nil)] = EmptyTableID
	return ts
}

func (ts *Tables) Len() int { return len(ts.tables) }

// Get returns the table of id, or nil when out of range.
func (ts *Tables) Get(id TableID) *Table {
	if int(id) >= len(ts.tables) {
		return nil
	}
	return ts.tables[id]
}

func (ts *Tables) get(id TableID) *Table { return ts.tables[id] }

// getIDOrInsert returns the table for the sorted component set ids, creating
// it when new.
func (ts *Tables) getIDOrInsert(ids []ComponentID, components *Components) (TableID, bool) {
	key := componentSetKey(ids)
	if id, ok := ts.ids[key]; ok {
		return id, false
	}
	id := TableID(len(ts.tables))
	ts.tables = append(ts.tables, newTable(id, ids, components, ts.capacity))
	ts.ids[key] = id
	return id, true
}

func (ts *Tables) clear() {
	for _, t := range ts.tables {
		t.clear()
	}
}

func (ts *Tables) clearFlags() {
	for _, t := range ts.tables {
		t.clearFlags()
	}
}

// componentSetKey encodes a sorted id list as an exact map key.
func componentSetKey(ids []ComponentID) string {
	buf := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	}
	return string(buf)
}
