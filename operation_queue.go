package depot

import (
	"errors"
	"fmt"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

type operationType int

const (
	opSpawn operationType = iota
	opDespawn
	opInsert
	opRemove
	opRemoveIntersection
)

type operation struct {
	typ      operationType
	entity   Entity
	values   []any
	ids      []ComponentID
	canceled bool
}

// Commands queues structural changes so they can be recorded while queries
// hold the world and applied afterwards. Apply runs spawns first, then
// component changes in the order they were queued, then despawns. Queuing a
// despawn cancels the component changes already queued for that entity.
type Commands struct {
	world          *World
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy *intmap.Map[uint64, struct{}]
	pendingMods    *intmap.Map[uint64, []int]
}

func NewCommands(w *World) *Commands {
	return &Commands{
		world:          w,
		pendingDestroy: intmap.New[uint64, struct{}](16),
		pendingMods:    intmap.New[uint64, []int](16),
	}
}

// Len is the number of queued operations.
func (c *Commands) Len() int {
	return len(c.createOps) + len(c.componentOps) + len(c.destroyOps)
}

// Spawn reserves an entity and queues its components. The returned handle
// can be used in further commands right away; it resolves once applied.
func (c *Commands) Spawn(values ...any) Entity {
	e := c.world.entities.Reserve()
	c.createOps = append(c.createOps, operation{typ: opSpawn, entity: e, values: values})
	return e
}

func (c *Commands) Insert(e Entity, values ...any) {
	c.enqueueComponentOp(operation{typ: opInsert, entity: e, values: values})
}

// Remove queues an all-or-nothing removal of ids.
func (c *Commands) Remove(e Entity, ids ...ComponentID) {
	c.enqueueComponentOp(operation{typ: opRemove, entity: e, ids: ids})
}

func (c *Commands) RemoveIntersection(e Entity, ids ...ComponentID) {
	c.enqueueComponentOp(operation{typ: opRemoveIntersection, entity: e, ids: ids})
}

func (c *Commands) enqueueComponentOp(op operation) {
	key := op.entity.Bits()
	// If entity is pending destroy, ignore component operations
	if c.pendingDestroy.Has(key) {
		return
	}
	mods, _ := c.pendingMods.Get(key)
	c.pendingMods.Put(key, append(mods, len(c.componentOps)))
	c.componentOps = append(c.componentOps, op)
}

func (c *Commands) Despawn(entities ...Entity) {
	for _, e := range entities {
		key := e.Bits()
		if c.pendingDestroy.Has(key) {
			continue
		}
		c.pendingDestroy.Put(key, struct{}{})
		if mods, ok := c.pendingMods.Get(key); ok {
			for _, idx := range mods {
				c.componentOps[idx].canceled = true
			}
			c.pendingMods.Del(key)
		}
		c.destroyOps = append(c.destroyOps, operation{typ: opDespawn, entity: e})
	}
}

// Apply runs every queued operation against w and empties the queue. Failing
// operations do not stop the rest; their errors are joined. A locked world
// keeps the queue intact and returns WorldLockedError.
func (c *Commands) Apply(w *World) error {
	if w != c.world {
		panic(fmt.Sprintf("depot: commands recorded for world %d applied to world %d", c.world.id, w.id))
	}
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	w.flush()
	if c.Len() == 0 {
		return nil
	}

	var errs []error
	// Process creates first
	for _, op := range c.createOps {
		if len(op.values) == 0 {
			continue
		}
		if err := w.Insert(op.entity, op.values...); err != nil {
			errs = append(errs, eris.Wrapf(err, "failed to apply queued spawn of %v", op.entity))
		}
	}
	for _, op := range c.componentOps {
		if op.canceled {
			continue
		}
		var err error
		switch op.typ {
		case opInsert:
			err = w.Insert(op.entity, op.values...)
		case opRemove:
			err = w.RemoveIDs(op.entity, op.ids...)
		case opRemoveIntersection:
			err = w.RemoveIntersection(op.entity, op.ids...)
		}
		if err != nil {
			errs = append(errs, eris.Wrapf(err, "failed to apply queued component change on %v", op.entity))
		}
	}
	// Process destroys last
	for _, op := range c.destroyOps {
		if err := w.Despawn(op.entity); err != nil {
			errs = append(errs, eris.Wrapf(err, "failed to apply queued despawn of %v", op.entity))
		}
	}
	w.logger.Debug().
		Int("spawned", len(c.createOps)).
		Int("component_ops", len(c.componentOps)).
		Int("despawned", len(c.destroyOps)).
		Int("errors", len(errs)).
		Msg("commands applied")

	c.createOps = c.createOps[:0]
	c.componentOps = c.componentOps[:0]
	c.destroyOps = c.destroyOps[:0]
	c.pendingDestroy.Clear()
	c.pendingMods.Clear()
	return errors.Join(errs...)
}
