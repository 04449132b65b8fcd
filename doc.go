/*
Package depot provides archetype-based storage and querying for an
Entity-Component-System (ECS).

Entities are generational handles. Components are plain Go values registered
with a World, stored either densely in tables (one column per component type,
one row per entity) or in per-component sparse sets. The set of components an
entity has is its archetype; archetypes sharing the same table-stored
components share a table, and an archetype graph caches where an insert or
remove moves an entity.

Core Concepts:

  - Entity: a generational index; stale handles are rejected.
  - Component: a value type described by a ComponentDescriptor.
  - Table: column storage for one set of table components.
  - Archetype: the full component set of a group of entities.
  - Bundle: an ordered set of components inserted or removed together.
  - QueryState: cached archetype matching plus declared access.
  - Commands: structural changes recorded now and applied later.

Basic Usage:

	world := depot.NewWorld()

	depot.Spawn2(world, Position{X: 0}, Velocity{X: 1})
	depot.Spawn1(world, Position{X: 5})

	moving := depot.NewQuery2[Position, Velocity](world, depot.Modes(depot.Write, depot.Read))
	moving.ForEachMut(world, func(e depot.Entity, pos *Position, vel *Velocity) {
		pos.X += vel.X
	})

Cursor-based iteration mirrors the typed queries for code that works with
component handles:

	position := depot.FactoryNewComponent[Position](world)
	state := depot.Factory.NewQueryState(world, []depot.FetchTerm{position.Write()})
	cursor := depot.Factory.NewCursor(state, world)
	for cursor.Next() {
		position.GetFromCursor(cursor).X++
	}

Change detection works per component row: inserts set the added flag, mutable
fetches set the mutated flag, and World.ClearTrackers resets both.
*/
package depot
