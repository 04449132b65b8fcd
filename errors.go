package depot

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNoSuchEntity      = errors.New("no such entity")
	ErrMissingComponent  = errors.New("missing component")
	ErrComponentExists   = errors.New("component already registered")
	ErrWorldLocked       = errors.New("world is locked")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrQueryDoesNotMatch = errors.New("query does not match entity")
	ErrInvalidDescriptor = errors.New("invalid component descriptor")
)

// WorldLockedError is returned by structural changes attempted while a query
// iteration holds the world. Queue the change on Commands instead.
type WorldLockedError struct{}

func (e WorldLockedError) Error() string {
	return "world is currently locked by an active query"
}

func (e WorldLockedError) Is(target error) bool { return target == ErrWorldLocked }

type NoSuchEntityError struct {
	Entity Entity
}

func (e NoSuchEntityError) Error() string {
	return fmt.Sprintf("entity %v does not exist", e.Entity)
}

func (e NoSuchEntityError) Is(target error) bool { return target == ErrNoSuchEntity }

type MissingComponentError struct {
	Entity    Entity
	Component string
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("component %s does not exist on entity %v", e.Component, e.Entity)
}

func (e MissingComponentError) Is(target error) bool { return target == ErrMissingComponent }

type ComponentExistsError struct {
	Name string
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already registered: %s", e.Name)
}

func (e ComponentExistsError) Is(target error) bool { return target == ErrComponentExists }

type ResourceNotFoundError struct {
	Name string
}

func (e ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource does not exist: %s", e.Name)
}

func (e ResourceNotFoundError) Is(target error) bool { return target == ErrResourceNotFound }

// QueryDoesNotMatchError reports an entity that exists but is filtered out of a query.
type QueryDoesNotMatchError struct {
	Entity Entity
}

func (e QueryDoesNotMatchError) Error() string {
	return fmt.Sprintf("query does not match entity %v", e.Entity)
}

func (e QueryDoesNotMatchError) Is(target error) bool { return target == ErrQueryDoesNotMatch }
