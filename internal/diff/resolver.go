package diff

import (
	"fmt"

	"github.com/schemadrift/schemadrift/internal/drifterr"
	"github.com/schemadrift/schemadrift/internal/schema"
)

// Rename records one accepted identity mapping between a missing entity
// and a new one.
type Rename[T schema.Entity] struct {
	From T
	To   T
}

// Move records an entity that changed namespace. Name is the entity's
// name before any simultaneous rename.
type Move struct {
	Name       string
	SchemaFrom string
	SchemaTo   string
}

// Delta is the classified difference between two entity sets of one
// category. Every element of the original new set appears in exactly one
// of Created or as the To of one Renamed entry; every element of the
// missing set appears in Deleted or as the From of one matched pair.
type Delta[T schema.Entity] struct {
	Created []T
	Deleted []T
	Renamed []Rename[T]
	Moved   []Move
}

// Empty reports whether the delta classifies no changes at all.
func (d Delta[T]) Empty() bool {
	return len(d.Created) == 0 && len(d.Deleted) == 0 && len(d.Renamed) == 0 && len(d.Moved) == 0
}

// Resolve classifies the new and missing entity sets of one category into
// a delta, consulting the oracle for each ambiguous candidate. It owns no
// state across calls: the result is a pure function of its inputs and the
// oracle's answers.
//
// When either side is empty no renames are possible, so the sets are
// returned as-is with zero oracle calls. Otherwise candidates are taken
// from newSet in order, each offered against the still-unconsumed missing
// pool; a consumed missing entity is never offered again. Whatever
// remains in the pool afterwards is deleted.
//
// An abort answer from the oracle cancels the whole resolution: the
// returned error wraps drifterr.ErrAborted and no partial delta is kept.
func Resolve[T schema.Entity](category string, newSet, missingSet []T, oracle Oracle) (Delta[T], error) {
	delta := Delta[T]{}

	if len(newSet) == 0 || len(missingSet) == 0 {
		delta.Created = append(delta.Created, newSet...)
		delta.Deleted = append(delta.Deleted, missingSet...)
		return delta, nil
	}

	pool := newPool(missingSet)
	for _, candidate := range newSet {
		options := pool.remaining()
		if len(options) == 0 {
			// Pool exhausted: no rename source left to offer.
			delta.Created = append(delta.Created, candidate)
			continue
		}

		refs := make([]Ref, len(options))
		for i, opt := range options {
			refs[i] = Ref{Name: opt.EntityName(), Schema: opt.EntitySchema()}
		}

		choice, err := oracle.Choose(category, Ref{Name: candidate.EntityName(), Schema: candidate.EntitySchema()}, refs)
		if err != nil {
			return Delta[T]{}, fmt.Errorf("failed to resolve %s '%s': %w", category, candidate.EntityName(), err)
		}

		switch choice.Kind {
		case ChoiceCreate:
			delta.Created = append(delta.Created, candidate)

		case ChoiceRename:
			if choice.Index < 0 || choice.Index >= len(options) {
				return Delta[T]{}, fmt.Errorf("oracle chose rename option %d of %d for %s '%s'", choice.Index, len(options), category, candidate.EntityName())
			}
			from := options[choice.Index]
			pool.remove(from)
			if from.EntityName() != candidate.EntityName() {
				delta.Renamed = append(delta.Renamed, Rename[T]{From: from, To: candidate})
			}
			if from.EntitySchema() != candidate.EntitySchema() {
				delta.Moved = append(delta.Moved, Move{
					Name:       from.EntityName(),
					SchemaFrom: from.EntitySchema(),
					SchemaTo:   candidate.EntitySchema(),
				})
			}

		case ChoiceAbort:
			return Delta[T]{}, fmt.Errorf("while resolving %s '%s': %w", category, candidate.EntityName(), drifterr.ErrAborted)

		default:
			return Delta[T]{}, fmt.Errorf("oracle returned unknown choice %d for %s '%s'", choice.Kind, category, candidate.EntityName())
		}
	}

	delta.Deleted = append(delta.Deleted, pool.remaining()...)
	return delta, nil
}
