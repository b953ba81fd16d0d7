package diff

// Ref is the identity of an entity as shown to the oracle. Schema is
// empty for flat categories.
type Ref struct {
	Name   string
	Schema string
}

// String renders the ref the way prompts and logs display it.
func (r Ref) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// ChoiceKind enumerates the answers an oracle may give.
type ChoiceKind int

const (
	// ChoiceCreate classifies the candidate as a new entity.
	ChoiceCreate ChoiceKind = iota
	// ChoiceRename classifies the candidate as renamed or moved from one
	// of the offered options.
	ChoiceRename
	// ChoiceAbort cancels the entire resolution.
	ChoiceAbort
)

// Choice is one oracle answer. Index selects the rename source and is
// meaningful only when Kind is ChoiceRename.
type Choice struct {
	Kind  ChoiceKind
	Index int
}

// Oracle disambiguates a candidate creation against an ordered list of
// rename options. The resolver makes no assumption about how the answer
// is produced: interactive terminal, scripted test double or heuristic.
type Oracle interface {
	// Choose returns exactly one choice for the candidate. The "treat as
	// new" answer is always available; options holds the rename sources
	// in the order they must be offered. An error aborts resolution the
	// same way a ChoiceAbort answer does.
	Choose(category string, candidate Ref, options []Ref) (Choice, error)
}

// AutoCreate is the non-interactive oracle: every candidate is a new
// entity, so every leftover is a deletion. Used when rename detection is
// explicitly switched off.
type AutoCreate struct{}

// Choose always answers "create".
func (AutoCreate) Choose(string, Ref, []Ref) (Choice, error) {
	return Choice{Kind: ChoiceCreate}, nil
}
