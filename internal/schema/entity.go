package schema

// DefaultSchema is the namespace an entity belongs to when its snapshot
// omits one.
const DefaultSchema = "public"

// Entity is the minimal identity every schema object carries. Flat
// categories (database-wide namespaces, columns within one table) report
// an empty namespace.
type Entity interface {
	EntityName() string
	EntitySchema() string
}

// NamedEntity identifies a namespace-free schema object.
type NamedEntity struct {
	Name string `json:"name"`
}

func (e NamedEntity) EntityName() string   { return e.Name }
func (e NamedEntity) EntitySchema() string { return "" }

// NamespacedEntity identifies a schema object together with its owning
// namespace.
type NamespacedEntity struct {
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`
}

func (e NamespacedEntity) EntityName() string   { return e.Name }
func (e NamespacedEntity) EntitySchema() string { return e.Schema }

// Key returns the qualified identity used to match entities across two
// snapshot versions.
func (e NamespacedEntity) Key() string {
	return e.Schema + "." + e.Name
}

// Normalized returns a copy with the default namespace filled in. Two
// entities are namespace-equal only by exact string match after this.
func (e NamespacedEntity) Normalized() NamespacedEntity {
	if e.Schema == "" {
		e.Schema = DefaultSchema
	}
	return e
}
