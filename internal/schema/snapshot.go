package schema

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schemadrift/schemadrift/internal/drifterr"
)

// SnapshotVersion is the current snapshot document format version.
const SnapshotVersion = "1"

// Column describes one column of a table. Columns are identified by name
// within their owning table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
	NotNull    bool   `json:"notNull,omitempty"`
	Default    string `json:"default,omitempty"`
}

// Table describes one table and its ordered column list.
type Table struct {
	Name    string   `json:"name"`
	Schema  string   `json:"schema,omitempty"`
	Columns []Column `json:"columns"`
}

// Entity returns the table's identity record.
func (t Table) Entity() NamespacedEntity {
	return NamespacedEntity{Name: t.Name, Schema: t.Schema}
}

// Key returns the qualified identity of the table.
func (t Table) Key() string {
	return t.Schema + "." + t.Name
}

// Enum describes one enumerated type.
type Enum struct {
	Name   string   `json:"name"`
	Schema string   `json:"schema,omitempty"`
	Values []string `json:"values"`
}

// Entity returns the enum's identity record.
func (e Enum) Entity() NamespacedEntity {
	return NamespacedEntity{Name: e.Name, Schema: e.Schema}
}

// Key returns the qualified identity of the enum.
func (e Enum) Key() string {
	return e.Schema + "." + e.Name
}

// Sequence describes one sequence.
type Sequence struct {
	Name      string `json:"name"`
	Schema    string `json:"schema,omitempty"`
	StartWith int64  `json:"startWith,omitempty"`
	Increment int64  `json:"increment,omitempty"`
}

// Entity returns the sequence's identity record.
func (s Sequence) Entity() NamespacedEntity {
	return NamespacedEntity{Name: s.Name, Schema: s.Schema}
}

// Key returns the qualified identity of the sequence.
func (s Sequence) Key() string {
	return s.Schema + "." + s.Name
}

// Meta records the delta classification that produced a snapshot, keyed
// by stable identifiers. Future diffs read it to follow renames across
// versions.
type Meta struct {
	// Schemas maps old namespace name to new namespace name.
	Schemas map[string]string `json:"schemas,omitempty"`
	// Tables maps old qualified table key to new qualified table key.
	// Enum and sequence renames are recorded the same way under their
	// own maps.
	Tables    map[string]string `json:"tables,omitempty"`
	Enums     map[string]string `json:"enums,omitempty"`
	Sequences map[string]string `json:"sequences,omitempty"`
	// Columns maps "schema.table.column" to the new column name.
	Columns map[string]string `json:"columns,omitempty"`
}

// Snapshot is the full serialized state of a schema at one version,
// together with the classification metadata of the delta that produced it.
type Snapshot struct {
	Version   string        `json:"version"`
	Dialect   string        `json:"dialect"`
	ID        string        `json:"id"`
	PrevID    string        `json:"prevId,omitempty"`
	Schemas   []NamedEntity `json:"schemas"`
	Enums     []Enum        `json:"enums"`
	Sequences []Sequence    `json:"sequences"`
	Tables    []Table       `json:"tables"`
	Meta      *Meta         `json:"_meta,omitempty"`
}

// Empty returns the snapshot a schema has before any migration exists.
func Empty(dialect string) *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Dialect:   dialect,
		ID:        "00000000000000000000000000000000",
		Schemas:   []NamedEntity{},
		Enums:     []Enum{},
		Sequences: []Sequence{},
		Tables:    []Table{},
	}
}

// NewID generates a fresh snapshot identifier.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("failed to generate snapshot id: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Load reads a snapshot document from disk, normalizes namespaces and
// validates it structurally before returning.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, drifterr.WrapIOError("read", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a snapshot document.
func Parse(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, drifterr.WrapValidationError("", fmt.Sprintf("snapshot is not valid JSON: %v", err))
	}
	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Normalize fills default namespaces in on every namespaced entity.
func (s *Snapshot) Normalize() {
	for i := range s.Enums {
		if s.Enums[i].Schema == "" {
			s.Enums[i].Schema = DefaultSchema
		}
	}
	for i := range s.Sequences {
		if s.Sequences[i].Schema == "" {
			s.Sequences[i].Schema = DefaultSchema
		}
	}
	for i := range s.Tables {
		if s.Tables[i].Schema == "" {
			s.Tables[i].Schema = DefaultSchema
		}
	}
}

// Validate checks the snapshot for structural problems. It must pass
// before the snapshot takes part in a diff.
func (s *Snapshot) Validate() error {
	if s.Version == "" {
		return drifterr.WrapValidationError("version", "field is required")
	}
	if s.Dialect == "" {
		return drifterr.WrapValidationError("dialect", "field is required")
	}

	seenSchemas := make(map[string]bool, len(s.Schemas))
	for _, sc := range s.Schemas {
		if sc.Name == "" {
			return drifterr.WrapValidationError("schemas", "schema with empty name")
		}
		if seenSchemas[sc.Name] {
			return drifterr.WrapValidationError("schemas", fmt.Sprintf("duplicate schema '%s'", sc.Name))
		}
		seenSchemas[sc.Name] = true
	}

	seenEnums := make(map[string]bool, len(s.Enums))
	for _, e := range s.Enums {
		if e.Name == "" {
			return drifterr.WrapValidationError("enums", "enum with empty name")
		}
		if seenEnums[e.Key()] {
			return drifterr.WrapValidationError("enums", fmt.Sprintf("duplicate enum '%s'", e.Key()))
		}
		seenEnums[e.Key()] = true
		if len(e.Values) == 0 {
			return drifterr.WrapValidationError("enums", fmt.Sprintf("enum '%s' has no values", e.Key()))
		}
	}

	seenSequences := make(map[string]bool, len(s.Sequences))
	for _, sq := range s.Sequences {
		if sq.Name == "" {
			return drifterr.WrapValidationError("sequences", "sequence with empty name")
		}
		if seenSequences[sq.Key()] {
			return drifterr.WrapValidationError("sequences", fmt.Sprintf("duplicate sequence '%s'", sq.Key()))
		}
		seenSequences[sq.Key()] = true
	}

	seenTables := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		if t.Name == "" {
			return drifterr.WrapValidationError("tables", "table with empty name")
		}
		if seenTables[t.Key()] {
			return drifterr.WrapValidationError("tables", fmt.Sprintf("duplicate table '%s'", t.Key()))
		}
		seenTables[t.Key()] = true

		seenColumns := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if c.Name == "" {
				return drifterr.WrapValidationError("columns", fmt.Sprintf("table '%s' has a column with empty name", t.Key()))
			}
			if c.Type == "" {
				return drifterr.WrapValidationError("columns", fmt.Sprintf("column '%s.%s' has no type", t.Key(), c.Name))
			}
			if seenColumns[c.Name] {
				return drifterr.WrapValidationError("columns", fmt.Sprintf("duplicate column '%s' in table '%s'", c.Name, t.Key()))
			}
			seenColumns[c.Name] = true
		}
	}

	return nil
}

// Marshal serializes the snapshot for persistence inside a migration unit.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// TableByKey returns the table with the given qualified key, if present.
func (s *Snapshot) TableByKey(key string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Key() == key {
			return t, true
		}
	}
	return Table{}, false
}

// EnumByKey returns the enum with the given qualified key, if present.
func (s *Snapshot) EnumByKey(key string) (Enum, bool) {
	for _, e := range s.Enums {
		if e.Key() == key {
			return e, true
		}
	}
	return Enum{}, false
}

// SequenceByKey returns the sequence with the given qualified key, if present.
func (s *Snapshot) SequenceByKey(key string) (Sequence, bool) {
	for _, sq := range s.Sequences {
		if sq.Key() == key {
			return sq, true
		}
	}
	return Sequence{}, false
}
