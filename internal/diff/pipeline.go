package diff

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/schemadrift/schemadrift/internal/schema"
)

// SnapshotDiff is the classified difference between two schema snapshots,
// one delta per category plus one per changed table's columns.
type SnapshotDiff struct {
	Schemas   Delta[schema.NamedEntity]
	Enums     Delta[schema.NamespacedEntity]
	Sequences Delta[schema.NamespacedEntity]
	Tables    Delta[schema.NamespacedEntity]

	// Columns holds per-table column deltas keyed by the table's key in
	// the new snapshot. ColumnOrder preserves table iteration order.
	Columns     map[string]Delta[schema.NamedEntity]
	ColumnOrder []string

	// Meta is the classification metadata to embed into the new
	// snapshot, keyed by the identifiers of the old snapshot.
	Meta *schema.Meta
}

// Empty reports whether nothing changed between the two snapshots.
func (d *SnapshotDiff) Empty() bool {
	if !d.Schemas.Empty() || !d.Enums.Empty() || !d.Sequences.Empty() || !d.Tables.Empty() {
		return false
	}
	return len(d.Columns) == 0
}

// Pipeline resolves a full snapshot pair category by category. Namespaces
// go first so that the remaining categories compare membership against
// post-rename namespace names; columns go last, per table, once that
// table's identity is settled.
type Pipeline struct {
	oracle Oracle
	logger zerolog.Logger
}

// NewPipeline creates a pipeline around the given oracle.
func NewPipeline(oracle Oracle, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		oracle: oracle,
		logger: logger,
	}
}

// Diff resolves the difference between two validated snapshots. Any abort
// or resolution failure discards all partially resolved categories.
func (p *Pipeline) Diff(oldSnap, newSnap *schema.Snapshot) (*SnapshotDiff, error) {
	diff := &SnapshotDiff{
		Columns: make(map[string]Delta[schema.NamedEntity]),
		Meta:    &schema.Meta{},
	}

	var err error
	if diff.Schemas, err = p.resolveSchemas(oldSnap, newSnap); err != nil {
		return nil, err
	}

	// Schema renames settled above feed namespace mapping for everything
	// below.
	schemaRenames := make(map[string]string, len(diff.Schemas.Renamed))
	for _, r := range diff.Schemas.Renamed {
		schemaRenames[r.From.Name] = r.To.Name
		if diff.Meta.Schemas == nil {
			diff.Meta.Schemas = make(map[string]string)
		}
		diff.Meta.Schemas[r.From.Name] = r.To.Name
	}

	enumEntities := func(s *schema.Snapshot) []schema.NamespacedEntity {
		out := make([]schema.NamespacedEntity, len(s.Enums))
		for i, e := range s.Enums {
			out[i] = e.Entity()
		}
		return out
	}
	seqEntities := func(s *schema.Snapshot) []schema.NamespacedEntity {
		out := make([]schema.NamespacedEntity, len(s.Sequences))
		for i, sq := range s.Sequences {
			out[i] = sq.Entity()
		}
		return out
	}
	tableEntities := func(s *schema.Snapshot) []schema.NamespacedEntity {
		out := make([]schema.NamespacedEntity, len(s.Tables))
		for i, t := range s.Tables {
			out[i] = t.Entity()
		}
		return out
	}

	if diff.Enums, diff.Meta.Enums, err = p.resolveNamespaced("enum", enumEntities(oldSnap), enumEntities(newSnap), schemaRenames); err != nil {
		return nil, err
	}
	if diff.Sequences, diff.Meta.Sequences, err = p.resolveNamespaced("sequence", seqEntities(oldSnap), seqEntities(newSnap), schemaRenames); err != nil {
		return nil, err
	}
	if diff.Tables, diff.Meta.Tables, err = p.resolveNamespaced("table", tableEntities(oldSnap), tableEntities(newSnap), schemaRenames); err != nil {
		return nil, err
	}

	if err := p.resolveColumns(oldSnap, newSnap, diff, schemaRenames); err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("schemas_created", len(diff.Schemas.Created)).
		Int("tables_created", len(diff.Tables.Created)).
		Int("tables_renamed", len(diff.Tables.Renamed)).
		Int("tables_moved", len(diff.Tables.Moved)).
		Int("tables_deleted", len(diff.Tables.Deleted)).
		Int("tables_with_column_changes", len(diff.Columns)).
		Msg("Snapshot diff resolved")

	return diff, nil
}

func (p *Pipeline) resolveSchemas(oldSnap, newSnap *schema.Snapshot) (Delta[schema.NamedEntity], error) {
	oldNames := make(map[string]bool, len(oldSnap.Schemas))
	for _, s := range oldSnap.Schemas {
		oldNames[s.Name] = true
	}
	newNames := make(map[string]bool, len(newSnap.Schemas))
	for _, s := range newSnap.Schemas {
		newNames[s.Name] = true
	}

	var newSet, missingSet []schema.NamedEntity
	for _, s := range newSnap.Schemas {
		if !oldNames[s.Name] {
			newSet = append(newSet, s)
		}
	}
	for _, s := range oldSnap.Schemas {
		if !newNames[s.Name] {
			missingSet = append(missingSet, s)
		}
	}

	return Resolve("schema", newSet, missingSet, p.oracle)
}

// resolveNamespaced diffs one namespaced category. Old entities are
// compared under their post-rename namespace so that a table owned by a
// renamed schema does not show up as moved. The returned meta map is
// keyed by the entity's identity in the old snapshot.
func (p *Pipeline) resolveNamespaced(category string, oldEntities, newEntities []schema.NamespacedEntity, schemaRenames map[string]string) (Delta[schema.NamespacedEntity], map[string]string, error) {
	// Identity of each old entity after applying settled schema renames,
	// and a way back to the original key for the meta record.
	origKeys := make(map[string]string, len(oldEntities))
	mapped := make([]schema.NamespacedEntity, len(oldEntities))
	for i, e := range oldEntities {
		m := e
		if to, ok := schemaRenames[e.Schema]; ok {
			m.Schema = to
		}
		mapped[i] = m
		origKeys[m.Key()] = e.Key()
	}

	oldByKey := make(map[string]bool, len(mapped))
	for _, e := range mapped {
		oldByKey[e.Key()] = true
	}
	newByKey := make(map[string]bool, len(newEntities))
	for _, e := range newEntities {
		newByKey[e.Key()] = true
	}

	var newSet, missingSet []schema.NamespacedEntity
	for _, e := range newEntities {
		if !oldByKey[e.Key()] {
			newSet = append(newSet, e)
		}
	}
	for _, e := range mapped {
		if !newByKey[e.Key()] {
			missingSet = append(missingSet, e)
		}
	}

	delta, err := Resolve(category, newSet, missingSet, p.oracle)
	if err != nil {
		return Delta[schema.NamespacedEntity]{}, nil, err
	}

	orig := func(key string) string {
		if o, ok := origKeys[key]; ok {
			return o
		}
		return key
	}

	var meta map[string]string
	record := func(fromKey, toKey string) {
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[orig(fromKey)] = toKey
	}
	for _, r := range delta.Renamed {
		record(r.From.Key(), r.To.Key())
	}
	for _, m := range delta.Moved {
		from := schema.NamespacedEntity{Name: m.Name, Schema: m.SchemaFrom}
		if renamedFrom(delta, from) {
			continue // already recorded with its new name
		}
		record(from.Key(), schema.NamespacedEntity{Name: m.Name, Schema: m.SchemaTo}.Key())
	}

	return delta, meta, nil
}

func renamedFrom(delta Delta[schema.NamespacedEntity], from schema.NamespacedEntity) bool {
	for _, r := range delta.Renamed {
		if r.From.Key() == from.Key() {
			return true
		}
	}
	return false
}

// resolveColumns diffs the columns of every table that exists on both
// sides, following table renames and moves to find each new table's old
// counterpart.
func (p *Pipeline) resolveColumns(oldSnap, newSnap *schema.Snapshot, diff *SnapshotDiff, schemaRenames map[string]string) error {
	created := make(map[string]bool, len(diff.Tables.Created))
	for _, t := range diff.Tables.Created {
		created[t.Key()] = true
	}

	// New table key -> old table key, for tables matched by rename/move.
	matchedFrom := make(map[string]string)
	for _, r := range diff.Tables.Renamed {
		matchedFrom[r.To.Key()] = r.From.Key()
	}
	for _, m := range diff.Tables.Moved {
		from := schema.NamespacedEntity{Name: m.Name, Schema: m.SchemaFrom}
		if renamedFrom(diff.Tables, from) {
			continue
		}
		matchedFrom[schema.NamespacedEntity{Name: m.Name, Schema: m.SchemaTo}.Key()] = from.Key()
	}

	// Old tables are looked up by their post-rename namespace, matching
	// how table resolution compared them.
	oldByMappedKey := make(map[string]schema.Table, len(oldSnap.Tables))
	origTableKey := make(map[string]string, len(oldSnap.Tables))
	for _, t := range oldSnap.Tables {
		mapped := t.Entity()
		if to, ok := schemaRenames[mapped.Schema]; ok {
			mapped.Schema = to
		}
		oldByMappedKey[mapped.Key()] = t
		origTableKey[mapped.Key()] = t.Key()
	}

	for _, newTable := range newSnap.Tables {
		newKey := newTable.Key()
		if created[newKey] {
			continue // columns ship with the CREATE TABLE
		}

		oldKey := newKey
		if from, ok := matchedFrom[newKey]; ok {
			oldKey = from
		}
		oldTable, ok := oldByMappedKey[oldKey]
		if !ok {
			return fmt.Errorf("table '%s' resolved against unknown prior table '%s'", newKey, oldKey)
		}

		oldCols := make(map[string]bool, len(oldTable.Columns))
		for _, c := range oldTable.Columns {
			oldCols[c.Name] = true
		}
		newCols := make(map[string]bool, len(newTable.Columns))
		for _, c := range newTable.Columns {
			newCols[c.Name] = true
		}

		var newSet, missingSet []schema.NamedEntity
		for _, c := range newTable.Columns {
			if !oldCols[c.Name] {
				newSet = append(newSet, schema.NamedEntity{Name: c.Name})
			}
		}
		for _, c := range oldTable.Columns {
			if !newCols[c.Name] {
				missingSet = append(missingSet, schema.NamedEntity{Name: c.Name})
			}
		}
		if len(newSet) == 0 && len(missingSet) == 0 {
			continue
		}

		category := fmt.Sprintf("column in table '%s'", newKey)
		delta, err := Resolve(category, newSet, missingSet, p.oracle)
		if err != nil {
			return err
		}
		if delta.Empty() {
			continue
		}

		diff.Columns[newKey] = delta
		diff.ColumnOrder = append(diff.ColumnOrder, newKey)

		for _, r := range delta.Renamed {
			if diff.Meta.Columns == nil {
				diff.Meta.Columns = make(map[string]string)
			}
			origKey := origTableKey[oldKey]
			diff.Meta.Columns[origKey+"."+r.From.Name] = r.To.Name
		}
	}

	return nil
}
