package diff

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/schema"
)

func snapshotOf(t *testing.T, s schema.Snapshot) *schema.Snapshot {
	t.Helper()
	s.Version = schema.SnapshotVersion
	s.Dialect = "postgresql"
	s.Normalize()
	require.NoError(t, s.Validate())
	return &s
}

func TestPipeline_NoChanges(t *testing.T) {
	snap := snapshotOf(t, schema.Snapshot{
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{{Name: "id", Type: "serial", PrimaryKey: true}}},
		},
	})

	oracle := &scriptedOracle{}
	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(snap, snap)
	require.NoError(t, err)

	assert.True(t, diff.Empty())
	assert.Zero(t, oracle.calls)
}

func TestPipeline_CreatedTableSkipsColumnResolution(t *testing.T) {
	old := snapshotOf(t, schema.Snapshot{})
	updated := snapshotOf(t, schema.Snapshot{
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{{Name: "id", Type: "serial"}}},
		},
	})

	oracle := &scriptedOracle{}
	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(old, updated)
	require.NoError(t, err)

	require.Len(t, diff.Tables.Created, 1)
	assert.Empty(t, diff.Columns, "columns of a created table ship with the table")
	assert.Zero(t, oracle.calls, "fast paths everywhere: no prompt needed")
}

func TestPipeline_ColumnRenameAfterTableRename(t *testing.T) {
	old := snapshotOf(t, schema.Snapshot{
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{
				{Name: "id", Type: "serial"},
				{Name: "full_name", Type: "text"},
			}},
		},
	})
	updated := snapshotOf(t, schema.Snapshot{
		Tables: []schema.Table{
			{Name: "accounts", Columns: []schema.Column{
				{Name: "id", Type: "serial"},
				{Name: "display_name", Type: "text"},
			}},
		},
	})

	// First answer renames the table, second renames the column: the
	// column prompt only exists because the table identity settled first.
	oracle := &scriptedOracle{answers: []Choice{
		{Kind: ChoiceRename, Index: 0},
		{Kind: ChoiceRename, Index: 0},
	}}

	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(old, updated)
	require.NoError(t, err)

	require.Len(t, diff.Tables.Renamed, 1)
	assert.Equal(t, "users", diff.Tables.Renamed[0].From.Name)
	assert.Equal(t, "accounts", diff.Tables.Renamed[0].To.Name)

	colDelta, ok := diff.Columns["public.accounts"]
	require.True(t, ok, "column delta keyed by the new table identity")
	require.Len(t, colDelta.Renamed, 1)
	assert.Equal(t, "full_name", colDelta.Renamed[0].From.Name)
	assert.Equal(t, "display_name", colDelta.Renamed[0].To.Name)

	require.NotNil(t, diff.Meta)
	assert.Equal(t, "public.accounts", diff.Meta.Tables["public.users"])
	assert.Equal(t, "display_name", diff.Meta.Columns["public.users.full_name"])
}

func TestPipeline_SchemaRenameShieldsMembers(t *testing.T) {
	// The "auth" schema is renamed to "iam". Its table keeps its name, so
	// once the schema rename is settled the table must not be reported as
	// new, missing or moved.
	old := snapshotOf(t, schema.Snapshot{
		Schemas: []schema.NamedEntity{{Name: "auth"}},
		Tables: []schema.Table{
			{Name: "sessions", Schema: "auth", Columns: []schema.Column{{Name: "id", Type: "serial"}}},
		},
	})
	updated := snapshotOf(t, schema.Snapshot{
		Schemas: []schema.NamedEntity{{Name: "iam"}},
		Tables: []schema.Table{
			{Name: "sessions", Schema: "iam", Columns: []schema.Column{{Name: "id", Type: "serial"}}},
		},
	})

	oracle := &scriptedOracle{answers: []Choice{{Kind: ChoiceRename, Index: 0}}}

	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(old, updated)
	require.NoError(t, err)

	assert.Equal(t, 1, oracle.calls, "only the schema itself needed a prompt")
	require.Len(t, diff.Schemas.Renamed, 1)
	assert.True(t, diff.Tables.Empty())
	assert.Equal(t, "iam", diff.Meta.Schemas["auth"])
}

func TestPipeline_MovedTableColumnsFollow(t *testing.T) {
	old := snapshotOf(t, schema.Snapshot{
		Schemas: []schema.NamedEntity{{Name: "auth"}},
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{{Name: "id", Type: "serial"}}},
		},
	})
	updated := snapshotOf(t, schema.Snapshot{
		Schemas: []schema.NamedEntity{{Name: "auth"}},
		Tables: []schema.Table{
			{Name: "users", Schema: "auth", Columns: []schema.Column{
				{Name: "id", Type: "serial"},
				{Name: "email", Type: "text"},
			}},
		},
	})

	oracle := &scriptedOracle{answers: []Choice{{Kind: ChoiceRename, Index: 0}}}

	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(old, updated)
	require.NoError(t, err)

	require.Len(t, diff.Tables.Moved, 1)
	assert.Equal(t, "public", diff.Tables.Moved[0].SchemaFrom)
	assert.Equal(t, "auth", diff.Tables.Moved[0].SchemaTo)

	colDelta, ok := diff.Columns["auth.users"]
	require.True(t, ok, "moved table's columns are diffed under its new identity")
	require.Len(t, colDelta.Created, 1)
	assert.Equal(t, "email", colDelta.Created[0].Name)

	assert.Equal(t, "auth.users", diff.Meta.Tables["public.users"])
}

func TestPipeline_AbortDiscardsEverything(t *testing.T) {
	old := snapshotOf(t, schema.Snapshot{
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{{Name: "id", Type: "serial"}}},
		},
	})
	updated := snapshotOf(t, schema.Snapshot{
		Tables: []schema.Table{
			{Name: "accounts", Columns: []schema.Column{{Name: "id", Type: "serial"}}},
		},
	})

	oracle := &scriptedOracle{answers: []Choice{{Kind: ChoiceAbort}}}

	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(old, updated)
	assert.Error(t, err)
	assert.Nil(t, diff)
}

func TestPipeline_EnumAndSequenceCategories(t *testing.T) {
	old := snapshotOf(t, schema.Snapshot{
		Enums:     []schema.Enum{{Name: "status", Values: []string{"on", "off"}}},
		Sequences: []schema.Sequence{{Name: "order_seq"}},
	})
	updated := snapshotOf(t, schema.Snapshot{
		Enums:     []schema.Enum{{Name: "state", Values: []string{"on", "off"}}},
		Sequences: []schema.Sequence{{Name: "order_seq"}, {Name: "invoice_seq"}},
	})

	oracle := &scriptedOracle{answers: []Choice{{Kind: ChoiceRename, Index: 0}}}

	diff, err := NewPipeline(oracle, zerolog.Nop()).Diff(old, updated)
	require.NoError(t, err)

	require.Len(t, diff.Enums.Renamed, 1)
	assert.Equal(t, "public.state", diff.Meta.Enums["public.status"])
	require.Len(t, diff.Sequences.Created, 1)
	assert.Equal(t, "invoice_seq", diff.Sequences.Created[0].Name)
}
