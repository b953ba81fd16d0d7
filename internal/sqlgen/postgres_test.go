package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/diff"
	"github.com/schemadrift/schemadrift/internal/schema"
)

func TestForDialect(t *testing.T) {
	g, err := ForDialect("postgresql")
	require.NoError(t, err)
	assert.IsType(t, Postgres{}, g)

	g, err = ForDialect("sqlite")
	require.NoError(t, err)
	assert.IsType(t, SQLite{}, g)

	_, err = ForDialect("oracle")
	assert.Error(t, err)
}

func TestPostgres_CreateTable(t *testing.T) {
	target := &schema.Snapshot{
		Version: "1",
		Dialect: "postgresql",
		Tables: []schema.Table{
			{Name: "users", Schema: "public", Columns: []schema.Column{
				{Name: "id", Type: "serial", PrimaryKey: true},
				{Name: "email", Type: "text", NotNull: true},
				{Name: "role", Type: "text", Default: "'member'"},
			}},
		},
	}
	d := &diff.SnapshotDiff{
		Tables: diff.Delta[schema.NamespacedEntity]{
			Created: []schema.NamespacedEntity{{Name: "users", Schema: "public"}},
		},
	}

	stmts, err := Postgres{}.Generate(d, target)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "CREATE TABLE \"public\".\"users\" (\n\t\"id\" serial PRIMARY KEY,\n\t\"email\" text NOT NULL,\n\t\"role\" text DEFAULT 'member'\n);", stmts[0])
}

func TestPostgres_RenameBeforeMove(t *testing.T) {
	// One table renamed and moved at once: it must be renamed inside its
	// old schema first, then moved under its new name.
	d := &diff.SnapshotDiff{
		Tables: diff.Delta[schema.NamespacedEntity]{
			Renamed: []diff.Rename[schema.NamespacedEntity]{
				{
					From: schema.NamespacedEntity{Name: "users", Schema: "public"},
					To:   schema.NamespacedEntity{Name: "accounts", Schema: "auth"},
				},
			},
			Moved: []diff.Move{
				{Name: "users", SchemaFrom: "public", SchemaTo: "auth"},
			},
		},
	}

	stmts, err := Postgres{}.Generate(d, &schema.Snapshot{Version: "1", Dialect: "postgresql"})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "public"."users" RENAME TO "accounts";`, stmts[0])
	assert.Equal(t, `ALTER TABLE "public"."accounts" SET SCHEMA "auth";`, stmts[1])
}

func TestPostgres_ColumnOperations(t *testing.T) {
	target := &schema.Snapshot{
		Version: "1",
		Dialect: "postgresql",
		Tables: []schema.Table{
			{Name: "users", Schema: "public", Columns: []schema.Column{
				{Name: "id", Type: "serial"},
				{Name: "display_name", Type: "text"},
				{Name: "created_at", Type: "timestamptz", NotNull: true},
			}},
		},
	}
	d := &diff.SnapshotDiff{
		ColumnOrder: []string{"public.users"},
		Columns: map[string]diff.Delta[schema.NamedEntity]{
			"public.users": {
				Created: []schema.NamedEntity{{Name: "created_at"}},
				Deleted: []schema.NamedEntity{{Name: "legacy"}},
				Renamed: []diff.Rename[schema.NamedEntity]{
					{From: schema.NamedEntity{Name: "full_name"}, To: schema.NamedEntity{Name: "display_name"}},
				},
			},
		},
	}

	stmts, err := Postgres{}.Generate(d, target)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, `ALTER TABLE "public"."users" RENAME COLUMN "full_name" TO "display_name";`, stmts[0])
	assert.Equal(t, `ALTER TABLE "public"."users" ADD COLUMN "created_at" timestamptz NOT NULL;`, stmts[1])
	assert.Equal(t, `ALTER TABLE "public"."users" DROP COLUMN "legacy";`, stmts[2])
}

func TestPostgres_EnumsSequencesSchemas(t *testing.T) {
	target := &schema.Snapshot{
		Version:   "1",
		Dialect:   "postgresql",
		Enums:     []schema.Enum{{Name: "status", Schema: "public", Values: []string{"on", "off"}}},
		Sequences: []schema.Sequence{{Name: "order_seq", Schema: "public", StartWith: 100, Increment: 5}},
	}
	d := &diff.SnapshotDiff{
		Schemas: diff.Delta[schema.NamedEntity]{
			Created: []schema.NamedEntity{{Name: "auth"}, {Name: "public"}},
			Deleted: []schema.NamedEntity{{Name: "old_app"}},
		},
		Enums: diff.Delta[schema.NamespacedEntity]{
			Created: []schema.NamespacedEntity{{Name: "status", Schema: "public"}},
		},
		Sequences: diff.Delta[schema.NamespacedEntity]{
			Created: []schema.NamespacedEntity{{Name: "order_seq", Schema: "public"}},
		},
	}

	stmts, err := Postgres{}.Generate(d, target)
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Equal(t, `CREATE SCHEMA "auth";`, stmts[0], "the default schema is never created")
	assert.Equal(t, `CREATE TYPE "public"."status" AS ENUM ('on', 'off');`, stmts[1])
	assert.Equal(t, `CREATE SEQUENCE "public"."order_seq" INCREMENT BY 5 START WITH 100;`, stmts[2])
	assert.Equal(t, `DROP SCHEMA "old_app";`, stmts[3])
}

func TestPostgres_DropsComeLast(t *testing.T) {
	target := &schema.Snapshot{
		Version: "1",
		Dialect: "postgresql",
		Tables: []schema.Table{
			{Name: "fresh", Schema: "public", Columns: []schema.Column{{Name: "id", Type: "int"}}},
		},
	}
	d := &diff.SnapshotDiff{
		Tables: diff.Delta[schema.NamespacedEntity]{
			Created: []schema.NamespacedEntity{{Name: "fresh", Schema: "public"}},
			Deleted: []schema.NamespacedEntity{{Name: "stale", Schema: "public"}},
		},
	}

	stmts, err := Postgres{}.Generate(d, target)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE")
	assert.Equal(t, `DROP TABLE "public"."stale";`, stmts[1])
}

func TestSQLite_RejectsUnsupportedCategories(t *testing.T) {
	tests := []struct {
		name string
		d    *diff.SnapshotDiff
	}{
		{
			name: "schemas",
			d: &diff.SnapshotDiff{
				Schemas: diff.Delta[schema.NamedEntity]{Created: []schema.NamedEntity{{Name: "auth"}}},
			},
		},
		{
			name: "enums",
			d: &diff.SnapshotDiff{
				Enums: diff.Delta[schema.NamespacedEntity]{Created: []schema.NamespacedEntity{{Name: "status"}}},
			},
		},
		{
			name: "sequences",
			d: &diff.SnapshotDiff{
				Sequences: diff.Delta[schema.NamespacedEntity]{Deleted: []schema.NamespacedEntity{{Name: "seq"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SQLite{}.Generate(tt.d, &schema.Snapshot{Version: "1", Dialect: "sqlite"})
			assert.Error(t, err)
		})
	}
}

func TestSQLite_TableAndColumnStatements(t *testing.T) {
	target := &schema.Snapshot{
		Version: "1",
		Dialect: "sqlite",
		Tables: []schema.Table{
			{Name: "notes", Schema: "public", Columns: []schema.Column{
				{Name: "id", Type: "integer", PrimaryKey: true},
				{Name: "body", Type: "text"},
			}},
		},
	}
	d := &diff.SnapshotDiff{
		Tables: diff.Delta[schema.NamespacedEntity]{
			Created: []schema.NamespacedEntity{{Name: "notes", Schema: "public"}},
		},
	}

	stmts, err := SQLite{}.Generate(d, target)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "CREATE TABLE \"notes\" (\n\t\"id\" integer PRIMARY KEY,\n\t\"body\" text\n);", stmts[0])
}
