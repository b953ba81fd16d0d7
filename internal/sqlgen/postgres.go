// Package sqlgen synthesizes SQL statements from a classified snapshot
// diff. The delta resolution core consumes it through the Generator
// interface and makes no assumption about statement semantics.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/schemadrift/schemadrift/internal/diff"
	"github.com/schemadrift/schemadrift/internal/schema"
)

// Generator turns a classified diff into an ordered list of statements.
// target is the snapshot the statements converge on; generators read it
// for definitions the delta alone does not carry (column types, enum
// values).
type Generator interface {
	Generate(d *diff.SnapshotDiff, target *schema.Snapshot) ([]string, error)
}

// ForDialect returns the generator for a config dialect.
func ForDialect(dialect string) (Generator, error) {
	switch dialect {
	case "postgresql", "postgres":
		return Postgres{}, nil
	case "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("no statement generator for dialect '%s'", dialect)
	}
}

// Postgres generates PostgreSQL DDL. Creations and renames come first,
// drops last, so statements that reference renamed objects see their
// final names.
type Postgres struct{}

// Generate implements Generator.
func (g Postgres) Generate(d *diff.SnapshotDiff, target *schema.Snapshot) ([]string, error) {
	var stmts []string

	for _, s := range d.Schemas.Created {
		if s.Name == schema.DefaultSchema {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA %s;", pq.QuoteIdentifier(s.Name)))
	}
	for _, r := range d.Schemas.Renamed {
		stmts = append(stmts, fmt.Sprintf("ALTER SCHEMA %s RENAME TO %s;", pq.QuoteIdentifier(r.From.Name), pq.QuoteIdentifier(r.To.Name)))
	}

	for _, e := range d.Enums.Created {
		enum, ok := target.EnumByKey(e.Key())
		if !ok {
			return nil, fmt.Errorf("created enum '%s' missing from target snapshot", e.Key())
		}
		values := make([]string, len(enum.Values))
		for i, v := range enum.Values {
			values[i] = pq.QuoteLiteral(v)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);", qualified(enum.Schema, enum.Name), strings.Join(values, ", ")))
	}
	stmts = append(stmts, renameAndMove(d.Enums, "TYPE")...)

	for _, s := range d.Sequences.Created {
		seq, ok := target.SequenceByKey(s.Key())
		if !ok {
			return nil, fmt.Errorf("created sequence '%s' missing from target snapshot", s.Key())
		}
		stmt := fmt.Sprintf("CREATE SEQUENCE %s", qualified(seq.Schema, seq.Name))
		if seq.Increment != 0 {
			stmt += fmt.Sprintf(" INCREMENT BY %d", seq.Increment)
		}
		if seq.StartWith != 0 {
			stmt += fmt.Sprintf(" START WITH %d", seq.StartWith)
		}
		stmts = append(stmts, stmt+";")
	}
	stmts = append(stmts, renameAndMove(d.Sequences, "SEQUENCE")...)

	for _, t := range d.Tables.Created {
		table, ok := target.TableByKey(t.Key())
		if !ok {
			return nil, fmt.Errorf("created table '%s' missing from target snapshot", t.Key())
		}
		stmts = append(stmts, createTable(table))
	}
	stmts = append(stmts, renameAndMove(d.Tables, "TABLE")...)

	for _, tableKey := range d.ColumnOrder {
		table, ok := target.TableByKey(tableKey)
		if !ok {
			return nil, fmt.Errorf("changed table '%s' missing from target snapshot", tableKey)
		}
		delta := d.Columns[tableKey]
		qualifiedTable := qualified(table.Schema, table.Name)

		for _, r := range delta.Renamed {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", qualifiedTable, pq.QuoteIdentifier(r.From.Name), pq.QuoteIdentifier(r.To.Name)))
		}
		for _, c := range delta.Created {
			col, ok := columnByName(table, c.Name)
			if !ok {
				return nil, fmt.Errorf("created column '%s' missing from table '%s'", c.Name, tableKey)
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", qualifiedTable, columnDef(col)))
		}
		for _, c := range delta.Deleted {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", qualifiedTable, pq.QuoteIdentifier(c.Name)))
		}
	}

	for _, t := range d.Tables.Deleted {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE %s;", qualified(t.Schema, t.Name)))
	}
	for _, s := range d.Sequences.Deleted {
		stmts = append(stmts, fmt.Sprintf("DROP SEQUENCE %s;", qualified(s.Schema, s.Name)))
	}
	for _, e := range d.Enums.Deleted {
		stmts = append(stmts, fmt.Sprintf("DROP TYPE %s;", qualified(e.Schema, e.Name)))
	}
	for _, s := range d.Schemas.Deleted {
		stmts = append(stmts, fmt.Sprintf("DROP SCHEMA %s;", pq.QuoteIdentifier(s.Name)))
	}

	return stmts, nil
}

// renameAndMove emits ALTER ... RENAME TO before ALTER ... SET SCHEMA so
// that a pair which both renamed and moved is addressed by its new name
// when it changes namespace.
func renameAndMove(delta diff.Delta[schema.NamespacedEntity], object string) []string {
	var stmts []string
	renamedTo := make(map[string]string, len(delta.Renamed))
	for _, r := range delta.Renamed {
		stmts = append(stmts, fmt.Sprintf("ALTER %s %s RENAME TO %s;", object, qualified(r.From.Schema, r.From.Name), pq.QuoteIdentifier(r.To.Name)))
		renamedTo[r.From.Key()] = r.To.Name
	}
	for _, m := range delta.Moved {
		name := m.Name
		if to, ok := renamedTo[schema.NamespacedEntity{Name: m.Name, Schema: m.SchemaFrom}.Key()]; ok {
			name = to
		}
		stmts = append(stmts, fmt.Sprintf("ALTER %s %s SET SCHEMA %s;", object, qualified(m.SchemaFrom, name), pq.QuoteIdentifier(m.SchemaTo)))
	}
	return stmts
}

func createTable(t schema.Table) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = "\t" + columnDef(c)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", qualified(t.Schema, t.Name), strings.Join(defs, ",\n"))
}

func columnDef(c schema.Column) string {
	def := pq.QuoteIdentifier(c.Name) + " " + c.Type
	if c.PrimaryKey {
		def += " PRIMARY KEY"
	}
	if c.NotNull && !c.PrimaryKey {
		def += " NOT NULL"
	}
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return def
}

func columnByName(t schema.Table, name string) (schema.Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return schema.Column{}, false
}

func qualified(schemaName, name string) string {
	return pq.QuoteIdentifier(schemaName) + "." + pq.QuoteIdentifier(name)
}
