package sqlgen

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/schemadrift/schemadrift/internal/diff"
	"github.com/schemadrift/schemadrift/internal/schema"
)

// SQLite generates SQLite DDL. SQLite has no user schemas, sequences or
// enum types, so a diff touching those categories is rejected rather than
// silently dropped. Tables are addressed by bare name.
type SQLite struct{}

// Generate implements Generator.
func (g SQLite) Generate(d *diff.SnapshotDiff, target *schema.Snapshot) ([]string, error) {
	if !d.Schemas.Empty() {
		return nil, fmt.Errorf("sqlite does not support schema namespaces")
	}
	if !d.Enums.Empty() {
		return nil, fmt.Errorf("sqlite does not support enum types")
	}
	if !d.Sequences.Empty() {
		return nil, fmt.Errorf("sqlite does not support sequences")
	}
	if len(d.Tables.Moved) > 0 {
		return nil, fmt.Errorf("sqlite does not support moving tables between schemas")
	}

	var stmts []string

	for _, t := range d.Tables.Created {
		table, ok := target.TableByKey(t.Key())
		if !ok {
			return nil, fmt.Errorf("created table '%s' missing from target snapshot", t.Key())
		}
		stmts = append(stmts, createTableBare(table))
	}
	for _, r := range d.Tables.Renamed {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", pq.QuoteIdentifier(r.From.Name), pq.QuoteIdentifier(r.To.Name)))
	}

	for _, tableKey := range d.ColumnOrder {
		table, ok := target.TableByKey(tableKey)
		if !ok {
			return nil, fmt.Errorf("changed table '%s' missing from target snapshot", tableKey)
		}
		delta := d.Columns[tableKey]
		name := pq.QuoteIdentifier(table.Name)

		for _, r := range delta.Renamed {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", name, pq.QuoteIdentifier(r.From.Name), pq.QuoteIdentifier(r.To.Name)))
		}
		for _, c := range delta.Created {
			col, ok := columnByName(table, c.Name)
			if !ok {
				return nil, fmt.Errorf("created column '%s' missing from table '%s'", c.Name, tableKey)
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", name, columnDef(col)))
		}
		for _, c := range delta.Deleted {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", name, pq.QuoteIdentifier(c.Name)))
		}
	}

	for _, t := range d.Tables.Deleted {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE %s;", pq.QuoteIdentifier(t.Name)))
	}

	return stmts, nil
}

func createTableBare(t schema.Table) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = "\t" + columnDef(c)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", pq.QuoteIdentifier(t.Name), strings.Join(defs, ",\n"))
}
