package migrate

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/schemadrift/schemadrift/internal/drifterr"
)

// BundleFile is the generated Go source embedding every unit's statements
// for runtimes that cannot list a directory at execution time.
const BundleFile = "bundle.go"

var bundleTemplate = template.Must(template.New("bundle").Parse(`// Code generated by schemadrift. DO NOT EDIT.

package migrations

// Entry locates one migration in apply order.
type Entry struct {
	Idx         int
	When        int64
	Tag         string
	Breakpoints bool
}

// Journal lists every migration in apply order.
var Journal = []Entry{
{{- range .Entries}}
	{Idx: {{.Index}}, When: {{.When}}, Tag: {{.QuotedTag}}, Breakpoints: {{.Breakpoints}}},
{{- end}}
}

// Statements holds each migration's SQL keyed by tag.
var Statements = map[string]string{
{{- range .Entries}}
	{{.QuotedTag}}: {{.QuotedSQL}},
{{- end}}
}
`))

type bundleEntry struct {
	Index       int
	When        int64
	Breakpoints bool
	QuotedTag   string
	QuotedSQL   string
}

// WriteBundle generates the embeddable source unit from the journal and
// the statement files it references.
func WriteBundle(dir string, journal *Journal) error {
	entries := make([]bundleEntry, 0, len(journal.Entries))
	for _, e := range journal.Entries {
		content, err := ReadUnitStatements(dir, e.Tag)
		if err != nil {
			return err
		}
		entries = append(entries, bundleEntry{
			Index:       e.Index,
			When:        e.When,
			Breakpoints: e.Breakpoints,
			QuotedTag:   strconv.Quote(e.Tag),
			QuotedSQL:   strconv.Quote(content),
		})
	}

	var buf bytes.Buffer
	if err := bundleTemplate.Execute(&buf, struct{ Entries []bundleEntry }{entries}); err != nil {
		return drifterr.WrapIOError("generate", BundleFile, err)
	}

	path := filepath.Join(dir, BundleFile)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return drifterr.WrapIOError("write", path, err)
	}
	return nil
}
