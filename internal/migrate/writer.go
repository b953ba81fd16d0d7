package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schemadrift/schemadrift/internal/drifterr"
	"github.com/schemadrift/schemadrift/internal/schema"
)

const (
	// SnapshotFile is the serialized post-state inside a unit directory.
	SnapshotFile = "snapshot.json"
	// StatementsFile holds the unit's SQL.
	StatementsFile = "migration.sql"
	// BreakpointMarker separates statements for executors that cannot run
	// multi-statement files.
	BreakpointMarker = "--> statement-breakpoint"
)

// Kind selects what goes into the unit's statement file.
type Kind string

const (
	// KindNormal writes the generated statements as-is.
	KindNormal Kind = "normal"
	// KindIntrospected writes the statements commented out: a baseline
	// captured from an existing database is inert by default.
	KindIntrospected Kind = "introspected"
	// KindCustom writes an editable placeholder and ignores any generated
	// statements.
	KindCustom Kind = "custom"
)

// Options controls one unit write.
type Options struct {
	// Name overrides the generated two-word suffix.
	Name string
	// Breakpoints joins statements with the breakpoint marker instead of
	// a plain newline.
	Breakpoints bool
	// Bundle regenerates the journal and the embeddable Go bundle after
	// the unit is written.
	Bundle bool
	Kind   Kind
}

// Result reports what a write did. NoChanges is set when nothing was
// written because the delta produced no statements.
type Result struct {
	NoChanges bool
	Unit      *Unit
}

// Unit describes one written migration unit.
type Unit struct {
	Tag  string
	Dir  string
	Kind Kind
}

// Writer persists resolved deltas as immutable migration units, one
// directory per unit under its output directory. It exclusively owns a
// unit directory once created.
type Writer struct {
	dir    string
	logger zerolog.Logger

	// replaced in tests
	now    func() time.Time
	suffix func() string
}

// NewWriter creates a writer over the given output directory.
func NewWriter(dir string, logger zerolog.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger,
		now:    time.Now,
		suffix: RandomSuffix,
	}
}

// Write persists one unit: the post-state snapshot (with its embedded
// delta classification) and the statement file. The two files appear
// atomically: they are written to a temporary directory first and renamed
// into place, so an interrupted run leaves no half-written unit behind.
//
// Pre-existing partial units from older tooling are still detected and
// surfaced before anything new is written; they require operator
// resolution and are never deleted or overwritten here.
func (w *Writer) Write(snap *schema.Snapshot, statements []string, opts Options) (*Result, error) {
	if opts.Kind == "" {
		opts.Kind = KindNormal
	}

	if opts.Kind == KindNormal && len(statements) == 0 {
		w.logger.Info().Msg("No statements to write, skipping migration unit")
		return &Result{NoChanges: true}, nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, drifterr.WrapIOError("create", w.dir, err)
	}
	if err := CheckIntegrity(w.dir); err != nil {
		return nil, err
	}

	tag, err := w.newTag(opts.Name)
	if err != nil {
		return nil, err
	}

	content := w.renderStatements(statements, opts)
	snapData, err := snap.Marshal()
	if err != nil {
		return nil, err
	}

	unitDir := filepath.Join(w.dir, tag)
	tmpDir, err := os.MkdirTemp(w.dir, ".tmp-unit-")
	if err != nil {
		return nil, drifterr.WrapIOError("create", w.dir, err)
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, SnapshotFile), snapData, 0644); err != nil {
		return nil, drifterr.WrapIOError("write", filepath.Join(tmpDir, SnapshotFile), err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, StatementsFile), []byte(content), 0644); err != nil {
		return nil, drifterr.WrapIOError("write", filepath.Join(tmpDir, StatementsFile), err)
	}
	if err := os.Rename(tmpDir, unitDir); err != nil {
		return nil, drifterr.WrapIOError("rename", unitDir, err)
	}

	w.logger.Info().
		Str("tag", tag).
		Str("kind", string(opts.Kind)).
		Int("statements", len(statements)).
		Msg("Migration unit written")

	if opts.Bundle {
		journal, err := BuildJournal(w.dir)
		if err != nil {
			return nil, err
		}
		if err := journal.WriteFile(filepath.Join(w.dir, JournalFile)); err != nil {
			return nil, err
		}
		if err := WriteBundle(w.dir, journal); err != nil {
			return nil, err
		}
		w.logger.Info().Int("entries", len(journal.Entries)).Msg("Journal and bundle regenerated")
	}

	return &Result{Unit: &Unit{Tag: tag, Dir: unitDir, Kind: opts.Kind}}, nil
}

// newTag derives the unit tag, disambiguating same-second collisions. A
// generated suffix is re-rolled when its directory already exists; an
// explicit name that collides is rejected, never overwritten.
func (w *Writer) newTag(name string) (string, error) {
	at := w.now()

	if name != "" {
		suffix := SanitizeName(name)
		if suffix == "" {
			return "", fmt.Errorf("migration name '%s' contains no usable characters", name)
		}
		tag := NewTag(at, suffix)
		if _, err := os.Stat(filepath.Join(w.dir, tag)); err == nil {
			return "", fmt.Errorf("migration unit '%s' already exists, pick a different name", tag)
		}
		return tag, nil
	}

	const attempts = 10
	for i := 0; i < attempts; i++ {
		tag := NewTag(at, w.suffix())
		if _, err := os.Stat(filepath.Join(w.dir, tag)); os.IsNotExist(err) {
			return tag, nil
		}
	}
	return "", fmt.Errorf("failed to find a free tag for timestamp %s after %d attempts", at.UTC().Format(TagTimeLayout), attempts)
}

func (w *Writer) renderStatements(statements []string, opts Options) string {
	switch opts.Kind {
	case KindCustom:
		return "-- Custom migration: add your statements below\n"
	case KindIntrospected:
		commented := make([]string, len(statements))
		for i, stmt := range statements {
			commented[i] = commentOut(stmt)
		}
		return JoinStatements(commented, opts.Breakpoints)
	default:
		return JoinStatements(statements, opts.Breakpoints)
	}
}

// JoinStatements concatenates statements with either a plain newline or
// the breakpoint marker, so a multi-statement-incapable executor can
// split the file back into individually executable chunks.
func JoinStatements(statements []string, breakpoints bool) string {
	if len(statements) == 0 {
		return ""
	}
	sep := "\n"
	if breakpoints {
		sep = "\n" + BreakpointMarker + "\n"
	}
	return strings.Join(statements, sep) + "\n"
}

// SplitStatements is the inverse of JoinStatements for files written with
// breakpoints. Without any marker the whole file is one chunk.
func SplitStatements(content string) []string {
	var out []string
	var current []string
	flush := func() {
		chunk := strings.TrimSpace(strings.Join(current, "\n"))
		if chunk != "" {
			out = append(out, chunk)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == BreakpointMarker {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}

func commentOut(stmt string) string {
	lines := strings.Split(stmt, "\n")
	for i, line := range lines {
		lines[i] = "-- " + line
	}
	return strings.Join(lines, "\n")
}

// CheckIntegrity scans existing unit directories for the snapshot/
// statement pair and reports the first unit missing one of the two. Such
// a unit came from an interrupted write and needs operator resolution.
func CheckIntegrity(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return drifterr.WrapIOError("read", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		hasSnapshot := fileExists(filepath.Join(dir, entry.Name(), SnapshotFile))
		hasStatements := fileExists(filepath.Join(dir, entry.Name(), StatementsFile))
		switch {
		case hasSnapshot && !hasStatements:
			return drifterr.WrapPartialUnitError(entry.Name(), StatementsFile)
		case !hasSnapshot && hasStatements:
			return drifterr.WrapPartialUnitError(entry.Name(), SnapshotFile)
		case !hasSnapshot && !hasStatements:
			return drifterr.WrapPartialUnitError(entry.Name(), SnapshotFile+" and "+StatementsFile)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
