package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schemadrift/schemadrift/internal/drifterr"
	"github.com/schemadrift/schemadrift/internal/schema"
)

// JournalFile is the serialized manifest written next to the units.
const JournalFile = "journal.json"

// JournalVersion is the manifest format version.
const JournalVersion = "1"

// Entry locates one migration unit in apply order. When is the unit's
// creation moment in Unix milliseconds, parsed from the tag prefix.
type Entry struct {
	Index       int    `json:"idx"`
	When        int64  `json:"when"`
	Tag         string `json:"tag"`
	Breakpoints bool   `json:"breakpoints"`
}

// Journal is the ordered manifest over all migration units. It is a
// rebuildable artifact: the unit directories stay the source of truth.
type Journal struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// Last returns the most recent entry, or nil for an empty journal.
func (j *Journal) Last() *Entry {
	if len(j.Entries) == 0 {
		return nil
	}
	return &j.Entries[len(j.Entries)-1]
}

// BuildJournal scans the unit store and derives the ordered manifest.
// Stray files and dot-prefixed directories are ignored; any other
// directory whose name fails the tag grammar, and any unit missing one of
// its two files, fails the build outright.
func BuildJournal(dir string) (*Journal, error) {
	journal := &Journal{Version: JournalVersion, Entries: []Entry{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return journal, nil
		}
		return nil, drifterr.WrapIOError("read", dir, err)
	}

	// os.ReadDir sorts by name, and lexical order equals chronological
	// order by construction of the tag.
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		tag := entry.Name()

		at, err := ParseTag(tag)
		if err != nil {
			return nil, err
		}

		content, err := ReadUnitStatements(dir, tag)
		if err != nil {
			return nil, err
		}
		if !fileExists(filepath.Join(dir, tag, SnapshotFile)) {
			return nil, drifterr.WrapPartialUnitError(tag, SnapshotFile)
		}

		journal.Entries = append(journal.Entries, Entry{
			Index:       len(journal.Entries),
			When:        at.UnixMilli(),
			Tag:         tag,
			Breakpoints: strings.Contains(content, BreakpointMarker),
		})
	}

	return journal, nil
}

// WriteFile persists the manifest as JSON.
func (j *Journal) WriteFile(path string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return drifterr.WrapIOError("write", path, err)
	}
	return nil
}

// ReadUnitStatements reads a unit's statement file. A missing file is a
// partial-write inconsistency, not a plain io error.
func ReadUnitStatements(dir, tag string) (string, error) {
	path := filepath.Join(dir, tag, StatementsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", drifterr.WrapPartialUnitError(tag, StatementsFile)
		}
		return "", drifterr.WrapIOError("read", path, err)
	}
	return string(data), nil
}

// ReadUnitSnapshot reads and validates a unit's post-state snapshot.
func ReadUnitSnapshot(dir, tag string) (*schema.Snapshot, error) {
	path := filepath.Join(dir, tag, SnapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, drifterr.WrapPartialUnitError(tag, SnapshotFile)
		}
		return nil, drifterr.WrapIOError("read", path, err)
	}
	return schema.Parse(data)
}
