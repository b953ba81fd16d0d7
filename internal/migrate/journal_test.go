package migrate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/drifterr"
)

func writeUnit(t *testing.T, dir, tag, sql string) {
	t.Helper()
	unitDir := filepath.Join(dir, tag)
	require.NoError(t, os.MkdirAll(unitDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(unitDir, SnapshotFile), []byte(`{"version":"1","dialect":"postgresql","id":"x"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(unitDir, StatementsFile), []byte(sql), 0644))
}

func TestBuildJournal_OrderAndTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120500_amber_wren", "SELECT 2;\n")
	writeUnit(t, dir, "20240101120000_brave_otter", "SELECT 1;\n")

	journal, err := BuildJournal(dir)
	require.NoError(t, err)

	require.Len(t, journal.Entries, 2)
	assert.Equal(t, 0, journal.Entries[0].Index)
	assert.Equal(t, "20240101120000_brave_otter", journal.Entries[0].Tag)
	assert.Equal(t, int64(1704110400000), journal.Entries[0].When)
	assert.Equal(t, 1, journal.Entries[1].Index)
	assert.Equal(t, "20240101120500_amber_wren", journal.Entries[1].Tag)
	assert.Equal(t, int64(1704110700000), journal.Entries[1].When)
}

func TestBuildJournal_IgnoresStrayFilesAndHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120000_brave_otter", "SELECT 1;\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, JournalFile), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tmp-unit-123"), 0755))

	journal, err := BuildJournal(dir)
	require.NoError(t, err)
	require.Len(t, journal.Entries, 1)
}

func TestBuildJournal_MalformedDirFailsOutright(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120000_brave_otter", "SELECT 1;\n")
	writeUnit(t, dir, "20240101120100_calm_lynx", "SELECT 2;\n")
	writeUnit(t, dir, "20240101120200_misty_raven", "SELECT 3;\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-migration"), 0755))

	_, err := BuildJournal(dir)
	require.Error(t, err, "a malformed entry must fail the build, not shrink the manifest")
	assert.True(t, drifterr.IsUnparseableTag(err))
}

func TestBuildJournal_PartialUnitFails(t *testing.T) {
	dir := t.TempDir()
	unitDir := filepath.Join(dir, "20240101120000_brave_otter")
	require.NoError(t, os.MkdirAll(unitDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(unitDir, SnapshotFile), []byte("{}"), 0644))

	_, err := BuildJournal(dir)
	require.Error(t, err)
	assert.True(t, drifterr.IsPartialUnit(err))
}

func TestBuildJournal_MissingDirIsEmpty(t *testing.T) {
	journal, err := BuildJournal(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, journal.Entries)
	assert.Nil(t, journal.Last())
}

func TestBuildJournal_DetectsBreakpoints(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120000_brave_otter", "SELECT 1;\n--> statement-breakpoint\nSELECT 2;\n")
	writeUnit(t, dir, "20240101120100_calm_lynx", "SELECT 1;\n")

	journal, err := BuildJournal(dir)
	require.NoError(t, err)

	assert.True(t, journal.Entries[0].Breakpoints)
	assert.False(t, journal.Entries[1].Breakpoints)
}

func TestJournal_WriteFile(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120000_brave_otter", "SELECT 1;\n")

	journal, err := BuildJournal(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, JournalFile)
	require.NoError(t, journal.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Journal
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, journal.Entries, decoded.Entries)
}

func TestReadUnitSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120000_brave_otter", "SELECT 1;\n")

	snap, err := ReadUnitSnapshot(dir, "20240101120000_brave_otter")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", snap.Dialect)

	_, err = ReadUnitSnapshot(dir, "20240101999999_missing")
	require.Error(t, err)
	assert.True(t, drifterr.IsPartialUnit(err))
}

func TestWriteBundle_EmbedsStatements(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "20240101120000_brave_otter", "CREATE TABLE \"users\" (id int);\n")

	journal, err := BuildJournal(dir)
	require.NoError(t, err)
	require.NoError(t, WriteBundle(dir, journal))

	data, err := os.ReadFile(filepath.Join(dir, BundleFile))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "// Code generated by schemadrift. DO NOT EDIT.")
	assert.Contains(t, content, "package migrations")
	assert.Contains(t, content, `"20240101120000_brave_otter"`)
	assert.Contains(t, content, `Idx: 0`)
	assert.Contains(t, content, `When: 1704110400000`)
}
