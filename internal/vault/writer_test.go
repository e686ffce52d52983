package vault

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/pkg/types"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)
	return w, dir
}

func sampleDoc(title, hash string) *types.ProcessedDocument {
	doc := types.NewProcessedDocument()
	doc.Title = title
	doc.Content = "Some note content mentioning Alice Johnson."
	doc.SourcePath = "/ingest/" + title + ".md"
	doc.SourceType = types.SourceMarkdown
	doc.ContentHash = hash
	doc.EntityType = "Document"
	return doc
}

func TestWriteCreatesFileWithFrontmatter(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.Write(sampleDoc("My Note", "hash-1"))
	require.NoError(t, err)
	require.NotEmpty(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.True(t, strings.HasPrefix(content, "---\n"))
	assert.Contains(t, content, "title: My Note")
	assert.Contains(t, content, "content_hash: hash-1")
	assert.Contains(t, content, "# My Note")
	assert.Contains(t, content, "[[Alice Johnson]]")
	assert.Equal(t, filepath.Join(dir, "documents", "My Note.md"), path)
}

func TestWriteDuplicateContentSkipped(t *testing.T) {
	w, dir := newTestWriter(t)

	first, err := w.Write(sampleDoc("My Note", "same-hash"))
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Same content under a different title is still a duplicate.
	second, err := w.Write(sampleDoc("Renamed Note", "same-hash"))
	require.NoError(t, err)
	assert.Empty(t, second)

	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteDedupSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	w1, err := NewWriter(dir, nil)
	require.NoError(t, err)
	_, err = w1.Write(sampleDoc("Note", "persisted-hash"))
	require.NoError(t, err)

	w2, err := NewWriter(dir, nil)
	require.NoError(t, err)
	path, err := w2.Write(sampleDoc("Note", "persisted-hash"))
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 1, w2.KnownHashes())
}

func TestWriteTitleCollisionGetsSuffix(t *testing.T) {
	w, dir := newTestWriter(t)

	p1, err := w.Write(sampleDoc("Shared Title", "hash-a"))
	require.NoError(t, err)
	p2, err := w.Write(sampleDoc("Shared Title", "hash-b"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "documents", "Shared Title.md"), p1)
	assert.Equal(t, filepath.Join(dir, "documents", "Shared Title_1.md"), p2)
}

func TestWriteManyCountsOnlyNewFiles(t *testing.T) {
	w, _ := newTestWriter(t)

	paths, err := w.WriteMany([]*types.ProcessedDocument{
		sampleDoc("A", "h1"),
		sampleDoc("B", "h2"),
		sampleDoc("A again", "h1"),
	})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestEntityTypeFolders(t *testing.T) {
	w, dir := newTestWriter(t)

	doc := sampleDoc("Standup", "hash-m")
	doc.EntityType = "Meeting"
	path, err := w.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "meetings"), filepath.Dir(path))

	doc = sampleDoc("Unknown Kind", "hash-u")
	doc.EntityType = "Widget"
	path, err = w.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "documents"), filepath.Dir(path))
}

func TestWriteEntityPage(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.WriteEntityPage(EntityPage{
		Name:            "Platform Team",
		Type:            "Organization",
		Description:     "Owns the clusters.",
		RelatedEntities: []string{"Kubernetes Migration"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "entities/organizations", "Platform Team.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "**Type:** Organization")
	assert.Contains(t, string(raw), "[[Kubernetes Migration]]")

	// Existing pages are left alone.
	again, err := w.WriteEntityPage(EntityPage{Name: "Platform Team", Type: "Organization"})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestWriteEntityPageUnknownTypeFallsBackToTopic(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.WriteEntityPage(EntityPage{Name: "Quantum Stuff", Type: "Spaceship"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "entities/topics"), filepath.Dir(path))
}

func TestWriteEntityPageEmptyName(t *testing.T) {
	w, _ := newTestWriter(t)
	path, err := w.WriteEntityPage(EntityPage{Name: "   "})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "ab", sanitizeFilename(`a/\:*?"<>|b`))
	assert.Equal(t, "trimmed", sanitizeFilename("  trimmed. "))
	assert.Equal(t, "untitled", sanitizeFilename("..."))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("x", 300))), 100)
}

func TestExtractEntities(t *testing.T) {
	o := DefaultOntology()
	entities := o.ExtractEntities("Met with Alice Johnson about [[Project Phoenix]]. The meeting is on Monday in March.")

	assert.Contains(t, entities, "Alice Johnson")
	assert.Contains(t, entities, "Project Phoenix")
	assert.NotContains(t, entities, "Monday")
	assert.NotContains(t, entities, "March")
	// Sorted output.
	assert.IsIncreasing(t, entities)
}
