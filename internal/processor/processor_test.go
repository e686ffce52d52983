package processor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/pkg/types"
)

func testConfig() *config.Config {
	return config.Default()
}

func TestComputeHashDeterministic(t *testing.T) {
	assert.Equal(t, ComputeHash("same text"), ComputeHash("same text"))
	assert.NotEqual(t, ComputeHash("same text"), ComputeHash("same text!"))
	assert.Len(t, ComputeHash(""), 64)
}

func TestProcessMarkdownFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Test Doc\n---\n# Hello\n\nThis is a test.\n"), 0o644))

	doc, err := ProcessFile(path, testConfig())
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "Test Doc", doc.Title)
	assert.Equal(t, types.SourceMarkdown, doc.SourceType)
	assert.Equal(t, path, doc.SourcePath)
	assert.Len(t, doc.ContentHash, 64)
	assert.NotEmpty(t, doc.Chunks)
	assert.Equal(t, 0, doc.Chunks[0].Index)
	assert.Equal(t, path, doc.Chunks[0].Metadata["source"])
	assert.Equal(t, "Test Doc", doc.Chunks[0].Metadata["title"])
	assert.Equal(t, "Document", doc.EntityType)
	assert.NotEmpty(t, doc.Date)
}

func TestProcessUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xyz")
	require.NoError(t, os.WriteFile(path, []byte("opaque"), 0o644))

	doc, err := ProcessFile(path, testConfig())
	assert.NoError(t, err)
	assert.Nil(t, doc)
}

func TestIdenticalContentIdenticalHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("shared content\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("shared content\n"), 0o644))

	docA, err := ProcessFile(a, testConfig())
	require.NoError(t, err)
	docB, err := ProcessFile(b, testConfig())
	require.NoError(t, err)

	assert.Equal(t, docA.ContentHash, docB.ContentHash)
	assert.NotEqual(t, docA.SourcePath, docB.SourcePath)
}

func TestEntityTypeInference(t *testing.T) {
	tests := []struct {
		sourceType types.SourceType
		title      string
		want       string
	}{
		{types.SourceConversation, "anything", "Conversation"},
		{types.SourcePDF, "Meeting agenda", "Document"},
		{types.SourceDOCX, "whatever", "Document"},
		{types.SourceMarkdown, "Weekly Meeting Notes", "Meeting"},
		{types.SourceText, "Shopping list", "Document"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferEntityType(tt.sourceType, tt.title), tt.title)
	}
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B\n\nbody"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("A note\n\nbody"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.md"), []byte("# skip me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.xyz"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "inner.md"), []byte("# nope"), 0o644))
	// A file that parses with an error: invalid JSON.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))

	docs, failures, err := ProcessDirectory(dir, testConfig())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, 1, failures)
	// Lexical walk order: a.txt before b.md.
	assert.Equal(t, "A note", docs[0].Title)
	assert.Equal(t, "B", docs[1].Title)
}

func TestProcessDirectoryMissingRoot(t *testing.T) {
	docs, failures, err := ProcessDirectory(filepath.Join(t.TempDir(), "nope"), testConfig())
	assert.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, failures)
}
