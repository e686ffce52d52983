package parser

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/pkg/types"
)

// buildDocx assembles a minimal .docx on disk: a zip with the document
// body and optional core properties.
func buildDocx(t *testing.T, documentXML, coreXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")

	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)

	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	if coreXML != "" {
		core, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = core.Write([]byte(coreXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

const sampleDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Split </w:t></w:r><w:r><w:t>run.</w:t></w:r></w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
    <w:p><w:r><w:t>Last paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestDOCXParagraphs(t *testing.T) {
	path := buildDocx(t, sampleDocumentXML, "")

	res, err := (&DOCXParser{}).Parse(path)
	require.NoError(t, err)

	assert.Equal(t, types.SourceDOCX, res.SourceType)
	assert.Equal(t, "First paragraph.\n\nSplit run.\n\nLast paragraph.", res.Content)
	assert.Equal(t, "doc", res.Title) // no core properties: stem
}

func TestDOCXCoreTitle(t *testing.T) {
	core := `<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Signed Agreement</dc:title>
</cp:coreProperties>`
	path := buildDocx(t, sampleDocumentXML, core)

	res, err := (&DOCXParser{}).Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "Signed Agreement", res.Title)
}

func TestDOCXNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a zip"), 0o644))

	_, err := (&DOCXParser{}).Parse(path)
	assert.Error(t, err)
}
