package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	file, err := writer.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := file.Write([]byte(documentXML)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	return buf.Bytes()
}

func TestExtractTxt(t *testing.T) {
	text, err := Extract([]byte("  plain resume text\n"), ".txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "plain resume text" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractTxtLatin1Fallback(t *testing.T) {
	// 0xE9 is 'é' in latin-1 and invalid as a standalone utf-8 byte.
	text, err := Extract([]byte{'r', 0xE9, 's', 'u', 'm', 0xE9}, "txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "résumé" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractDocx(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Backend engineer, </w:t></w:r><w:r><w:t>8 years</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := Extract(buildDocx(t, doc), ".docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "Jane Doe\nBackend engineer, 8 years"
	if text != expected {
		t.Fatalf("expected %q, got %q", expected, text)
	}
}

func TestExtractDocxMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	if _, err := writer.Create("other.xml"); err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	_, err := Extract(buf.Bytes(), ".docx")
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}

func TestExtractDocxNotAZip(t *testing.T) {
	_, err := Extract([]byte("definitely not a zip"), ".docx")
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte("data"), ".odt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract([]byte("not a pdf"), ".pdf")
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}
