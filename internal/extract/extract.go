// Package extract turns uploaded resume and job description files into plain
// text. The conversational core never touches binary formats itself.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat is returned for formats the extractor does not handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorruptFile is returned when a supported format cannot be parsed.
	ErrCorruptFile = errors.New("corrupt file")
)

// FromFile reads the file and extracts plain text based on its extension.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}

	return Extract(data, filepath.Ext(path))
}

// Extract returns the plain text of the document in the declared format.
// Supported formats: .txt, .pdf, .docx.
func Extract(data []byte, format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")) {
	case "txt":
		return extractText(data), nil
	case "pdf":
		return extractPDF(data)
	case "docx":
		return extractDocx(data)
	default:
		return "", fmt.Errorf("%w: %q (supported: .txt, .pdf, .docx)", ErrUnsupportedFormat, format)
	}
}

func extractText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimSpace(string(data))
	}

	// Interpret as latin-1 when the file is not valid utf-8.
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return strings.TrimSpace(string(runes))
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text", ErrCorruptFile)
	}

	return text, nil
}

// extractDocx reads word/document.xml from the docx archive and collects the
// text runs, inserting a newline per paragraph.
func extractDocx(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}

	if document == nil {
		return "", fmt.Errorf("%w: word/document.xml not found", ErrCorruptFile)
	}

	reader, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer reader.Close()

	text, err := docxText(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	return text, nil
}

func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var builder strings.Builder
	var inText bool

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(element)
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}
