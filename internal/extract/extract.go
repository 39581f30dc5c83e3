// Package extract pulls plain text out of uploaded legal documents. PDF,
// DOCX and TXT are supported; anything else is an input error.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// FromFile reads path and extracts its text based on the file extension.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: read %s", path)
	}
	return FromBytes(data, filepath.Ext(path))
}

// FromBytes extracts text from an in-memory payload. ext selects the format
// (".pdf", ".docx", ".doc", ".txt").
func FromBytes(data []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(data)
	case ".docx", ".doc":
		return extractDOCX(data)
	case ".txt":
		return extractTXT(data)
	default:
		return "", eris.Errorf("extract: unsupported file type: %s", ext)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open pdf")
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", eris.Wrap(err, "extract: read pdf text")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", eris.Wrap(err, "extract: copy pdf text")
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", eris.New("extract: empty docx payload")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open docx archive")
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", eris.New("extract: word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", eris.Wrap(err, "extract: open document.xml")
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", eris.Wrap(err, "extract: read document.xml")
	}
	return stripDocxXML(string(raw)), nil
}

// stripDocxXML keeps character data and turns paragraph and line-break ends
// into newlines.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// extractTXT decodes UTF-8 input directly and falls back to Windows-1252 for
// legacy files.
func extractTXT(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", eris.Wrap(err, "extract: decode txt")
	}
	return string(decoded), nil
}
