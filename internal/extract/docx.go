package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var zipMagic = []byte("PK\x03\x04")

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty docx data", ErrCorruptDocument)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return "", fmt.Errorf("%w: docx is not a zip container", ErrCorruptDocument)
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrCorruptDocument, err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: docx: document.xml is empty", ErrCorruptDocument)
	}
	return stripDocxXML(content), nil
}

// extractDOC handles Word files saved with a .doc name. OOXML payloads are
// read like .docx; legacy binary Word files have no parser and are rejected.
func extractDOC(data []byte) (string, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return extractDOCX(data)
	}
	return "", fmt.Errorf("%w: legacy binary .doc is not supported, save it as .docx", ErrCorruptDocument)
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(buf.String())
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
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
