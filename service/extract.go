package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// first pages carry the abstract and introduction, which is what the
// insight prompt needs
const maxExtractPages = 5

// ExtractText pulls plain text out of an uploaded document for the AI
// insight prompt. PDF and DOCX are supported; anything else is an error.
func ExtractText(data []byte, filename string) (string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return extractPDFText(data)
	case strings.HasSuffix(name, ".docx"):
		return extractDocxText(data)
	default:
		return "", fmt.Errorf("unsupported document type: %s", filename)
	}
}

func extractPDFText(data []byte) (string, error) {
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := r.NumPage()
	if pages > maxExtractPages {
		pages = maxExtractPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("no extractable text, document may be scanned images")
	}
	return out, nil
}

// extractDocxText reads word/document.xml out of the DOCX archive and
// collects its character data
func extractDocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		return collectXMLText(rc)
	}
	return "", errors.New("no word/document.xml in DOCX archive")
}

func collectXMLText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			// paragraph boundaries become line breaks
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("no extractable text in DOCX")
	}
	return out, nil
}
