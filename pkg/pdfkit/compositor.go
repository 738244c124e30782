package pdfkit

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
)

// Composite produces a PDF containing the rendered template page images
// (in slot order) followed by every page of the body PDF in its original
// order. With no template pages the body is returned unchanged.
//
// On any failure the original body buffer is returned alongside the error
// so the caller always holds a usable document; a template bug must never
// cost a student access to their submission.
func Composite(templatePages [][]byte, body []byte) ([]byte, error) {
	if len(templatePages) == 0 {
		return body, nil
	}

	bodyPages, err := PageCount(body)
	if err != nil {
		return body, fmt.Errorf("body PDF unreadable: %w", err)
	}

	out, err := buildComposite(templatePages, body, bodyPages)
	if err != nil {
		return body, err
	}
	return out, nil
}

func buildComposite(templatePages [][]byte, body []byte, bodyPages int) (out []byte, err error) {
	// the page importer panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("body page import failed: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "A4", "")

	for i, img := range templatePages {
		imageType, derr := detectImageType(img)
		if derr != nil {
			return nil, fmt.Errorf("template page %d: %w", i+1, derr)
		}

		pdf.AddPage()
		w, h := pdf.GetPageSize()

		name := fmt.Sprintf("template-%d", i)
		opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(body))

	for p := 1; p <= bodyPages; p++ {
		tpl := imp.ImportPageFromStream(pdf, &rs, p, "/MediaBox")
		w, h := importedPageSize(imp, p)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to composite document: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write composited PDF: %w", err)
	}
	return buf.Bytes(), nil
}
