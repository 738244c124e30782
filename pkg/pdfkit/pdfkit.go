// Package pdfkit performs the byte-level PDF work of the submission
// pipeline: assembling captured page images into a document, merging
// rendered template pages ahead of an uploaded report and stamping
// reviewed copies.
package pdfkit

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// register decoders for captured page images
	_ "image/jpeg"
	_ "image/png"

	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// A4 in PDF points
const (
	PageWidthPt  = 595.28
	PageHeightPt = 841.89
)

// PageCount parses and validates a PDF buffer and returns its page count.
// A failure here is the signal that a buffer is corrupt or not a PDF.
func PageCount(pdfBytes []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to validate PDF: %w", err)
	}
	return ctx.PageCount, nil
}

// detectImageType decides whether image data is PNG, JPEG etc.
func detectImageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), nil
}

// importedPageSize returns the media box of an already-imported page,
// falling back to A4 when the importer reports nothing usable.
func importedPageSize(imp *gofpdi.Importer, pageNum int) (float64, float64) {
	sizes := imp.GetPageSizes()
	box, ok := sizes[pageNum]["/MediaBox"]
	if !ok {
		return PageWidthPt, PageHeightPt
	}
	w, h := box["w"], box["h"]
	if w <= 0 || h <= 0 {
		return PageWidthPt, PageHeightPt
	}
	return w, h
}
