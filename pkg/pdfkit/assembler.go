package pdfkit

import (
	"bytes"
	"errors"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
)

// AssembleImages builds a single PDF from camera-captured page images, one
// A4 page per image in capture order. Each image is stretched to cover the
// full page: full coverage is preferred over aspect fidelity for camera
// captures, a deliberate trade carried over from the uploader this
// replaces. Any undecodable image fails the whole call; no partial
// document is ever returned.
func AssembleImages(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to assemble")
	}

	pdf := fpdf.New("P", "pt", "A4", "")

	for i, data := range images {
		imageType, err := detectImageType(data)
		if err != nil {
			return nil, fmt.Errorf("page %d is not a decodable image: %w", i+1, err)
		}

		pdf.AddPage()
		w, h := pdf.GetPageSize()

		name := fmt.Sprintf("capture-%d", i)
		opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to assemble pages: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
