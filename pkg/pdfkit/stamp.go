package pdfkit

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
)

// StampRecord is the reviewer-identity overlay drawn onto every page of a
// reviewed document.
type StampRecord struct {
	InstituteName string
	ReviewerName  string
	Date          string
	Logo          []byte // optional raster logo, PNG or JPEG
}

// stamp geometry, bottom-right corner, in points
const (
	minStampPageWidth  = 200.0
	minStampPageHeight = 100.0
	stampWidth         = 180.0
	stampHeight        = 60.0
	stampMargin        = 25.0
	maxLogoHeight      = 40.0
)

// ApplyReviewStamp returns a copy of the document with the review stamp
// drawn on every page large enough to hold it. Page count and page content
// are preserved; only the overlay is added. Repeated stamping draws an
// additional overlapping stamp each time, so the review workflow invokes
// this exactly once per submission.
//
// If the document itself cannot be loaded, the original buffer is
// returned with the error (fallback-to-original). A draw failure on an
// individual page abandons that page's stamp and continues.
func ApplyReviewStamp(body []byte, rec StampRecord) ([]byte, error) {
	pageCount, err := PageCount(body)
	if err != nil {
		return body, fmt.Errorf("document unreadable: %w", err)
	}

	out, err := buildStamped(body, pageCount, rec)
	if err != nil {
		return body, err
	}
	return out, nil
}

func buildStamped(body []byte, pageCount int, rec StampRecord) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("page import failed: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "A4", "")
	logo := registerLogo(pdf, rec.Logo)

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(body))

	for p := 1; p <= pageCount; p++ {
		tpl := imp.ImportPageFromStream(pdf, &rs, p, "/MediaBox")
		w, h := importedPageSize(imp, p)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)

		// too small to stamp without covering content
		if w < minStampPageWidth || h < minStampPageHeight {
			continue
		}

		drawStamp(pdf, w, h, rec, logo)
		if pdf.Err() {
			slog.Warn("stamp draw failed, page left unstamped", "page", p, "error", pdf.Error())
			pdf.ClearError()
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to stamp document: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write stamped PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type stampLogo struct {
	name      string
	imageType string
	width     float64
}

// registerLogo embeds the logo once per document, trying PNG first and
// then JPEG. When neither decodes the stamp simply omits the logo.
func registerLogo(pdf *fpdf.Fpdf, data []byte) *stampLogo {
	if len(data) == 0 {
		return nil
	}

	imageType := ""
	var aspect float64
	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		imageType = "PNG"
		aspect = float64(cfg.Width) / float64(cfg.Height)
	} else if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
		imageType = "JPG"
		aspect = float64(cfg.Width) / float64(cfg.Height)
	} else {
		slog.Warn("stamp logo not decodable as PNG or JPEG, continuing without logo")
		return nil
	}

	logo := &stampLogo{
		name:      "stamp-logo",
		imageType: imageType,
		width:     maxLogoHeight * aspect,
	}
	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	pdf.RegisterImageOptionsReader(logo.name, opts, bytes.NewReader(data))
	if pdf.Err() {
		slog.Warn("failed to embed stamp logo, continuing without logo", "error", pdf.Error())
		pdf.ClearError()
		return nil
	}
	return logo
}

// truncateRunes shortens a display string to max characters, cutting on
// rune boundaries so a multi-byte institute name is never split mid-rune
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// drawStamp draws one stamp in the bottom-right corner of the current
// page. Coordinates are top-left based (fpdf convention).
func drawStamp(pdf *fpdf.Fpdf, w, h float64, rec StampRecord, logo *stampLogo) {
	x := w - stampWidth - stampMargin

	// background box with green border
	pdf.SetFillColor(255, 255, 255)
	pdf.SetDrawColor(0, 128, 0)
	pdf.SetLineWidth(1.5)
	pdf.SetAlpha(0.95, "Normal")
	pdf.Rect(x-5, h-stampMargin-stampHeight-5, stampWidth+10, stampHeight+10, "FD")
	pdf.SetAlpha(1, "Normal")

	if logo != nil {
		opts := fpdf.ImageOptions{ImageType: logo.imageType, ReadDpi: false}
		pdf.ImageOptions(logo.name, x+5, h-stampMargin-10-maxLogoHeight, logo.width, maxLogoHeight, false, opts, 0, "")
	}

	textX := x + 60

	institute := truncateRunes(rec.InstituteName, 40)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(textX, h-stampMargin-38, institute)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 102, 0)
	pdf.Text(textX, h-stampMargin-24, "Reviewed By: "+rec.ReviewerName)

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(102, 102, 102)
	pdf.Text(textX, h-stampMargin-10, "Date: "+rec.Date)

	// rotated low-opacity watermark inside the box
	wx := x + stampWidth - 50
	wy := h - stampMargin - 20
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 153, 0)
	pdf.SetAlpha(0.2, "Normal")
	pdf.TransformBegin()
	pdf.TransformRotate(15, wx, wy)
	pdf.Text(wx, wy, "VERIFIED")
	pdf.TransformEnd()
	pdf.SetAlpha(1, "Normal")
}
