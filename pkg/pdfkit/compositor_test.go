package pdfkit

import (
	"bytes"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// makeBodyPDF builds a body document with one page per given size and a
// line of text on each page.
func makeBodyPDF(t *testing.T, sizes ...fpdf.SizeType) []byte {
	t.Helper()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, size := range sizes {
		pdf.AddPageFormat("P", size)
		pdf.Text(30, 50, "body page")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Failed to build body PDF: %v", err)
	}
	return buf.Bytes()
}

func a4Size() fpdf.SizeType {
	return fpdf.SizeType{Wd: PageWidthPt, Ht: PageHeightPt}
}

func TestCompositeNoTemplates(t *testing.T) {
	body := makeBodyPDF(t, a4Size(), a4Size())

	out, err := Composite(nil, body)
	if err != nil {
		t.Fatalf("Failed to composite: %v", err)
	}
	if !bytes.Equal(out, body) {
		t.Error("Expected body returned unchanged when no template pages")
	}
}

func TestCompositePrependsTemplates(t *testing.T) {
	body := makeBodyPDF(t, a4Size(), a4Size(), a4Size())
	templates := [][]byte{testImagePNG(60, 85)}

	out, err := Composite(templates, body)
	if err != nil {
		t.Fatalf("Failed to composite: %v", err)
	}

	pages, err := PageCount(out)
	if err != nil {
		t.Fatalf("Output did not parse as PDF: %v", err)
	}
	if pages != 4 {
		t.Errorf("Expected 1 template + 3 body pages = 4, got %d", pages)
	}

	// template page is A4, body pages keep their original size
	size := readPageSizes(t, out, 1)[0]
	if !approxEqual(size.Wd, PageWidthPt) || !approxEqual(size.Ht, PageHeightPt) {
		t.Errorf("Expected A4 template page, got %gx%g", size.Wd, size.Ht)
	}
}

func TestCompositeMultipleTemplates(t *testing.T) {
	body := makeBodyPDF(t, a4Size())
	templates := [][]byte{
		testImagePNG(60, 85),
		testImagePNG(60, 85),
		testImagePNG(60, 85),
	}

	out, err := Composite(templates, body)
	if err != nil {
		t.Fatalf("Failed to composite: %v", err)
	}

	pages, err := PageCount(out)
	if err != nil {
		t.Fatalf("Output did not parse as PDF: %v", err)
	}
	if pages != 4 {
		t.Errorf("Expected 3 template + 1 body pages = 4, got %d", pages)
	}
}

func TestCompositePreservesBodyPageSize(t *testing.T) {
	letter := fpdf.SizeType{Wd: 612, Ht: 792}
	body := makeBodyPDF(t, letter)

	out, err := Composite([][]byte{testImagePNG(60, 85)}, body)
	if err != nil {
		t.Fatalf("Failed to composite: %v", err)
	}

	sizes := readPageSizes(t, out, 2)
	if !approxEqual(sizes[1].Wd, letter.Wd) || !approxEqual(sizes[1].Ht, letter.Ht) {
		t.Errorf("Expected body page to stay %gx%g, got %gx%g", letter.Wd, letter.Ht, sizes[1].Wd, sizes[1].Ht)
	}
}

func TestCompositeCorruptBodyFallsBack(t *testing.T) {
	body := []byte("%PDF-1.4 this is not a real document")

	out, err := Composite([][]byte{testImagePNG(60, 85)}, body)
	if err == nil {
		t.Error("Expected error for corrupt body")
	}
	if !bytes.Equal(out, body) {
		t.Error("Expected original body returned on failure")
	}
}

func TestCompositeBadTemplateFallsBack(t *testing.T) {
	body := makeBodyPDF(t, a4Size())

	out, err := Composite([][]byte{[]byte("not an image")}, body)
	if err == nil {
		t.Error("Expected error for undecodable template page")
	}
	if !bytes.Equal(out, body) {
		t.Error("Expected original body returned on failure")
	}
}
