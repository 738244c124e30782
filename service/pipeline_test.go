package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anikettagor2/eco-submit/model"
	"github.com/anikettagor2/eco-submit/pkg/coverpage"
	"github.com/anikettagor2/eco-submit/pkg/pdfkit"
)

type fakeRasterizer struct {
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string) ([]byte, error) {
	f.calls++

	img := image.NewRGBA(image.Rect(0, 0, 40, 56))
	for y := 0; y < 56; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes(), nil
}

func testSubmission() *model.Submission {
	return &model.Submission{
		ID:             "sub-1",
		StudentID:      "student1",
		StudentName:    "Alice",
		RollNo:         "CS-42",
		SubjectID:      "subj-1",
		SubjectName:    "Data Structures",
		Topic:          "B-Trees",
		SubmissionType: "Assignment",
		Filename:       "report.pdf",
		OriginalPath:   "submissions/sub-1/original.pdf",
		Status:         model.StatusSubmitted,
	}
}

func testSettings() model.Settings {
	return model.Settings{
		InstituteName: "Green Valley Institute",
		SessionYear:   "2025-26",
		HTMLCover:     "<h1>{{name}} / {{subjectName}}</h1>",
	}
}

func TestEnsureMergedPreviewNoRenderer(t *testing.T) {
	blob := newFakeBlob()
	original := makeTextPDF(t, "body content")
	blob.objects["submissions/sub-1/original.pdf"] = original

	p := NewPipelineService(blob, nil)
	name, data, err := p.EnsureMergedPreview(context.Background(), testSubmission(), nil, testSettings())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !bytes.Equal(data, original) {
		t.Error("Expected original passed through when rendering is disabled")
	}
	if name != "submissions/sub-1/merged.pdf" {
		t.Errorf("Expected merged object name, got '%s'", name)
	}
	if _, ok := blob.objects[name]; !ok {
		t.Error("Expected merged artifact persisted")
	}
}

func TestEnsureMergedPreviewPrependsTemplatePages(t *testing.T) {
	blob := newFakeBlob()
	original := makeTextPDF(t, "page one", "page two")
	blob.objects["submissions/sub-1/original.pdf"] = original

	ras := &fakeRasterizer{}
	p := NewPipelineService(blob, coverpage.NewRenderer(ras))

	_, data, err := p.EnsureMergedPreview(context.Background(), testSubmission(), nil, testSettings())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	pages, err := pdfkit.PageCount(data)
	if err != nil {
		t.Fatalf("Merged output did not parse as PDF: %v", err)
	}
	if pages != 3 {
		t.Errorf("Expected cover + 2 body pages = 3, got %d", pages)
	}
	if ras.calls != 1 {
		t.Errorf("Expected one slot rendered, got %d calls", ras.calls)
	}
}

func TestEnsureMergedPreviewUsesCache(t *testing.T) {
	blob := newFakeBlob()
	cached := makeTextPDF(t, "cached preview")
	blob.objects["submissions/sub-1/merged.pdf"] = cached

	sub := testSubmission()
	sub.MergedPath = "submissions/sub-1/merged.pdf"

	ras := &fakeRasterizer{}
	p := NewPipelineService(blob, coverpage.NewRenderer(ras))

	name, data, err := p.EnsureMergedPreview(context.Background(), sub, nil, testSettings())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bytes.Equal(data, cached) {
		t.Error("Expected cached artifact returned")
	}
	if name != sub.MergedPath {
		t.Errorf("Expected cached object name, got '%s'", name)
	}
	if ras.calls != 0 {
		t.Error("Expected no rendering for cached preview")
	}
}

func TestEnsureMergedPreviewNonPDFOriginal(t *testing.T) {
	blob := newFakeBlob()
	original := []byte("docx bytes, not a pdf")
	blob.objects["submissions/sub-1/original.docx"] = original

	sub := testSubmission()
	sub.Filename = "report.docx"
	sub.OriginalPath = "submissions/sub-1/original.docx"

	p := NewPipelineService(blob, coverpage.NewRenderer(&fakeRasterizer{}))
	_, data, err := p.EnsureMergedPreview(context.Background(), sub, nil, testSettings())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Error("Expected non-PDF original passed through untouched")
	}
}

func TestEnsureMergedPreviewMissingOriginal(t *testing.T) {
	p := NewPipelineService(newFakeBlob(), nil)
	if _, _, err := p.EnsureMergedPreview(context.Background(), testSubmission(), nil, testSettings()); err == nil {
		t.Error("Expected error when original artifact is missing")
	}
}

func TestEnsureMergedPreviewUploadFailureStillServes(t *testing.T) {
	blob := newFakeBlob()
	original := makeTextPDF(t, "body")
	blob.objects["submissions/sub-1/original.pdf"] = original
	blob.failPut = true

	p := NewPipelineService(blob, nil)
	name, data, err := p.EnsureMergedPreview(context.Background(), testSubmission(), nil, testSettings())
	if err != nil {
		t.Fatalf("Expected preview served despite persistence failure: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected usable preview bytes")
	}
	if name != "" {
		t.Error("Expected empty object name when persistence failed")
	}
}

func TestBuildReviewedStampsDocument(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["submissions/sub-1/original.pdf"] = makeTextPDF(t, "final report")

	p := NewPipelineService(blob, nil)
	name, data, err := p.BuildReviewed(context.Background(), testSubmission(), nil, testSettings(), "Dr. Rao")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if name != "submissions/sub-1/reviewed.pdf" {
		t.Errorf("Expected reviewed object name, got '%s'", name)
	}
	if _, ok := blob.objects[name]; !ok {
		t.Error("Expected reviewed artifact persisted")
	}

	text, err := ExtractText(data, "reviewed.pdf")
	if err != nil {
		t.Fatalf("Failed to extract stamped text: %v", err)
	}
	if !strings.Contains(text, "VERIFIED") {
		t.Error("Expected stamp on reviewed document")
	}
	if !strings.Contains(text, "Reviewed By: Dr. Rao") {
		t.Error("Expected reviewer name on stamp")
	}
}

func TestBuildReviewedWithLogo(t *testing.T) {
	logoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 32, 16))
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, img)
	}))
	defer logoServer.Close()

	blob := newFakeBlob()
	blob.objects["submissions/sub-1/original.pdf"] = makeTextPDF(t, "final report")

	settings := testSettings()
	settings.LogoURL = logoServer.URL

	p := NewPipelineService(blob, nil)
	_, data, err := p.BuildReviewed(context.Background(), testSubmission(), nil, settings, "Dr. Rao")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text, _ := ExtractText(data, "reviewed.pdf"); !strings.Contains(text, "VERIFIED") {
		t.Error("Expected stamp with logo present")
	}
}

func TestBuildReviewedLogoFetchFailureDegrades(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["submissions/sub-1/original.pdf"] = makeTextPDF(t, "final report")

	settings := testSettings()
	settings.LogoURL = "http://invalid-host-that-does-not-exist:9999/logo.png"

	p := NewPipelineService(blob, nil)
	_, data, err := p.BuildReviewed(context.Background(), testSubmission(), nil, settings, "Dr. Rao")
	if err != nil {
		t.Fatalf("Expected grading to proceed without logo: %v", err)
	}
	if text, _ := ExtractText(data, "reviewed.pdf"); !strings.Contains(text, "VERIFIED") {
		t.Error("Expected stamp without logo")
	}
}

func TestBuildReviewedUnstampableDocument(t *testing.T) {
	blob := newFakeBlob()
	original := []byte("docx bytes, not a pdf")
	blob.objects["submissions/sub-1/original.docx"] = original

	sub := testSubmission()
	sub.Filename = "report.docx"
	sub.OriginalPath = "submissions/sub-1/original.docx"

	p := NewPipelineService(blob, nil)
	_, data, err := p.BuildReviewed(context.Background(), sub, nil, testSettings(), "Dr. Rao")
	if err != nil {
		t.Fatalf("Expected grading to degrade to the unstamped source: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Error("Expected unstampable source stored as-is")
	}
}

func TestBuildVariables(t *testing.T) {
	sub := testSubmission()
	subject := &model.Subject{ID: "subj-1", ProfessorName: "Prof. Iyer"}

	vars := BuildVariables(sub, subject, testSettings())

	if vars.Name != "Alice" {
		t.Errorf("Expected student name, got '%s'", vars.Name)
	}
	if vars.ProfessorName != "Prof. Iyer" {
		t.Errorf("Expected professor name from subject, got '%s'", vars.ProfessorName)
	}
	// Session year falls back to settings when the submission has none
	if vars.SessionYear != "2025-26" {
		t.Errorf("Expected settings session year, got '%s'", vars.SessionYear)
	}
	if vars.Marks != "" {
		t.Errorf("Expected empty marks before grading, got '%s'", vars.Marks)
	}
	if vars.CurrentDate == "" {
		t.Error("Expected current date to be set")
	}
}

func TestBuildVariablesGradedMarks(t *testing.T) {
	sub := testSubmission()
	sub.Marks = 88
	sub.SessionYear = "2024-25"

	vars := BuildVariables(sub, nil, testSettings())
	if vars.Marks != "88" {
		t.Errorf("Expected marks '88', got '%s'", vars.Marks)
	}
	if vars.SessionYear != "2024-25" {
		t.Errorf("Expected submission session year to win, got '%s'", vars.SessionYear)
	}
}

func TestObjectNames(t *testing.T) {
	if got := OriginalObjectName("abc", ".pdf"); got != "submissions/abc/original.pdf" {
		t.Errorf("Unexpected original object name: %s", got)
	}
	if got := MergedObjectName("abc"); got != "submissions/abc/merged.pdf" {
		t.Errorf("Unexpected merged object name: %s", got)
	}
	if got := ReviewedObjectName("abc"); got != "submissions/abc/reviewed.pdf" {
		t.Errorf("Unexpected reviewed object name: %s", got)
	}
}
