package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anikettagor2/eco-submit/model"
	"github.com/anikettagor2/eco-submit/pkg/coverpage"
	"github.com/anikettagor2/eco-submit/pkg/pdfkit"
)

// PipelineService runs the document assembly pipeline: rendering template
// pages, compositing them ahead of the uploaded report and stamping the
// reviewed copy. Every stage degrades toward the original document rather
// than failing the workflow.
type PipelineService struct {
	blob       Blob
	renderer   *coverpage.Renderer // nil when headless rendering is disabled
	httpClient *http.Client
}

func NewPipelineService(blob Blob, renderer *coverpage.Renderer) *PipelineService {
	return &PipelineService{
		blob:     blob,
		renderer: renderer,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Artifact object names under one submission prefix
func OriginalObjectName(id, ext string) string {
	return fmt.Sprintf("submissions/%s/original%s", id, ext)
}

func MergedObjectName(id string) string {
	return fmt.Sprintf("submissions/%s/merged.pdf", id)
}

func ReviewedObjectName(id string) string {
	return fmt.Sprintf("submissions/%s/reviewed.pdf", id)
}

// BuildVariables assembles the immutable placeholder snapshot for one
// render pass
func BuildVariables(sub *model.Submission, subject *model.Subject, settings model.Settings) coverpage.Variables {
	sessionYear := sub.SessionYear
	if sessionYear == "" {
		sessionYear = settings.SessionYear
	}

	vars := coverpage.Variables{
		Name:           sub.StudentName,
		RollNo:         sub.RollNo,
		Department:     sub.Department,
		SessionYear:    sessionYear,
		SubjectName:    sub.SubjectName,
		SubjectCode:    sub.SubjectCode,
		Topic:          sub.Topic,
		SubmissionType: sub.SubmissionType,
		InstituteName:  settings.InstituteName,
		Tagline1:       settings.Tagline1,
		Tagline2:       settings.Tagline2,
		Tagline3:       settings.Tagline3,
		LogoURL:        settings.LogoURL,
		CurrentDate:    time.Now().Format("2 January 2006"),
	}
	if subject != nil {
		vars.ProfessorName = subject.ProfessorName
	}
	if sub.Marks > 0 {
		vars.Marks = strconv.Itoa(sub.Marks)
	}
	return vars
}

func templateSet(settings model.Settings) coverpage.TemplateSet {
	return coverpage.TemplateSet{
		Cover:      settings.HTMLCover,
		Inner:      settings.HTMLInner,
		Closing:    settings.HTMLClosing,
		PostReview: settings.HTMLPostReview,
	}
}

// EnsureMergedPreview returns the merged preview document, building and
// persisting it on first access. The returned object name is empty when the
// artifact could not be persisted; the caller still gets usable bytes.
func (p *PipelineService) EnsureMergedPreview(ctx context.Context, sub *model.Submission, subject *model.Subject, settings model.Settings) (string, []byte, error) {
	if sub.MergedPath != "" {
		data, err := p.blob.DownloadFile(ctx, sub.MergedPath)
		if err == nil {
			return sub.MergedPath, data, nil
		}
		slog.Warn("cached merged preview unreadable, rebuilding", "submission_id", sub.ID, "error", err)
	}

	original, err := p.blob.DownloadFile(ctx, sub.OriginalPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch original document: %w", err)
	}

	merged := p.buildMerged(ctx, original, sub, subject, settings)

	objectName := MergedObjectName(sub.ID)
	if err := p.blob.UploadBytes(ctx, objectName, merged, "application/pdf"); err != nil {
		slog.Warn("failed to persist merged preview, serving uncached", "submission_id", sub.ID, "error", err)
		return "", merged, nil
	}
	return objectName, merged, nil
}

// buildMerged renders the configured template slots and composites them
// ahead of the original. Non-PDF originals, disabled rendering and empty
// template sets all pass the original through untouched.
func (p *PipelineService) buildMerged(ctx context.Context, original []byte, sub *model.Submission, subject *model.Subject, settings model.Settings) []byte {
	if !strings.HasSuffix(strings.ToLower(sub.Filename), ".pdf") {
		return original
	}
	if p.renderer == nil {
		return original
	}

	set := templateSet(settings)
	if set.PresentCount() == 0 {
		return original
	}

	vars := BuildVariables(sub, subject, settings)
	rendered := p.renderer.RenderMergeSlots(ctx, set, vars)
	if len(rendered) == 0 {
		return original
	}

	pages := make([][]byte, 0, len(rendered))
	for _, page := range rendered {
		pages = append(pages, page.PNG)
	}

	merged, err := pdfkit.Composite(pages, original)
	if err != nil {
		slog.Warn("composite failed, falling back to original", "submission_id", sub.ID, "error", err)
	}
	return merged
}

// BuildReviewed stamps the merged document and persists the reviewed
// artifact. A stamping failure degrades to the unstamped source so grading
// always produces a document.
func (p *PipelineService) BuildReviewed(ctx context.Context, sub *model.Submission, subject *model.Subject, settings model.Settings, reviewerName string) (string, []byte, error) {
	_, source, err := p.EnsureMergedPreview(ctx, sub, subject, settings)
	if err != nil {
		return "", nil, err
	}

	rec := pdfkit.StampRecord{
		InstituteName: settings.InstituteName,
		ReviewerName:  reviewerName,
		Date:          time.Now().Format("2 January 2006"),
		Logo:          p.fetchLogo(ctx, settings.LogoURL),
	}

	stamped, err := pdfkit.ApplyReviewStamp(source, rec)
	if err != nil {
		slog.Warn("review stamp failed, storing unstamped document", "submission_id", sub.ID, "error", err)
	}

	objectName := ReviewedObjectName(sub.ID)
	if err := p.blob.UploadBytes(ctx, objectName, stamped, "application/pdf"); err != nil {
		return "", nil, fmt.Errorf("failed to persist reviewed document: %w", err)
	}
	return objectName, stamped, nil
}

// fetchLogo pulls the institute logo for the stamp. Any failure just means
// a stamp without a logo.
func (p *PipelineService) fetchLogo(ctx context.Context, logoURL string) []byte {
	if logoURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", logoURL, nil)
	if err != nil {
		slog.Warn("bad logo URL, stamping without logo", "url", logoURL, "error", err)
		return nil
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Warn("logo fetch failed, stamping without logo", "url", logoURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("logo fetch failed, stamping without logo", "url", logoURL, "status", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		slog.Warn("logo read failed, stamping without logo", "url", logoURL, "error", err)
		return nil
	}
	return data
}
