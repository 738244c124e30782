package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/anikettagor2/eco-submit/config"
	"github.com/anikettagor2/eco-submit/middleware"
	"github.com/anikettagor2/eco-submit/model"
	"github.com/anikettagor2/eco-submit/pkg/pdfkit"
	"github.com/anikettagor2/eco-submit/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ObjectStore is the artifact storage surface the handlers depend on.
// *service.MinioService satisfies it.
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
}

// SubmissionHandler serves the student-facing submission endpoints
type SubmissionHandler struct {
	storage  ObjectStore
	gemini   *service.GeminiService
	settings *service.SettingsStore
	store    *service.SubmissionStore
	subjects *service.SubjectStore
	config   *config.Config
}

func NewSubmissionHandler(storage ObjectStore, geminiSvc *service.GeminiService, settings *service.SettingsStore, subjects *service.SubjectStore, cfg *config.Config) *SubmissionHandler {
	return &SubmissionHandler{
		storage:  storage,
		gemini:   geminiSvc,
		settings: settings,
		store:    service.GetSubmissionStore(),
		subjects: subjects,
		config:   cfg,
	}
}

// Upload handles a finished report upload (PDF or DOCX)
func (h *SubmissionHandler) Upload(c *gin.Context) {
	// Get file from form
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Validate file type - PDF and DOCX allowed
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".docx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}

	// Determine content type based on extension
	var expectedContentType string
	if ext == ".pdf" {
		expectedContentType = "application/pdf"
	} else {
		expectedContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}

	// Validate content type
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = expectedContentType
	} else if ext == ".pdf" && !strings.Contains(contentType, "pdf") {
		// Try to detect from file header for PDF
		buffer := make([]byte, 512)
		_, err := file.Read(buffer)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		file.Seek(0, io.SeekStart) // Reset file pointer

		detectedType := http.DetectContentType(buffer)
		if !strings.Contains(detectedType, "pdf") && detectedType != "application/octet-stream" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
			return
		}
		contentType = "application/pdf"
	} else if ext == ".docx" {
		contentType = expectedContentType
	}

	sub, ok := h.newSubmission(c, header.Filename, ext)
	if !ok {
		return
	}

	// Upload to MINIO
	err = h.storage.UploadFile(c.Request.Context(), sub.OriginalPath, file, header.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	h.store.Save(sub)

	c.JSON(http.StatusOK, gin.H{
		"id":       sub.ID,
		"filename": sub.Filename,
		"status":   sub.Status,
	})
}

// Capture assembles camera-captured page images into a single PDF
// submission, one page per image in capture order
func (h *SubmissionHandler) Capture(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	files := form.File["pages"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No page images provided"})
		return
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read page image"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read page image"})
			return
		}
		images = append(images, data)
	}

	pdfBytes, err := pdfkit.AssembleImages(images)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to assemble pages: " + err.Error()})
		return
	}

	sub, ok := h.newSubmission(c, "captured-pages.pdf", ".pdf")
	if !ok {
		return
	}

	if err := h.storage.UploadBytes(c.Request.Context(), sub.OriginalPath, pdfBytes, "application/pdf"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload document: " + err.Error()})
		return
	}

	h.store.Save(sub)

	c.JSON(http.StatusOK, gin.H{
		"id":       sub.ID,
		"filename": sub.Filename,
		"pages":    len(images),
		"status":   sub.Status,
	})
}

// newSubmission builds the submission record from form fields and the
// logged-in student's profile
func (h *SubmissionHandler) newSubmission(c *gin.Context, filename, ext string) (*model.Submission, bool) {
	subjectID := c.PostForm("subject_id")
	subject := h.subjects.Get(subjectID)
	if subject == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown subject"})
		return nil, false
	}

	username := middleware.GetUsername(c)
	sub := &model.Submission{
		ID:             uuid.New().String(),
		StudentID:      username,
		StudentName:    middleware.GetName(c),
		SubjectID:      subject.ID,
		SubjectName:    subject.Name,
		SubjectCode:    subject.Code,
		Topic:          c.PostForm("topic"),
		SubmissionType: c.PostForm("submission_type"),
		Filename:       filename,
		Status:         model.StatusSubmitted,
		InsightState:   model.InsightIdle,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	sub.OriginalPath = service.OriginalObjectName(sub.ID, ext)
	if sub.SubmissionType == "" {
		sub.SubmissionType = "Assignment"
	}

	if user := h.config.FindUser(username); user != nil {
		sub.RollNo = user.RollNo
		sub.Department = user.Department
		sub.SessionYear = user.SessionYear
	}
	return sub, true
}

type TopicCheckRequest struct {
	Topic     string `json:"topic" binding:"required"`
	SubjectID string `json:"subject_id" binding:"required"`
}

// TopicCheck asks the AI whether a proposed topic fits the subject. The
// verdict is advisory; submission is never blocked on it.
func (h *SubmissionHandler) TopicCheck(c *gin.Context) {
	var req TopicCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	subject := h.subjects.Get(req.SubjectID)
	if subject == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown subject"})
		return
	}

	settings := h.settings.Get()
	check := h.gemini.CheckTopic(req.Topic, subject.Name, settings.GeminiAPIKey)

	c.JSON(http.StatusOK, gin.H{
		"is_relevant":    check.IsRelevant,
		"reason":         check.Reason,
		"offline_bypass": check.OfflineBypass,
	})
}

// ListMine returns the logged-in student's submissions
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	username := middleware.GetUsername(c)
	subs := h.store.GetByStudent(username)

	result := make([]gin.H, len(subs))
	for i, sub := range subs {
		result[i] = gin.H{
			"id":              sub.ID,
			"filename":        sub.Filename,
			"subject_id":      sub.SubjectID,
			"subject_name":    sub.SubjectName,
			"topic":           sub.Topic,
			"submission_type": sub.SubmissionType,
			"status":          sub.Status,
			"marks":           sub.Marks,
			"created_at":      sub.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at":      sub.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"submissions": result})
}

// Download hands the student a presigned URL for one of their artifacts.
// Reviewed submissions serve the stamped copy, everything else the
// original upload.
func (h *SubmissionHandler) Download(c *gin.Context) {
	username := middleware.GetUsername(c)
	id := c.Param("id")

	sub := h.store.Get(id)
	if sub == nil || sub.StudentID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	objectName := sub.OriginalPath
	if sub.Status == model.StatusReviewed && sub.ReviewedPath != "" {
		objectName = sub.ReviewedPath
	}

	url, err := h.storage.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
