package handler

import (
	"context"
	"net/http"

	"github.com/anikettagor2/eco-submit/middleware"
	"github.com/anikettagor2/eco-submit/model"
	"github.com/anikettagor2/eco-submit/pkg/logger"
	"github.com/anikettagor2/eco-submit/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReviewHandler serves the professor-facing review endpoints
type ReviewHandler struct {
	storage  ObjectStore
	pipeline *service.PipelineService
	gemini   *service.GeminiService
	settings *service.SettingsStore
	store    *service.SubmissionStore
	subjects *service.SubjectStore
}

func NewReviewHandler(storage ObjectStore, pipeline *service.PipelineService, geminiSvc *service.GeminiService, settings *service.SettingsStore, subjects *service.SubjectStore) *ReviewHandler {
	return &ReviewHandler{
		storage:  storage,
		pipeline: pipeline,
		gemini:   geminiSvc,
		settings: settings,
		store:    service.GetSubmissionStore(),
		subjects: subjects,
	}
}

// List returns every submission for the review queue
func (h *ReviewHandler) List(c *gin.Context) {
	subs := h.store.All()

	result := make([]gin.H, len(subs))
	for i, sub := range subs {
		result[i] = gin.H{
			"id":              sub.ID,
			"student_name":    sub.StudentName,
			"roll_no":         sub.RollNo,
			"subject_id":      sub.SubjectID,
			"subject_name":    sub.SubjectName,
			"topic":           sub.Topic,
			"submission_type": sub.SubmissionType,
			"filename":        sub.Filename,
			"status":          sub.Status,
			"marks":           sub.Marks,
			"insight_state":   sub.InsightState,
			"created_at":      sub.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"submissions": result})
}

// Get returns one submission with its insight fields
func (h *ReviewHandler) Get(c *gin.Context) {
	sub := h.store.Get(c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Preview serves the merged document, building it on first access. The
// merged artifact is cached; later previews reuse it.
func (h *ReviewHandler) Preview(c *gin.Context) {
	sub := h.store.Get(c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	// One settings snapshot for the whole build
	settings := h.settings.Get()
	subject := h.subjects.Get(sub.SubjectID)

	objectName, data, err := h.pipeline.EnsureMergedPreview(c.Request.Context(), sub, subject, settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build preview: " + err.Error()})
		return
	}
	if objectName != "" && sub.MergedPath != objectName {
		h.store.UpdateMergedPath(sub.ID, objectName)
	}

	c.Data(http.StatusOK, "application/pdf", data)
}

// Insights kicks off AI insight generation for a submission. Generation
// runs in the background; the submission record carries the state. A
// repeated request supersedes any still-running one.
func (h *ReviewHandler) Insights(c *gin.Context) {
	sub := h.store.Get(c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if sub.Status == model.StatusReviewed {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission already graded"})
		return
	}

	token := uuid.New().String()
	if !h.store.BeginInsights(sub.ID, token) {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission already graded"})
		return
	}

	settings := h.settings.Get()
	go h.generateInsights(sub.ID, sub.OriginalPath, sub.Filename, sub.SubjectName, sub.Topic, settings.GeminiAPIKey, token)

	c.JSON(http.StatusAccepted, gin.H{
		"id":            sub.ID,
		"insight_state": model.InsightGenerating,
	})
}

// generateInsights is the background worker behind Insights. It publishes
// its result only if its token is still current.
func (h *ReviewHandler) generateInsights(id, originalPath, filename, subjectName, topic, apiKey, token string) {
	ctx := context.Background()

	data, err := h.storage.DownloadFile(ctx, originalPath)
	if err != nil {
		h.store.FailInsights(id, token, "Failed to fetch document: "+err.Error())
		return
	}

	text, err := service.ExtractText(data, filename)
	if err != nil {
		h.store.FailInsights(id, token, "Failed to extract text: "+err.Error())
		return
	}

	insights, err := h.gemini.GenerateInsights(text, subjectName, topic, apiKey)
	if err != nil {
		h.store.FailInsights(id, token, err.Error())
		return
	}

	if !h.store.CompleteInsights(id, token, insights.Summary, insights.Questions, insights.SuggestedMark, insights.Justification) {
		logger.Warn(ctx, "discarding stale insight result", "submission_id", id)
	}
}

type GradeRequest struct {
	Marks *int `json:"marks" binding:"required"`
}

// Grade finalizes a submission: the reviewed artifact is stamped and
// stored, marks are recorded and the insight fields are cleared. Grading
// is once-only.
func (h *ReviewHandler) Grade(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil || *req.Marks < 0 || *req.Marks > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Marks must be between 0 and 100"})
		return
	}

	sub := h.store.Get(c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	// Claim the submission before building so a concurrent grade request
	// cannot overwrite the reviewed artifact after the first one commits
	if !h.store.BeginGrading(sub.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission already graded"})
		return
	}

	settings := h.settings.Get()
	subject := h.subjects.Get(sub.SubjectID)
	reviewerName := middleware.GetName(c)

	objectName, _, err := h.pipeline.BuildReviewed(c.Request.Context(), sub, subject, settings, reviewerName)
	if err != nil {
		h.store.AbortGrading(sub.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build reviewed document: " + err.Error()})
		return
	}

	if !h.store.MarkReviewed(sub.ID, objectName, *req.Marks) {
		h.store.AbortGrading(sub.ID)
		c.JSON(http.StatusConflict, gin.H{"error": "Submission already graded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     sub.ID,
		"status": model.StatusReviewed,
		"marks":  *req.Marks,
	})
}

// Download hands the professor a presigned URL for an artifact
func (h *ReviewHandler) Download(c *gin.Context) {
	sub := h.store.Get(c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	objectName := sub.OriginalPath
	switch c.Query("artifact") {
	case "merged":
		if sub.MergedPath == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "No merged artifact yet"})
			return
		}
		objectName = sub.MergedPath
	case "reviewed":
		if sub.ReviewedPath == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "No reviewed artifact yet"})
			return
		}
		objectName = sub.ReviewedPath
	}

	url, err := h.storage.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
