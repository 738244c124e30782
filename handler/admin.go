package handler

import (
	"net/http"
	"time"

	"github.com/anikettagor2/eco-submit/model"
	"github.com/anikettagor2/eco-submit/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves institute settings and subject management
type AdminHandler struct {
	settings *service.SettingsStore
	subjects *service.SubjectStore
}

func NewAdminHandler(settings *service.SettingsStore, subjects *service.SubjectStore) *AdminHandler {
	return &AdminHandler{
		settings: settings,
		subjects: subjects,
	}
}

// GetSettings returns the full settings document (admin only)
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// UpdateSettings replaces the settings document
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var settings model.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.settings.Update(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.settings.Get())
}

type SubjectRequest struct {
	Name          string `json:"name" binding:"required"`
	Code          string `json:"code"`
	Department    string `json:"department"`
	Semester      string `json:"semester"`
	Section       string `json:"section"`
	ProfessorName string `json:"professor_name"`
	AIEnabled     bool   `json:"ai_enabled"`
}

// ListSubjects returns all subjects, oldest first
func (h *AdminHandler) ListSubjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subjects": h.subjects.All()})
}

// CreateSubject adds a subject
func (h *AdminHandler) CreateSubject(c *gin.Context) {
	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	subject := &model.Subject{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Code:          req.Code,
		Department:    req.Department,
		Semester:      req.Semester,
		Section:       req.Section,
		ProfessorName: req.ProfessorName,
		AIEnabled:     req.AIEnabled,
		CreatedAt:     time.Now(),
	}
	h.subjects.Save(subject)

	c.JSON(http.StatusOK, subject)
}

// UpdateSubject replaces an existing subject's fields
func (h *AdminHandler) UpdateSubject(c *gin.Context) {
	subject := h.subjects.Get(c.Param("id"))
	if subject == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}

	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	subject.Name = req.Name
	subject.Code = req.Code
	subject.Department = req.Department
	subject.Semester = req.Semester
	subject.Section = req.Section
	subject.ProfessorName = req.ProfessorName
	subject.AIEnabled = req.AIEnabled
	h.subjects.Save(subject)

	c.JSON(http.StatusOK, subject)
}

// DeleteSubject removes a subject. Existing submissions keep their copied
// subject fields.
func (h *AdminHandler) DeleteSubject(c *gin.Context) {
	if h.subjects.Get(c.Param("id")) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}

	h.subjects.Delete(c.Param("id"))

	c.JSON(http.StatusOK, gin.H{"message": "Subject deleted"})
}
