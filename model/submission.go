package model

import (
	"time"
)

// Submission represents one student report submission and its artifact set.
// OriginalPath is written once at upload time; MergedPath is filled in
// lazily the first time a professor opens the preview; ReviewedPath is the
// terminal artifact written at grading time.
type Submission struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	RollNo         string `json:"roll_no,omitempty"`
	Department     string `json:"department,omitempty"`
	SessionYear    string `json:"session_year,omitempty"`
	SubjectID      string `json:"subject_id"`
	SubjectName    string `json:"subject_name"`
	SubjectCode    string `json:"subject_code,omitempty"`
	Topic          string `json:"topic,omitempty"`
	SubmissionType string `json:"submission_type"`
	Filename       string `json:"filename"`

	OriginalPath string `json:"original_path"`
	MergedPath   string `json:"merged_path,omitempty"`
	ReviewedPath string `json:"reviewed_path,omitempty"`

	Status string `json:"status"` // submitted, reviewed
	Marks  int    `json:"marks,omitempty"`

	// AI insight fields, cleared once the submission is graded
	InsightState  string   `json:"insight_state"` // idle, generating, complete, error
	InsightToken  string   `json:"-"`
	Summary       []string `json:"summary,omitempty"`
	Questions     []string `json:"questions,omitempty"`
	SuggestedMark int      `json:"suggested_marks,omitempty"`
	Justification string   `json:"justification,omitempty"`
	InsightError  string   `json:"insight_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Submission status constants
const (
	StatusSubmitted = "submitted"
	StatusReviewed  = "reviewed"
)

// Insight state machine constants
const (
	InsightIdle       = "idle"
	InsightGenerating = "generating"
	InsightComplete   = "complete"
	InsightError      = "error"
)

// Subject represents a course a professor collects submissions for
type Subject struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Department    string    `json:"department"`
	Semester      string    `json:"semester,omitempty"`
	Section       string    `json:"section,omitempty"`
	ProfessorName string    `json:"professor_name"`
	AIEnabled     bool      `json:"ai_enabled"`
	CreatedAt     time.Time `json:"created_at"`
}
