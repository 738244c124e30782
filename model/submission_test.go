package model

import (
	"testing"
	"time"
)

func TestSubmissionStruct(t *testing.T) {
	sub := &Submission{
		ID:             "test-id",
		StudentName:    "Alice",
		SubjectName:    "Data Structures",
		SubjectCode:    "CSX-201",
		SubmissionType: "Assignment",
		Filename:       "report.pdf",
		OriginalPath:   "submissions/test-id/original.pdf",
		Status:         StatusSubmitted,
		InsightState:   InsightIdle,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if sub.ID != "test-id" {
		t.Errorf("Expected ID 'test-id', got '%s'", sub.ID)
	}
	if sub.Status != StatusSubmitted {
		t.Errorf("Expected status '%s', got '%s'", StatusSubmitted, sub.Status)
	}
	if sub.MergedPath != "" {
		t.Error("Expected merged path to start empty")
	}
}

func TestStatusConstants(t *testing.T) {
	statuses := []string{StatusSubmitted, StatusReviewed}
	expected := []string{"submitted", "reviewed"}

	for i, status := range statuses {
		if status != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
	}
}

func TestInsightStateConstants(t *testing.T) {
	states := []string{InsightIdle, InsightGenerating, InsightComplete, InsightError}
	expected := []string{"idle", "generating", "complete", "error"}

	for i, state := range states {
		if state != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], state)
		}
	}
}
