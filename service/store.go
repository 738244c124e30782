package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/anikettagor2/eco-submit/config"
	"github.com/anikettagor2/eco-submit/model"
)

// ArtifactCleaner removes a submission's stored artifacts once its record
// is evicted. *MinioService satisfies it.
type ArtifactCleaner interface {
	DeleteFile(ctx context.Context, objectName string) error
}

// SubmissionStore is an in-memory store for submissions
// In production, this should be replaced with a database
type SubmissionStore struct {
	submissions    map[string]*model.Submission
	grading        map[string]bool // submission ids claimed by an in-flight grade request
	mu             sync.RWMutex
	maxSubmissions int // Maximum submissions to keep, 0 = unlimited
	cleaner        ArtifactCleaner
}

var (
	globalStore *SubmissionStore
	storeOnce   sync.Once
)

// InitSubmissionStore initializes the global submission store with
// configuration. The cleaner, when non-nil, removes evicted submissions'
// blob artifacts.
func InitSubmissionStore(cfg *config.StoreConfig, cleaner ArtifactCleaner) {
	storeOnce.Do(func() {
		maxSubmissions := cfg.MaxSubmissions
		if maxSubmissions < 0 {
			maxSubmissions = 0
		}
		globalStore = &SubmissionStore{
			submissions:    make(map[string]*model.Submission),
			grading:        make(map[string]bool),
			maxSubmissions: maxSubmissions,
			cleaner:        cleaner,
		}
		slog.Info("submission store initialized", "max_submissions", maxSubmissions)
	})
}

// GetSubmissionStore returns the global submission store
func GetSubmissionStore() *SubmissionStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &SubmissionStore{
			submissions:    make(map[string]*model.Submission),
			grading:        make(map[string]bool),
			maxSubmissions: 500,
		}
	}
	return globalStore
}

func (s *SubmissionStore) Save(sub *model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.UpdatedAt = time.Now()
	s.submissions[sub.ID] = sub

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
}

func (s *SubmissionStore) Get(id string) *model.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submissions[id]
}

// GetByStudent returns the submissions of one student, newest first
func (s *SubmissionStore) GetByStudent(studentID string) []*model.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Submission
	for _, sub := range s.submissions {
		if sub.StudentID == studentID {
			result = append(result, sub)
		}
	}
	sortNewestFirst(result)
	return result
}

// All returns every submission, newest first
func (s *SubmissionStore) All() []*model.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		result = append(result, sub)
	}
	sortNewestFirst(result)
	return result
}

func (s *SubmissionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submissions, id)
	delete(s.grading, id)
}

// UpdateMergedPath records the lazily built preview artifact
func (s *SubmissionStore) UpdateMergedPath(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.submissions[id]; ok {
		sub.MergedPath = path
		sub.UpdatedAt = time.Now()
	}
}

// BeginGrading claims a submission for one grade request. The claim fails
// when the submission is missing, already reviewed, or held by another
// in-flight grade, so two concurrent graders cannot both build and store a
// reviewed artifact.
func (s *SubmissionStore) BeginGrading(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok || sub.Status == model.StatusReviewed || s.grading[id] {
		return false
	}

	s.grading[id] = true
	return true
}

// AbortGrading releases a grading claim after a failed build
func (s *SubmissionStore) AbortGrading(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grading, id)
}

// MarkReviewed finalizes a submission: marks are set, the reviewed artifact
// path is recorded, any grading claim is released and all AI insight fields
// are cleared
func (s *SubmissionStore) MarkReviewed(id, reviewedPath string, marks int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok || sub.Status == model.StatusReviewed {
		return false
	}

	delete(s.grading, id)
	sub.Status = model.StatusReviewed
	sub.ReviewedPath = reviewedPath
	sub.Marks = marks
	sub.InsightState = model.InsightIdle
	sub.InsightToken = ""
	sub.Summary = nil
	sub.Questions = nil
	sub.SuggestedMark = 0
	sub.Justification = ""
	sub.InsightError = ""
	sub.UpdatedAt = time.Now()
	return true
}

// BeginInsights moves a submission into the generating state and hands back
// a token the worker must present to publish its result. A fresh call
// invalidates the token of any still-running worker, so a stale result is
// silently discarded.
func (s *SubmissionStore) BeginInsights(id, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok || sub.Status == model.StatusReviewed {
		return false
	}

	sub.InsightState = model.InsightGenerating
	sub.InsightToken = token
	sub.InsightError = ""
	sub.UpdatedAt = time.Now()
	return true
}

// CompleteInsights publishes a generation result if the token still matches
func (s *SubmissionStore) CompleteInsights(id, token string, summary, questions []string, suggestedMark int, justification string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok || sub.InsightToken != token {
		return false
	}

	sub.InsightState = model.InsightComplete
	sub.Summary = summary
	sub.Questions = questions
	sub.SuggestedMark = suggestedMark
	sub.Justification = justification
	sub.InsightError = ""
	sub.UpdatedAt = time.Now()
	return true
}

// FailInsights records a generation failure if the token still matches
func (s *SubmissionStore) FailInsights(id, token, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok || sub.InsightToken != token {
		return false
	}

	sub.InsightState = model.InsightError
	sub.InsightError = errMsg
	sub.UpdatedAt = time.Now()
	return true
}

// cleanupIfNeeded removes oldest submissions if store exceeds maxSubmissions
// Must be called with lock held
func (s *SubmissionStore) cleanupIfNeeded() {
	if s.maxSubmissions <= 0 {
		return // Unlimited
	}

	if len(s.submissions) <= s.maxSubmissions {
		return
	}

	// Sort submissions by creation time
	subs := make([]*model.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})

	// Remove oldest submissions
	removeCount := len(subs) - s.maxSubmissions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old submission",
			"submission_id", subs[i].ID,
			"created_at", subs[i].CreatedAt,
		)
		delete(s.submissions, subs[i].ID)
		delete(s.grading, subs[i].ID)
		if s.cleaner != nil {
			go s.deleteArtifacts(subs[i])
		}
	}
}

// deleteArtifacts removes an evicted submission's blob objects. Runs
// outside the store lock; failures are logged, not retried.
func (s *SubmissionStore) deleteArtifacts(sub *model.Submission) {
	ctx := context.Background()
	for _, objectName := range []string{sub.OriginalPath, sub.MergedPath, sub.ReviewedPath} {
		if objectName == "" {
			continue
		}
		if err := s.cleaner.DeleteFile(ctx, objectName); err != nil {
			slog.Warn("failed to delete evicted artifact",
				"submission_id", sub.ID,
				"object", objectName,
				"error", err,
			)
		}
	}
}

// Count returns the number of submissions in the store
func (s *SubmissionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}

func sortNewestFirst(subs []*model.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

// SubjectStore is an in-memory store for the admin-managed subject list
type SubjectStore struct {
	subjects map[string]*model.Subject
	mu       sync.RWMutex
}

func NewSubjectStore() *SubjectStore {
	return &SubjectStore{subjects: make(map[string]*model.Subject)}
}

func (s *SubjectStore) Save(subject *model.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subject.ID] = subject
}

func (s *SubjectStore) Get(id string) *model.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects[id]
}

func (s *SubjectStore) All() []*model.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		result = append(result, subject)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SubjectStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subjects, id)
}
