package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anikettagor2/eco-submit/config"
)

type GeminiService struct {
	config     *config.GeminiConfig
	httpClient *http.Client

	maxAttempts int
	retryDelay  time.Duration
}

// GeminiRequest represents a generateContent request body
type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiResponse represents the generateContent response
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Insights is the structured review aid generated for one submission
type Insights struct {
	Summary       []string `json:"summary"`
	Questions     []string `json:"questions"`
	SuggestedMark int      `json:"suggestedMarks"`
	Justification string   `json:"justification"`
}

// TopicCheck is the verdict on whether a proposed topic fits a subject.
// OfflineBypass marks a verdict produced by the local heuristic rather
// than the model.
type TopicCheck struct {
	IsRelevant    bool   `json:"isRelevant"`
	Reason        string `json:"reason"`
	OfflineBypass bool   `json:"-"`
}

// document text beyond this adds cost without improving the output
const maxPromptChars = 15000

func NewGeminiService(cfg *config.GeminiConfig) *GeminiService {
	return &GeminiService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxAttempts: 3,
		retryDelay:  2 * time.Second,
	}
}

// resolveKey prefers the admin-managed key over the deployment config key
func (s *GeminiService) resolveKey(override string) string {
	if override != "" {
		return override
	}
	return s.config.APIKey
}

// GenerateInsights asks the model for a review aid over extracted document
// text: summary bullets, viva questions and a suggested mark with a
// justification. The apiKey override comes from admin settings.
func (s *GeminiService) GenerateInsights(text, subjectName, topic, apiKey string) (*Insights, error) {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	prompt := fmt.Sprintf(`You are assisting a professor reviewing a student assignment for the subject "%s"`, subjectName)
	if topic != "" {
		prompt += fmt.Sprintf(` on the topic "%s"`, topic)
	}
	prompt += `.
Respond with only a JSON object, no markdown, in this exact shape:
{"summary": ["3 to 5 bullet points"], "questions": ["3 viva questions to verify the student's understanding"], "suggestedMarks": <integer 0-100>, "justification": "<one sentence>"}

Assignment text:
` + text

	raw, err := s.generate(prompt, apiKey)
	if err != nil {
		return nil, err
	}

	var insights Insights
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &insights); err != nil {
		return nil, fmt.Errorf("failed to parse insights response: %w, body: %s", err, raw)
	}
	return &insights, nil
}

// CheckTopic asks the model whether a proposed topic belongs to a subject.
// When the model is unreachable the check fails open so an API outage never
// blocks a submission.
func (s *GeminiService) CheckTopic(topic, subjectName, apiKey string) *TopicCheck {
	prompt := fmt.Sprintf(`Is the topic "%s" relevant to the academic subject "%s"?
Respond with only a JSON object, no markdown: {"isRelevant": <boolean>, "reason": "<one sentence>"}`, topic, subjectName)

	raw, err := s.generate(prompt, apiKey)
	if err != nil {
		return fallbackTopicCheck(topic, subjectName)
	}

	var check TopicCheck
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &check); err != nil {
		return fallbackTopicCheck(topic, subjectName)
	}
	return &check
}

// fallbackTopicCheck is the keyword heuristic used when the model cannot
// answer. It always accepts; the reason records how the verdict was reached.
func fallbackTopicCheck(topic, subjectName string) *TopicCheck {
	topicLower := strings.ToLower(topic)
	for _, word := range strings.Fields(strings.ToLower(subjectName)) {
		if len(word) > 3 && strings.Contains(topicLower, word) {
			return &TopicCheck{
				IsRelevant:    true,
				Reason:        fmt.Sprintf("Topic mentions %q from the subject name (automated check unavailable)", word),
				OfflineBypass: true,
			}
		}
	}
	return &TopicCheck{
		IsRelevant:    true,
		Reason:        "Automated topic check unavailable, accepted by default",
		OfflineBypass: true,
	}
}

// generate performs one generateContent call with retries on transient
// failures (network errors, 429, 503)
func (s *GeminiService) generate(prompt, apiKeyOverride string) (string, error) {
	apiKey := s.resolveKey(apiKeyOverride)
	if apiKey == "" {
		return "", errors.New("no Gemini API key configured")
	}

	reqBody := GeminiRequest{
		Contents: []GeminiContent{{Parts: []GeminiPart{{Text: prompt}}}},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.config.APIURL, s.config.Model)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(s.retryDelay)
		}

		text, retryable, err := s.doGenerate(url, apiKey, jsonData)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("Gemini API unavailable after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *GeminiService) doGenerate(url, apiKey string, jsonData []byte) (string, bool, error) {
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return "", true, fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, string(body))
	}

	var result GeminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	if result.Error != nil {
		return "", false, fmt.Errorf("Gemini API error: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", false, errors.New("Gemini API returned no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, false, nil
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// JSON answers in
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
