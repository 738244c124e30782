package model

import "time"

// Settings is the single admin-managed configuration document: institute
// branding, the four HTML page template slots and the AI API key. It is
// persisted as one JSON object in the blob store and cached in memory.
type Settings struct {
	InstituteName string `json:"institute_name"`
	Tagline1      string `json:"tagline1,omitempty"`
	Tagline2      string `json:"tagline2,omitempty"`
	Tagline3      string `json:"tagline3,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	SessionYear   string `json:"session_year,omitempty"`

	// HTML template slots; an empty slot produces no page
	HTMLCover      string `json:"html_cover,omitempty"`
	HTMLInner      string `json:"html_inner,omitempty"`
	HTMLClosing    string `json:"html_closing,omitempty"`
	HTMLPostReview string `json:"html_post_review,omitempty"`

	GeminiAPIKey string `json:"gemini_api_key,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
