// Package coverpage renders admin-authored HTML page templates into
// fixed-size A4 raster images for embedding as PDF pages.
package coverpage

import "strings"

// Slot is one of the fixed positions a page template may occupy in the
// assembled document.
type Slot string

const (
	SlotCover      Slot = "cover"
	SlotInner      Slot = "inner"
	SlotClosing    Slot = "closing"
	SlotPostReview Slot = "post_review"
)

// MergeOrder is the fixed order in which present slots are inserted ahead
// of the body document. The post-review slot is configurable but not part
// of the merge order; stamping never changes page count.
var MergeOrder = []Slot{SlotCover, SlotInner, SlotClosing}

// TemplateSet holds the HTML fragment for each slot. A slot whose content
// is empty or whitespace-only is absent: it is never rendered and never
// produces a page.
type TemplateSet struct {
	Cover      string
	Inner      string
	Closing    string
	PostReview string
}

// Content returns the raw fragment for a slot
func (t TemplateSet) Content(s Slot) string {
	switch s {
	case SlotCover:
		return t.Cover
	case SlotInner:
		return t.Inner
	case SlotClosing:
		return t.Closing
	case SlotPostReview:
		return t.PostReview
	}
	return ""
}

// Present reports whether a slot has renderable content
func (t TemplateSet) Present(s Slot) bool {
	return strings.TrimSpace(t.Content(s)) != ""
}

// PresentCount returns how many merge-order slots have content
func (t TemplateSet) PresentCount() int {
	n := 0
	for _, s := range MergeOrder {
		if t.Present(s) {
			n++
		}
	}
	return n
}
