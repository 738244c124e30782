package coverpage

import (
	"context"
	"fmt"
	"log/slog"
)

// pageCSS pins the fragment to a white A4 sheet so the rasterized image
// maps 1:1 onto a PDF page.
const pageCSS = `<style>
.template-page {
	position: relative;
	width: 210mm;
	height: 297mm;
	margin: 0;
	padding: 0;
	background: white;
	font-family: 'Times New Roman', serif;
	box-sizing: border-box;
	color: black;
	overflow: hidden;
}
.template-page * { box-sizing: border-box; }
.template-page img { max-width: 100%; }
</style>`

// Rasterizer turns a standalone HTML document into a PNG image at 2x
// device scale. Implementations must release any per-call rendering
// surface on both success and failure paths.
type Rasterizer interface {
	Rasterize(ctx context.Context, html string) ([]byte, error)
}

// RenderedPage is one rasterized template page, owned by the compositing
// call that requested it.
type RenderedPage struct {
	Slot Slot
	PNG  []byte
}

// Renderer substitutes variables into slot templates and rasterizes them
type Renderer struct {
	ras Rasterizer
}

func NewRenderer(ras Rasterizer) *Renderer {
	return &Renderer{ras: ras}
}

// WrapPage builds the full HTML document handed to the rasterizer
func WrapPage(fragment string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8">%s</head><body style="margin:0">`+
		`<div class="template-page">%s</div></body></html>`, pageCSS, fragment)
}

// RenderSlot renders a single slot. An absent slot returns (nil, nil)
// without touching the rasterizer. A rasterization failure is logged and
// reported as an error; callers treat the slot as absent.
func (r *Renderer) RenderSlot(ctx context.Context, set TemplateSet, slot Slot, vars map[string]string) ([]byte, error) {
	if !set.Present(slot) {
		return nil, nil
	}
	if r.ras == nil {
		return nil, fmt.Errorf("no rasterizer configured")
	}

	html := WrapPage(Substitute(set.Content(slot), vars))
	png, err := r.ras.Rasterize(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("rasterize %s page: %w", slot, err)
	}
	return png, nil
}

// RenderMergeSlots renders the merge-order slots against one immutable
// variable snapshot. Failed slots are skipped with a log line; the overall
// call never fails, so a broken template degrades to a shorter document
// rather than blocking the workflow.
func (r *Renderer) RenderMergeSlots(ctx context.Context, set TemplateSet, vars Variables) []RenderedPage {
	snapshot := vars.Map()

	var pages []RenderedPage
	for _, slot := range MergeOrder {
		png, err := r.RenderSlot(ctx, set, slot, snapshot)
		if err != nil {
			slog.Warn("template page render failed, skipping slot", "slot", slot, "error", err)
			continue
		}
		if png == nil {
			continue
		}
		pages = append(pages, RenderedPage{Slot: slot, PNG: png})
	}
	return pages
}
