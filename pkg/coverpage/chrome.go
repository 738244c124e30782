package coverpage

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 at 96dpi CSS pixels; the 2x device scale factor doubles the raster
// resolution for print quality.
const (
	viewportWidth  = 794
	viewportHeight = 1123
	deviceScale    = 2.0
)

// ChromeRasterizer renders template pages off-screen in a headless
// browser. One browser is shared across calls; each call opens its own
// page and closes it on every exit path.
type ChromeRasterizer struct {
	browser *rod.Browser
}

// NewChromeRasterizer launches a headless browser. browserBin may be empty
// to let the launcher resolve a managed binary.
func NewChromeRasterizer(browserBin string) (*ChromeRasterizer, error) {
	l := launcher.New().Headless(true)
	if browserBin != "" {
		l = l.Bin(browserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &ChromeRasterizer{browser: browser}, nil
}

// Rasterize renders the document and captures a full-page PNG
func (c *ChromeRasterizer) Rasterize(ctx context.Context, html string) ([]byte, error) {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: deviceScale,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("failed to set page content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed waiting for page load: %w", err)
	}

	png, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}

	return png, nil
}

// Close shuts the shared browser down
func (c *ChromeRasterizer) Close() error {
	return c.browser.Close()
}
