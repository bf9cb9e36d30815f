package pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeRasterizer prints HTML with a headless Chrome. One browser is
// started on first use and every render gets its own tab.
type ChromeRasterizer struct {
	execPath string

	once        sync.Once
	startErr    error
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelBrows context.CancelFunc
}

// NewChromeRasterizer uses the Chrome binary at execPath, or the first one
// found on PATH when empty.
func NewChromeRasterizer(execPath string) *ChromeRasterizer {
	return &ChromeRasterizer{execPath: execPath}
}

func (c *ChromeRasterizer) start() error {
	c.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoSandbox,
			chromedp.DisableGPU,
		)
		if c.execPath != "" {
			opts = append(opts, chromedp.ExecPath(c.execPath))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancelBrows := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrows()
			cancelAlloc()
			c.startErr = fmt.Errorf("start chrome: %w", err)
			return
		}
		c.browserCtx = browserCtx
		c.cancelAlloc = cancelAlloc
		c.cancelBrows = cancelBrows
	})
	return c.startErr
}

func (c *ChromeRasterizer) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	if err := c.start(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var out []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// A4 in inches
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			out = buf
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return out, nil
}

// Close stops the browser.
func (c *ChromeRasterizer) Close() {
	if c.cancelBrows != nil {
		c.cancelBrows()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
}
