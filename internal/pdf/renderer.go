package pdf

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Musavvir24/my-software/pkg/metrics"
	"golang.org/x/sync/semaphore"
)

//go:embed invoice.html
var invoiceHTML string

// URLPrefix is where rendered files are served.
const URLPrefix = "/invoices"

// Rasterizer turns an HTML document into PDF bytes.
type Rasterizer interface {
	PrintPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer fills the invoice template and rasterizes it into one directory
// per tenant under dir. At most
// `concurrency` renders run at once; the rest wait for a slot until their
// timeout expires.
type Renderer struct {
	dir     string
	tmpl    *template.Template
	raster  Rasterizer
	slots   *semaphore.Weighted
	timeout time.Duration
}

func NewRenderer(dir string, raster Rasterizer, concurrency int64, timeout time.Duration) (*Renderer, error) {
	tmpl, err := template.New("invoice").Parse(invoiceHTML)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Renderer{
		dir:     dir,
		tmpl:    tmpl,
		raster:  raster,
		slots:   semaphore.NewWeighted(concurrency),
		timeout: timeout,
	}, nil
}

// Dir is the directory rendered files are written to.
func (r *Renderer) Dir() string {
	return r.dir
}

// HTML executes the template only.
func (r *Renderer) HTML(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("execute invoice template: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes the PDF for v into the directory of tenant key and returns
// its path.
func (r *Renderer) Render(ctx context.Context, key string, v View) (path string, err error) {
	start := time.Now()
	defer func() {
		metrics.PDFRenderDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PDFRenderFailures.Inc()
		}
	}()

	html, err := r.HTML(v)
	if err != nil {
		return "", err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for render slot: %w", err)
	}
	defer r.slots.Release(1)

	data, err := r.raster.PrintPDF(ctx, html)
	if err != nil {
		return "", fmt.Errorf("rasterize invoice %s: %w", v.InvoiceNumber, err)
	}

	dir := filepath.Join(r.dir, safeName(key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf dir: %w", err)
	}

	path = filepath.Join(dir, FileName(v.InvoiceNumber))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

// Remove deletes the rendered file of a tenant's invoice number, if any.
func (r *Renderer) Remove(key, number string) error {
	err := os.Remove(filepath.Join(r.dir, safeName(key), FileName(number)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// FileName is the file an invoice number renders to. Characters that are not
// safe in a file name or URL path are replaced.
func FileName(number string) string {
	return "invoice-" + safeName(number) + ".pdf"
}

func safeName(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// URL builds the public link of a tenant's invoice PDF.
func URL(origin, key, number string) string {
	return strings.TrimRight(origin, "/") + URLPrefix + "/" + safeName(key) + "/" + FileName(number)
}
