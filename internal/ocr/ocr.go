// Package ocr recovers text from scanned PDFs by rasterizing pages with
// poppler's pdftoppm and recognizing each page image with tesseract.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/semaphore"
)

// ErrUnavailable means the rasterizer or the recognizer is not installed or
// not configured on this host.
var ErrUnavailable = errors.New("ocr toolchain unavailable")

var errNoPages = errors.New("pdf has no pages")

var disableConfigDir sync.Once

// pdfConfig returns pdfcpu's built-in defaults. Without ConfigPath set to
// "disable", pdfcpu creates a config directory on disk and exits the process
// when it cannot.
func pdfConfig() *model.Configuration {
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })
	return model.NewDefaultConfiguration()
}

type Config struct {
	Pdftoppm  string // binary name or absolute path
	Tesseract string // binary name or absolute path
	Language  string
	DPI       int
	MaxPages  int // 0 = all pages
	Workers   int // concurrent documents
	TempDir   string
}

func DefaultConfig() Config {
	return Config{
		Pdftoppm:  "pdftoppm",
		Tesseract: "tesseract",
		Language:  "eng",
		DPI:       300,
		Workers:   2,
	}
}

type Recognizer struct {
	cfg      Config
	runner   Runner
	lookPath func(string) (string, error)
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

type Option func(*Recognizer)

func WithRunner(r Runner) Option {
	return func(rec *Recognizer) { rec.runner = r }
}

func WithLookPath(fn func(string) (string, error)) Option {
	return func(rec *Recognizer) { rec.lookPath = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(rec *Recognizer) { rec.logger = l }
}

func New(cfg Config, opts ...Option) *Recognizer {
	def := DefaultConfig()
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = def.Pdftoppm
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = def.Tesseract
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}

	rec := &Recognizer{
		cfg:      cfg,
		lookPath: exec.LookPath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rec)
	}
	if rec.runner == nil {
		rec.runner = execRunner{logger: rec.logger}
	}
	rec.sem = semaphore.NewWeighted(int64(cfg.Workers))
	return rec
}

// RasterizeAndRecognize renders the pages of pdf, up to MaxPages, and returns
// the recognized text of each page in order, each followed by a newline. A
// page count that disagrees with what was rendered is an error. The PDF is staged in
// a private temp directory that is removed before returning.
func (r *Recognizer) RasterizeAndRecognize(ctx context.Context, pdf []byte) (string, error) {
	pdftoppm, err := r.resolve(r.cfg.Pdftoppm)
	if err != nil {
		return "", err
	}
	tesseract, err := r.resolve(r.cfg.Tesseract)
	if err != nil {
		return "", err
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer r.sem.Release(1)

	tmpDir, err := os.MkdirTemp(r.cfg.TempDir, "ocr-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	inPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inPath, pdf, 0o600); err != nil {
		return "", fmt.Errorf("stage pdf: %w", err)
	}

	count, err := api.PageCount(bytes.NewReader(pdf), pdfConfig())
	if err != nil {
		return "", fmt.Errorf("count pages: %w", err)
	}
	if count == 0 {
		return "", errNoPages
	}
	limit := count
	if r.cfg.MaxPages > 0 && r.cfg.MaxPages < limit {
		limit = r.cfg.MaxPages
	}

	pages, err := r.rasterize(ctx, pdftoppm, inPath, filepath.Join(tmpDir, "page"), limit)
	if err != nil {
		return "", err
	}
	if len(pages) < limit {
		return "", fmt.Errorf("pdftoppm rendered %d of %d pages", len(pages), limit)
	}

	var b strings.Builder
	for i, img := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, errb, err := r.runner.Run(ctx, tesseract, img, "stdout", "-l", r.cfg.Language)
		if err != nil {
			return "", r.commandError("tesseract", err, errb)
		}
		b.Write(out)
		b.WriteByte('\n')
		r.logger.Debug("page recognized", "page", i+1, "chars", len(out))
	}

	r.logger.Info("ocr complete", "pages", len(pages), "chars", b.Len())
	return b.String(), nil
}

// rasterize renders pages 1..last as PNG files and returns them in page order.
func (r *Recognizer) rasterize(ctx context.Context, bin, in, prefix string, last int) ([]string, error) {
	args := []string{"-r", strconv.Itoa(r.cfg.DPI), "-png", "-l", strconv.Itoa(last), in, prefix}

	_, errb, err := r.runner.Run(ctx, bin, args...)
	if err != nil {
		return nil, r.commandError("pdftoppm", err, errb)
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}
	return matches, nil
}

func (r *Recognizer) resolve(bin string) (string, error) {
	path, err := r.lookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, bin, err)
	}
	return path, nil
}

func (r *Recognizer) commandError(name string, err error, stderr []byte) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return fmt.Errorf("%s: %w: %s", name, err, truncate(msg, 512))
	}
	return fmt.Errorf("%s: %w", name, err)
}
