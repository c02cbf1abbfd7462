package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BerylCAtieno/agreement-analyzer/internal/testutil"
)

// fakeRunner renders up to `pages` images for pdftoppm, honoring -l, and
// returns "text of <image>" for tesseract.
type fakeRunner struct {
	mu       sync.Mutex
	pages    int
	calls    []string
	tessErr  error
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	tempDirs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	f.mu.Unlock()

	switch filepath.Base(name) {
	case "pdftoppm":
		n := f.inflight.Add(1)
		defer f.inflight.Add(-1)
		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		prefix := args[len(args)-1]
		f.mu.Lock()
		f.tempDirs = append(f.tempDirs, filepath.Dir(prefix))
		f.mu.Unlock()
		last := f.pages
		for i, a := range args {
			if a == "-l" && i+1 < len(args) {
				if n, err := strconv.Atoi(args[i+1]); err == nil && n < last {
					last = n
				}
			}
		}
		for i := 1; i <= last; i++ {
			img := fmt.Sprintf("%s-%d.png", prefix, i)
			if err := os.WriteFile(img, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if f.tessErr != nil {
			return nil, []byte("tesseract failed"), f.tessErr
		}
		return []byte("text of " + filepath.Base(args[0])), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %q", name)
}

func foundEverything(name string) (string, error) { return name, nil }

func newTestRecognizer(cfg Config, runner Runner) *Recognizer {
	return New(cfg,
		WithRunner(runner),
		WithLookPath(foundEverything),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func TestRasterizeAndRecognize(t *testing.T) {
	runner := &fakeRunner{pages: 2}
	rec := newTestRecognizer(Config{TempDir: t.TempDir(), Language: "eng"}, runner)

	text, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDFPages(2))
	if err != nil {
		t.Fatalf("RasterizeAndRecognize: %v", err)
	}

	want := "text of page-1.png\ntext of page-2.png\n"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}

	if len(runner.calls) != 3 {
		t.Fatalf("calls = %v", runner.calls)
	}
	if !strings.HasPrefix(runner.calls[0], "pdftoppm -r 300 -png -l 2 ") {
		t.Errorf("rasterize call = %q", runner.calls[0])
	}
	if !strings.HasSuffix(runner.calls[1], "stdout -l eng") {
		t.Errorf("recognize call = %q", runner.calls[1])
	}
}

func TestTempDirRemoved(t *testing.T) {
	tests := []struct {
		name    string
		tessErr error
	}{
		{"success", nil},
		{"failure", errors.New("exit status 1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{pages: 1, tessErr: tt.tessErr}
			rec := newTestRecognizer(Config{TempDir: t.TempDir()}, runner)

			_, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDF())
			if (err != nil) != (tt.tessErr != nil) {
				t.Fatalf("err = %v", err)
			}
			for _, dir := range runner.tempDirs {
				if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
					t.Errorf("temp dir %s still exists", dir)
				}
			}
		})
	}
}

func TestPageLimit(t *testing.T) {
	tests := []struct {
		name      string
		pdfPages  int
		maxPages  int
		wantLimit string
		wantPages int
	}{
		{"max pages caps a long document", 5, 3, "-l 3 ", 3},
		{"short document caps max pages", 1, 3, "-l 1 ", 1},
		{"no max renders every page", 4, 0, "-l 4 ", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{pages: tt.pdfPages}
			rec := newTestRecognizer(Config{TempDir: t.TempDir(), MaxPages: tt.maxPages, DPI: 150}, runner)

			text, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDFPages(tt.pdfPages))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(runner.calls[0], "pdftoppm -r 150 -png "+tt.wantLimit) {
				t.Errorf("rasterize call = %q", runner.calls[0])
			}
			if got := strings.Count(text, "text of "); got != tt.wantPages {
				t.Errorf("recognized %d pages, want %d", got, tt.wantPages)
			}
		})
	}
}

func TestShortRenderFails(t *testing.T) {
	runner := &fakeRunner{pages: 1}
	rec := newTestRecognizer(Config{TempDir: t.TempDir()}, runner)

	_, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDFPages(3))
	if err == nil || !strings.Contains(err.Error(), "rendered 1 of 3 pages") {
		t.Fatalf("err = %v, want a short render error", err)
	}
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "tesseract") {
			t.Fatalf("recognized a truncated document: %v", runner.calls)
		}
	}
}

func TestUnreadablePageTreeSkipsRasterizer(t *testing.T) {
	tests := []struct {
		name string
		pdf  []byte
	}{
		{"no pages", testutil.BlankPDFPages(0)},
		{"not a pdf", []byte("not a pdf at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{pages: 1}
			rec := newTestRecognizer(Config{TempDir: t.TempDir()}, runner)

			_, err := rec.RasterizeAndRecognize(context.Background(), tt.pdf)
			if err == nil || errors.Is(err, ErrUnavailable) {
				t.Fatalf("err = %v, want a page count error", err)
			}
			if len(runner.calls) != 0 {
				t.Fatalf("calls = %v, want none", runner.calls)
			}
		})
	}
}

func TestMissingToolchain(t *testing.T) {
	rec := New(Config{TempDir: t.TempDir()},
		WithRunner(&fakeRunner{pages: 1}),
		WithLookPath(func(name string) (string, error) {
			if name == "tesseract" {
				return "", exec.ErrNotFound
			}
			return name, nil
		}),
		WithLogger(slog.New(slog.DiscardHandler)),
	)

	_, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDF())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestExecNotFoundIsUnavailable(t *testing.T) {
	runner := &fakeRunner{pages: 1, tessErr: exec.ErrNotFound}
	rec := newTestRecognizer(Config{TempDir: t.TempDir()}, runner)

	_, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDF())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNoPagesRendered(t *testing.T) {
	rec := newTestRecognizer(Config{TempDir: t.TempDir()}, &fakeRunner{pages: 0})

	_, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDF())
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want a rendering error", err)
	}
}

func TestWorkerLimit(t *testing.T) {
	runner := &fakeRunner{pages: 1, delay: 20 * time.Millisecond}
	rec := newTestRecognizer(Config{TempDir: t.TempDir(), Workers: 1}, runner)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rec.RasterizeAndRecognize(context.Background(), testutil.BlankPDF()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if peak := runner.peak.Load(); peak != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak)
	}
}

func TestCanceledContext(t *testing.T) {
	rec := newTestRecognizer(Config{TempDir: t.TempDir(), Workers: 1}, &fakeRunner{pages: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// hold the only slot so Acquire has to observe the canceled context
	if err := rec.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer rec.sem.Release(1)

	if _, err := rec.RasterizeAndRecognize(ctx, testutil.BlankPDF()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
