package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type call struct {
	name  string
	args  []string
	stdin []byte
}

// fakeRunner records calls and answers through fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(name string, args []string, stdin []byte) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: slices.Clone(args), stdin: stdin})
	f.mu.Unlock()
	return f.fn(name, args, stdin)
}

func testPNG(t *testing.T, w, h int, lo, hi uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		v := lo + uint8(int(hi-lo)*x/(w-1))
		for y := 0; y < h; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v / 2, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTesseractRecognize(t *testing.T) {
	r := &fakeRunner{fn: func(string, []string, []byte) ([]byte, []byte, error) {
		return []byte("Quarterly   budget\r\nreview for\tdivision\n\n\n\nApproved"), nil, nil
	}}
	var stages []float64
	tess := NewTesseract(Config{TessdataDir: "/td", PSM: 6}, nil,
		WithRunner(r),
		WithProgress(func(_ string, pct float64) { stages = append(stages, pct) }),
	)

	got, err := tess.Recognize(context.Background(), []byte("png-bytes"), "")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	want := "Quarterly budget\nreview for division\n\nApproved"
	if got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}

	if len(r.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(r.calls))
	}
	c := r.calls[0]
	if c.name != "tesseract" {
		t.Errorf("binary = %q", c.name)
	}
	wantArgs := []string{"stdin", "stdout", "-l", "eng", "--tessdata-dir", "/td", "--psm", "6"}
	if !slices.Equal(c.args, wantArgs) {
		t.Errorf("args = %v, want %v", c.args, wantArgs)
	}
	if string(c.stdin) != "png-bytes" {
		t.Errorf("stdin = %q", c.stdin)
	}
	if !slices.Equal(stages, []float64{0, 1}) {
		t.Errorf("progress = %v", stages)
	}
}

func TestTesseractShortTextFails(t *testing.T) {
	r := &fakeRunner{fn: func(string, []string, []byte) ([]byte, []byte, error) {
		return []byte("  ab c \n"), nil, nil
	}}
	tess := NewTesseract(Config{}, nil, WithRunner(r))

	got, err := tess.Recognize(context.Background(), []byte("img"), "deu")
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("err = %v, want ErrOCRFailed", err)
	}
	if got != "ab c" {
		t.Errorf("short text should still be returned, got %q", got)
	}
	if r.calls[0].args[3] != "deu" {
		t.Errorf("language not forwarded: %v", r.calls[0].args)
	}
}

func TestTesseractExecError(t *testing.T) {
	r := &fakeRunner{fn: func(string, []string, []byte) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file"), errors.New("exit status 1")
	}}
	_, err := NewTesseract(Config{}, nil, WithRunner(r)).Recognize(context.Background(), []byte("img"), "")
	if err == nil || errors.Is(err, ErrOCRFailed) {
		t.Fatalf("err = %v, want an exec error distinct from ErrOCRFailed", err)
	}
	if !strings.Contains(err.Error(), "Error opening data file") {
		t.Errorf("stderr not surfaced: %v", err)
	}
}

func TestTesseractEmptyImage(t *testing.T) {
	r := &fakeRunner{fn: func(string, []string, []byte) ([]byte, []byte, error) {
		t.Fatal("runner must not be called for empty input")
		return nil, nil, nil
	}}
	_, err := NewTesseract(Config{}, nil, WithRunner(r)).Recognize(context.Background(), nil, "")
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("err = %v", err)
	}
}

// pdftoppmFake writes min(docPages, -l) PNG files next to the prefix argument.
func pdftoppmFake(t *testing.T, docPages int) func(string, []string, []byte) ([]byte, []byte, error) {
	return func(_ string, args []string, _ []byte) ([]byte, []byte, error) {
		last := docPages
		for i, a := range args {
			if a == "-l" {
				n, err := strconv.Atoi(args[i+1])
				if err != nil {
					t.Fatalf("bad -l value %q", args[i+1])
				}
				last = min(n, docPages)
			}
		}
		prefix := args[len(args)-1]
		for p := 1; p <= last; p++ {
			name := fmt.Sprintf("%s-%02d.png", prefix, p)
			if err := os.WriteFile(name, []byte(fmt.Sprintf("page-%d", p)), 0o600); err != nil {
				t.Fatal(err)
			}
		}
		return nil, nil, nil
	}
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestRasterizeCapsPages(t *testing.T) {
	r := &fakeRunner{fn: pdftoppmFake(t, 12)}
	rz := NewRasterizer(Config{}, r, nil)

	pages, err := rz.Rasterize(context.Background(), []byte("%PDF-1.4 not really"), 2.0, 10)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if len(pages) != 10 {
		t.Fatalf("pages = %d, want 10", len(pages))
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("page %d has number %d", i, p.Number)
		}
		if string(p.PNG) != fmt.Sprintf("page-%d", i+1) {
			t.Errorf("page %d content = %q", i+1, p.PNG)
		}
	}

	args := r.calls[0].args
	if got := argAfter(args, "-l"); got != "10" {
		t.Errorf("-l = %q, want 10 (pages past the cap must not be rendered)", got)
	}
	if got := argAfter(args, "-r"); got != "144" {
		t.Errorf("-r = %q, want 144 for scale 2.0", got)
	}
	if filepath.Ext(args[len(args)-2]) != ".pdf" {
		t.Errorf("input path = %q", args[len(args)-2])
	}
	if _, err := os.Stat(filepath.Dir(args[len(args)-1])); !os.IsNotExist(err) {
		t.Errorf("temp dir should be removed, stat err = %v", err)
	}
}

func TestRasterizeShortDocument(t *testing.T) {
	r := &fakeRunner{fn: pdftoppmFake(t, 3)}
	pages, err := NewRasterizer(Config{}, r, nil).Rasterize(context.Background(), []byte("%PDF"), 2.0, 10)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
}

func TestRasterizeFailures(t *testing.T) {
	rz := NewRasterizer(Config{}, &fakeRunner{fn: func(string, []string, []byte) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}}, nil)
	if _, err := rz.Rasterize(context.Background(), []byte("%PDF"), 2.0, 10); err == nil {
		t.Fatal("expected pdftoppm failure to surface")
	}

	empty := NewRasterizer(Config{}, &fakeRunner{fn: func(string, []string, []byte) ([]byte, []byte, error) {
		return nil, nil, nil
	}}, nil)
	if _, err := empty.Rasterize(context.Background(), []byte("%PDF"), 2.0, 10); err == nil {
		t.Fatal("expected error when no pages are rendered")
	}

	if _, err := empty.Rasterize(context.Background(), nil, 2.0, 10); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestEnhance(t *testing.T) {
	e := NewEnhancer(nil)
	in := testPNG(t, 64, 16, 100, 150)

	out1, err := e.Enhance(context.Background(), in)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	out2, err := e.Enhance(context.Background(), in)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Error("Enhance should be deterministic")
	}

	img, err := png.Decode(bytes.NewReader(out1))
	if err != nil {
		t.Fatalf("output is not PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 16 {
		t.Fatalf("bounds = %v", b)
	}
	for x := 0; x < 64; x++ {
		r, g, b, _ := img.At(x, 8).RGBA()
		if r != g || g != b {
			t.Fatalf("pixel %d not grey: %d %d %d", x, r, g, b)
		}
	}
}

func TestEnhanceRejectsGarbage(t *testing.T) {
	if _, err := NewEnhancer(nil).Enhance(context.Background(), []byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStretchContrast(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 1))
	for x := 0; x < 100; x++ {
		v := uint8(100 + x/2) // 100..149
		img.SetNRGBA(x, 0, color.NRGBA{R: v, G: v, B: v, A: 255})
	}
	out := stretchContrast(img, 0)

	first := out.NRGBAAt(0, 0).R
	last := out.NRGBAAt(99, 0).R
	if first != 0 || last != 255 {
		t.Fatalf("stretched range = [%d,%d], want [0,255]", first, last)
	}

	flat := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range flat.Pix {
		flat.Pix[i] = 200
	}
	if got := stretchContrast(flat, 0.01); got != flat {
		t.Error("a flat image should be returned unchanged")
	}
}

func TestNormalize(t *testing.T) {
	in := "Line one   \r\n\t\tindented\f\n-----\n\n\n\n\nLast"
	want := "Line one\n indented\n\nLast"
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
	if Normalize("") != "" {
		t.Fatal("empty input must stay empty")
	}
}
