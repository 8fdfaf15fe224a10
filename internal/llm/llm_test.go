package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

const validReport = `{"purposeAndScope":"Policy memo for Q3.","summary":"Covers budget and staffing.","highlights":["a","b","c","d"],"issues":"1. Late filing\nBasis: Section 2","recommendations":"1. File earlier\nBasis: Section 2"}`

func TestRepair(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare", validReport, validReport, false},
		{"fenced json", "```json\n" + validReport + "\n```", validReport, false},
		{"fenced plain", "```\n" + validReport + "\n```", validReport, false},
		{"prose around", "Here you go:\n" + validReport + "\nThanks!", validReport, false},
		{"braces in strings", `{"a":"}{","b":"x\"}"} trailing {`, `{"a":"}{","b":"x\"}"}`, false},
		{"nested", `pre {"a":{"b":[1,{"c":2}]}} post {"z":1}`, `{"a":{"b":[1,{"c":2}]}}`, false},
		{"no object", "I cannot help with that.", "", true},
		{"unterminated", "```json\n{\"summary\": \"cut off", "", true},
		{"unbalanced nested", `{"a": {"b":1}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Repair(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAIResponse) {
					t.Fatalf("err = %v, want ErrInvalidAIResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Repair: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseReport_FencedAndBareAreEquivalent(t *testing.T) {
	a, err := ParseReport(validReport)
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	b, err := ParseReport("```json\n" + validReport + "\n```")
	if err != nil {
		t.Fatalf("fenced: %v", err)
	}
	if a.Summary != b.Summary || len(a.Highlights) != len(b.Highlights) || a.Issues != b.Issues {
		t.Errorf("reports differ: %+v vs %+v", a, b)
	}
	if a.PurposeAndScope != "Policy memo for Q3." || len(a.Highlights) != 4 {
		t.Errorf("unexpected report %+v", a)
	}
}

func TestParseReport_RejectsPartialReports(t *testing.T) {
	tests := map[string]string{
		"fenced partial":       "```json\n{\"summary\": \"x\"}\n```",
		"missing highlights":   `{"purposeAndScope":"p","summary":"s","issues":"i","recommendations":"r"}`,
		"empty highlights":     `{"purposeAndScope":"p","summary":"s","highlights":[],"issues":"i","recommendations":"r"}`,
		"blank summary":        `{"purposeAndScope":"p","summary":"   ","highlights":["h"],"issues":"i","recommendations":"r"}`,
		"blank highlight":      `{"purposeAndScope":"p","summary":"s","highlights":["h"," "],"issues":"i","recommendations":"r"}`,
		"wrong type":           `{"purposeAndScope":"p","summary":"s","highlights":"h","issues":"i","recommendations":"r"}`,
		"empty recommendation": `{"purposeAndScope":"p","summary":"s","highlights":["h"],"issues":"i","recommendations":""}`,
		"not json":             "sorry",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReport(raw)
			if !errors.Is(err, ErrInvalidAIResponse) {
				t.Fatalf("err = %v, want ErrInvalidAIResponse", err)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	long := strings.Repeat("x", 20000)
	if got := Truncate(long, DefaultMaxInputChars); len(got) != DefaultMaxInputChars {
		t.Errorf("len = %d", len(got))
	}
}

func TestBuildReportPrompt(t *testing.T) {
	p := BuildReportPrompt("DOC BODY")
	for _, want := range []string{"purposeAndScope", "summary", "highlights", "issues", "recommendations", "Basis:", "Document:\nDOC BODY\n"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

type fakeCompleter struct {
	answer      string
	err         error
	prompt      string
	gen         GenerationConfig
	hasDeadline bool
}

func (f *fakeCompleter) Model() string { return "fake-model" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, gen GenerationConfig) (string, error) {
	f.prompt, f.gen = prompt, gen
	_, f.hasDeadline = ctx.Deadline()
	return f.answer, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerator_Summarize(t *testing.T) {
	fc := &fakeCompleter{answer: "```json\n" + validReport + "\n```"}
	g := NewGenerator(fc, GeneratorConfig{Temperature: -1, Timeout: time.Minute}, quietLogger())

	text := strings.Repeat("a", 16000) + "TAIL"
	r, err := g.Summarize(context.Background(), text)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if r.Summary == "" || len(r.Highlights) != 4 {
		t.Errorf("report = %+v", r)
	}
	if strings.Contains(fc.prompt, "TAIL") || !strings.Contains(fc.prompt, strings.Repeat("a", 15000)) {
		t.Error("document text was not truncated to 15000 chars")
	}
	if fc.gen.Temperature != 0.3 || fc.gen.MaxOutputTokens != 4000 || fc.gen.ResponseMIMEType != "application/json" {
		t.Errorf("generation config = %+v", fc.gen)
	}
	if !fc.hasDeadline {
		t.Error("completer called without a deadline")
	}
}

func TestGenerator_ZeroTemperatureIsKept(t *testing.T) {
	fc := &fakeCompleter{answer: validReport}
	g := NewGenerator(fc, GeneratorConfig{Temperature: 0}, quietLogger())
	if _, err := g.Summarize(context.Background(), "text"); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if fc.gen.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", fc.gen.Temperature)
	}
}

type blockingCompleter struct{}

func (blockingCompleter) Model() string { return "slow-model" }

func (blockingCompleter) Complete(ctx context.Context, _ string, _ GenerationConfig) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerator_TimeoutIsRequestFailed(t *testing.T) {
	g := NewGenerator(blockingCompleter{}, GeneratorConfig{Timeout: 50 * time.Millisecond}, quietLogger())

	start := time.Now()
	_, err := g.Summarize(context.Background(), "text")
	if !errors.Is(err, ErrAIRequestFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want ErrAIRequestFailed wrapping DeadlineExceeded", err)
	}
	if errors.Is(err, ErrInvalidAIResponse) {
		t.Error("timeout must not be reported as an invalid response")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("summarize took %s", elapsed)
	}
}

func TestGenerator_TransportErrorIsRequestFailed(t *testing.T) {
	g := NewGenerator(&fakeCompleter{err: errors.New("connection refused")}, GeneratorConfig{}, quietLogger())
	_, err := g.Summarize(context.Background(), "text")
	if !errors.Is(err, ErrAIRequestFailed) {
		t.Fatalf("err = %v, want ErrAIRequestFailed", err)
	}
}

func TestGenerator_PartialAnswerIsInvalid(t *testing.T) {
	g := NewGenerator(&fakeCompleter{answer: "```json\n{\"summary\": \"x\"}\n```"}, GeneratorConfig{}, quietLogger())
	_, err := g.Summarize(context.Background(), "text")
	if !errors.Is(err, ErrInvalidAIResponse) {
		t.Fatalf("err = %v, want ErrInvalidAIResponse", err)
	}
	if errors.Is(err, ErrAIRequestFailed) {
		t.Error("invalid answer must not be reported as a request failure")
	}
}
