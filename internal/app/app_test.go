package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/previewlab/gopreview/internal/judge"
)

func writeTurnFile(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "turn.md")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write turn: %v", err)
	}
	return path
}

func TestOneShotWritesMarkupArtifact(t *testing.T) {
	dir := t.TempDir()
	turn := "Here you go:\n\n```html\n<!DOCTYPE html><html><body><h1>hi</h1></body></html>\n```\n"
	out := filepath.Join(dir, "preview.html")
	cfg := Config{
		InputPath:  writeTurnFile(t, dir, turn),
		OutputPath: out,
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(b), "<h1>hi</h1>") {
		t.Fatalf("output missing markup content:\n%s", b)
	}
}

func TestOneShotNothingRenderable(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		InputPath:  writeTurnFile(t, dir, "Just prose, no code at all."),
		OutputPath: filepath.Join(dir, "preview.html"),
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	err = a.Run(context.Background())
	if !errors.Is(err, ErrNothingRenderable) {
		t.Fatalf("Run error = %v, want ErrNothingRenderable", err)
	}
	if _, serr := os.Stat(cfg.OutputPath); !os.IsNotExist(serr) {
		t.Fatalf("output written despite unrenderable turn")
	}
}

func TestOneShotSubmitsToJudge(t *testing.T) {
	var got judge.Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		_ = json.NewEncoder(w).Encode(judge.Result{
			Cases:  []judge.Case{{Name: "t1", Passed: true}},
			Passed: 1,
			Total:  1,
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	turn := "```js\nfunction add(a, b) { return a + b; }\n```\n"
	cfg := Config{
		InputPath:     writeTurnFile(t, dir, turn),
		OutputPath:    filepath.Join(dir, "preview.html"),
		JudgeURL:      srv.URL,
		JudgeLanguage: "js",
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(got.Code, "function add") {
		t.Fatalf("judge received code %q", got.Code)
	}
	if got.Language != "js" {
		t.Fatalf("judge received language %q", got.Language)
	}
}

func TestNextTurnPromptWithoutModel(t *testing.T) {
	a := &App{cfg: Config{Prompt: "write me a component"}}
	if _, err := a.nextTurn(context.Background()); err == nil {
		t.Fatalf("expected error for prompt without model")
	}
}

func TestOneShotWritesSessionReport(t *testing.T) {
	dir := t.TempDir()
	turn := "```jsx\nfunction App() { return <div>ok</div>; }\n```\n"
	pdfPath := filepath.Join(dir, "session.pdf")
	cfg := Config{
		InputPath:     writeTurnFile(t, dir, turn),
		OutputPath:    filepath.Join(dir, "preview.html"),
		OutputPDFPath: pdfPath,
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	info, err := os.Stat(pdfPath)
	if err != nil {
		t.Fatalf("stat report: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("report is empty")
	}
}
