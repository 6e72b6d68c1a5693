package chat

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/previewlab/gopreview/internal/cache"
)

// fakeClient returns scripted responses and counts calls. It deliberately
// does not implement StreamingClient so the non-streaming path is exercised.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	content := ""
	if i < len(f.responses) {
		content = f.responses[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func TestComplete_ReturnsBufferedTurn(t *testing.T) {
	tr := &Transport{Client: &fakeClient{responses: []string{"```html\n<div/>\n```"}}, Model: "m"}
	turn, err := tr.Complete(context.Background(), "make a div")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if turn.Text != "```html\n<div/>\n```" {
		t.Fatalf("unexpected turn text %q", turn.Text)
	}
	if turn.ID != 1 {
		t.Fatalf("expected first turn ID 1, got %d", turn.ID)
	}
}

func TestComplete_TurnIDsIncrease(t *testing.T) {
	tr := &Transport{Client: &fakeClient{responses: []string{"a", "b", "c"}}, Model: "m"}
	var last int64
	for i := 0; i < 3; i++ {
		turn, err := tr.Complete(context.Background(), "p")
		if err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
		if turn.ID <= last {
			t.Fatalf("turn IDs must increase: %d then %d", last, turn.ID)
		}
		last = turn.ID
	}
}

func TestComplete_RetriesOnceOnTransientError(t *testing.T) {
	sleepFunc = func(int) {}
	defer func() { sleepFunc = nil }()

	f := &fakeClient{
		errs:      []error{errors.New("connection reset")},
		responses: []string{"", "recovered"},
	}
	tr := &Transport{Client: f, Model: "m"}
	turn, err := tr.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if turn.Text != "recovered" {
		t.Fatalf("unexpected text %q", turn.Text)
	}
	if f.calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", f.calls)
	}
}

func TestComplete_EmptyTurnIsSentinel(t *testing.T) {
	sleepFunc = func(int) {}
	defer func() { sleepFunc = nil }()

	tr := &Transport{Client: &fakeClient{responses: []string{"   ", "   "}}, Model: "m"}
	_, err := tr.Complete(context.Background(), "p")
	if !errors.Is(err, ErrEmptyTurn) {
		t.Fatalf("expected ErrEmptyTurn, got %v", err)
	}
}

func TestComplete_ServesFromCacheWithoutCall(t *testing.T) {
	dir := t.TempDir()
	f := &fakeClient{responses: []string{"cached answer"}}
	tr := &Transport{Client: f, Model: "m", Cache: &cache.ResponseCache{Dir: dir}}

	first, err := tr.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := tr.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected cache hit to skip the backend, calls=%d", f.calls)
	}
	if second.Text != first.Text {
		t.Fatalf("cached text mismatch")
	}
	if second.ID <= first.ID {
		t.Fatalf("turn ID must advance on cache hits too")
	}
}
