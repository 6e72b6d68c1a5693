package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/previewlab/gopreview/internal/cache"
)

// Turn is one complete model response. ID increases monotonically per
// transport so downstream consumers can apply latest-wins ordering; the
// extraction pipeline itself carries no cross-turn state.
type Turn struct {
	ID   int64
	Text string
}

// ErrEmptyTurn indicates the model produced no usable text.
var ErrEmptyTurn = errors.New("empty model turn")

// defaultSystemPrompt nudges the model toward fenced, tagged answers the
// extractor can recover. Extraction still tolerates untagged output.
const defaultSystemPrompt = "You are a coding assistant. Put the complete final code in a single fenced code block with a language tag."

// Transport requests model turns and buffers each one to completion before
// handing it to the caller. Streamed responses are accumulated until the
// backend signals the end of the turn; a partially delivered turn is never
// exposed.
type Transport struct {
	Client Client
	Model  string
	Cache  *cache.ResponseCache
	// SystemPrompt, when non-empty, overrides the default system message.
	SystemPrompt string

	seq atomic.Int64
}

// Complete requests one full turn for prompt. Identical model+prompt pairs
// are served from cache when configured; the turn ID still advances, since
// each call is a new turn from the caller's perspective.
func (t *Transport) Complete(ctx context.Context, prompt string) (Turn, error) {
	if t.Client == nil || strings.TrimSpace(t.Model) == "" {
		return Turn{}, errors.New("transport not configured")
	}
	system := defaultSystemPrompt
	if strings.TrimSpace(t.SystemPrompt) != "" {
		system = t.SystemPrompt
	}

	key := cache.KeyFrom(t.Model, system+"\n\n"+prompt)
	if t.Cache != nil {
		if raw, ok, _ := t.Cache.Get(ctx, key); ok {
			var out struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(raw, &out); err == nil && strings.TrimSpace(out.Text) != "" {
				return t.newTurn(out.Text), nil
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model: t.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		N:           1,
	}

	text, err := t.complete(ctx, req)
	if err != nil {
		// Single short retry on failure keeps flaky local backends usable
		// without masking persistent errors.
		if sleeper := sleepFunc; sleeper != nil {
			sleeper(100)
		} else {
			defaultSleep(100)
		}
		text, err = t.complete(ctx, req)
		if err != nil {
			return Turn{}, fmt.Errorf("chat completion (after retry): %w", err)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyTurn
	}

	if t.Cache != nil {
		payload, _ := json.Marshal(map[string]string{"text": text})
		_ = t.Cache.Save(ctx, key, payload)
	}
	return t.newTurn(text), nil
}

func (t *Transport) newTurn(text string) Turn {
	return Turn{ID: t.seq.Add(1), Text: text}
}

// complete performs one request, preferring the streaming path when the
// backend supports it and buffering deltas until the stream ends.
func (t *Transport) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if sc, ok := t.Client.(StreamingClient); ok {
		return bufferStream(ctx, sc, req)
	}
	resp, err := t.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyTurn
	}
	return resp.Choices[0].Message.Content, nil
}

func bufferStream(ctx context.Context, sc StreamingClient, req openai.ChatCompletionRequest) (string, error) {
	req.Stream = true
	stream, err := sc.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) > 0 {
			sb.WriteString(resp.Choices[0].Delta.Content)
		}
	}
	return sb.String(), nil
}

// sleepFunc allows tests to inject a deterministic sleep hook measured in
// milliseconds. When nil, defaultSleep is used.
var sleepFunc func(ms int)

func defaultSleep(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
