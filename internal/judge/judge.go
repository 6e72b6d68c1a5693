package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Submission is one candidate implementation handed to the external judge.
// Turn identifies which model turn produced the code, for traceability only;
// the judge's execution semantics are entirely its own.
type Submission struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Turn     int64  `json:"turn"`
}

// Case is the judge's verdict for a single test case.
type Case struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
}

// Result aggregates the judge's per-case verdicts. Error carries any runtime
// error text the judge reported for the submission as a whole.
type Result struct {
	Cases  []Case `json:"cases"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
	Error  string `json:"error,omitempty"`
}

// Client submits candidate code to a judge service over HTTP with bounded
// retry on transient errors.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
}

// Submit grades one candidate. An empty candidate short-circuits to a zero
// Result without touching the network: "nothing to grade yet" is an absence,
// not an error.
func (c *Client) Submit(ctx context.Context, sub Submission) (Result, error) {
	if strings.TrimSpace(sub.Code) == "" {
		return Result{}, nil
	}
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return Result{}, errors.New("judge client not configured")
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := c.tryOnce(ctx, sub)
		if err == nil {
			return res, nil
		}
		if !isTransient(err) || i == attempts-1 {
			return Result{}, err
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return Result{}, lastErr
}

func (c *Client) tryOnce(ctx context.Context, sub Submission) (Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return Result{}, fmt.Errorf("encode submission: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/submissions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return Result{}, fmt.Errorf("server error: %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read body: %w", err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	// Normalize counters when the judge omits them.
	if res.Total == 0 && len(res.Cases) > 0 {
		res.Total = len(res.Cases)
		res.Passed = 0
		for _, cs := range res.Cases {
			if cs.Passed {
				res.Passed++
			}
		}
	}
	return res, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "server error:")
}
