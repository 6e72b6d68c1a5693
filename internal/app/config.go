package app

import "time"

// Config carries all runtime configuration for a preview session.
type Config struct {
	// InputPath is a Markdown file holding the assistant turn to ingest.
	// Ignored when Prompt is set in one-shot mode; in serve mode it is the
	// file watched for new turns.
	InputPath string
	// OutputPath is where the synthesized HTML document is written in
	// one-shot mode.
	OutputPath string
	// OutputPDFPath, when set, enables the PDF session report.
	OutputPDFPath string

	// Prompt, when set, requests a fresh turn from the configured model
	// instead of reading InputPath.
	Prompt string
	// SystemPrompt overrides the default system message sent with Prompt.
	SystemPrompt string

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// JudgeURL is the base URL of the grading service; empty disables
	// judge submission.
	JudgeURL string
	// JudgeLanguage restricts judged extraction to fences with this tag.
	// Empty means any tagged or untagged fence qualifies.
	JudgeLanguage string

	// ServeAddr, when set, switches to serve mode: watch InputPath and
	// push rendered previews to connected browsers.
	ServeAddr string
	// WatchInterval is the poll interval for InputPath in serve mode.
	WatchInterval time.Duration

	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	// MemoSize caps the render memoization cache; 0 uses the default.
	MemoSize int

	Verbose bool
}
