package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/previewlab/gopreview/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath    string
		inputPath     string
		outputPath    string
		outputPDF     string
		prompt        string
		systemPrompt  string
		llmBaseURL    string
		llmModel      string
		llmKey        string
		judgeURL      string
		judgeLang     string
		serveAddr     string
		watchInterval time.Duration
		cacheDir      string
		cacheMaxAge   time.Duration
		cacheClear    bool
		cacheStrict   bool
		memoSize      int
		verbose       bool
		showVersion   bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file (flags win over file values)")
	flag.StringVar(&inputPath, "input", "turn.md", "Path to Markdown file holding the assistant turn")
	flag.StringVar(&outputPath, "output", "preview.html", "Path to write the synthesized HTML document")
	flag.StringVar(&outputPDF, "report.pdf", "", "Optional path for a PDF session report")
	flag.StringVar(&prompt, "prompt", "", "Request a fresh turn from the model instead of reading -input")
	flag.StringVar(&systemPrompt, "prompt.system", "", "Override the system prompt sent with -prompt")
	flag.StringVar(&llmBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", "", "Model name")
	flag.StringVar(&llmKey, "llm.key", "", "API key for OpenAI-compatible server")
	flag.StringVar(&judgeURL, "judge.url", "", "Judge service base URL; empty disables grading")
	flag.StringVar(&judgeLang, "judge.lang", "", "Restrict judged extraction to fences with this tag")
	flag.StringVar(&serveAddr, "serve.addr", "", "Serve a live preview on this address (e.g. :8077) and watch -input for changes")
	flag.DurationVar(&watchInterval, "serve.watchInterval", 0, "Poll interval for -input in serve mode (default 500ms)")
	flag.StringVar(&cacheDir, "cache.dir", ".gopreview-cache", "Cache directory path")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.IntVar(&memoSize, "memo.size", 0, "Render memoization cache size (0 uses default)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("gopreview %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		InputPath:        inputPath,
		OutputPath:       outputPath,
		OutputPDFPath:    outputPDF,
		Prompt:           prompt,
		SystemPrompt:     systemPrompt,
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		JudgeURL:         judgeURL,
		JudgeLanguage:    judgeLang,
		ServeAddr:        serveAddr,
		WatchInterval:    watchInterval,
		CacheDir:         cacheDir,
		CacheMaxAge:      cacheMaxAge,
		CacheClear:       cacheClear,
		CacheStrictPerms: cacheStrict,
		MemoSize:         memoSize,
		Verbose:          verbose,
	}

	// Config precedence: flags, then file, then environment.
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		// Exit code policy: an unrenderable turn is a distinct, expected
		// outcome and maps to exit code 2 so wrappers can branch on it.
		// Operational failures exit 1.
		if err == app.ErrNothingRenderable {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
