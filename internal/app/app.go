package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/previewlab/gopreview/internal/cache"
	"github.com/previewlab/gopreview/internal/chat"
	"github.com/previewlab/gopreview/internal/judge"
	"github.com/previewlab/gopreview/internal/pipeline"
	"github.com/previewlab/gopreview/internal/preview"
	"github.com/previewlab/gopreview/internal/render"
	"github.com/previewlab/gopreview/internal/validate"
)

// ErrNothingRenderable indicates the turn held no block the synthesizer could
// turn into a standalone document. It maps to a distinct exit code so callers
// can tell "no preview" apart from operational failures.
var ErrNothingRenderable = errors.New("nothing renderable in turn")

const defaultWatchInterval = 500 * time.Millisecond

// App wires the extraction pipeline to its inputs and outputs: a turn source
// (file or model), an optional judge, and either a one-shot artifact file or
// a live preview server.
type App struct {
	cfg       Config
	pipe      *pipeline.Pipeline
	transport *chat.Transport
	judge     *judge.Client

	// turnSeq numbers file-sourced turns; model turns are numbered by the
	// transport itself.
	turnSeq atomic.Int64
}

// New validates configuration and constructs the application.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.CacheClear && cfg.CacheDir != "" {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
		} else {
			log.Info().Str("dir", cfg.CacheDir).Msg("cache cleared")
		}
	}
	if cfg.CacheMaxAge > 0 && cfg.CacheDir != "" {
		if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("cache purge failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Dur("maxAge", cfg.CacheMaxAge).Msg("cache purged")
		}
	}

	pipe, err := pipeline.New(cfg.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	a := &App{cfg: cfg, pipe: pipe}

	if strings.TrimSpace(cfg.LLMModel) != "" {
		oc := openai.DefaultConfig(cfg.LLMAPIKey)
		if strings.TrimSpace(cfg.LLMBaseURL) != "" {
			oc.BaseURL = cfg.LLMBaseURL
		}
		oc.HTTPClient = newHighThroughputHTTPClient()
		provider := &chat.OpenAIProvider{Inner: openai.NewClientWithConfig(oc)}

		var rc *cache.ResponseCache
		if cfg.CacheDir != "" {
			rc = &cache.ResponseCache{
				Dir:         filepath.Join(cfg.CacheDir, "chat"),
				StrictPerms: cfg.CacheStrictPerms,
			}
		}
		a.transport = &chat.Transport{
			Client:       provider,
			Model:        cfg.LLMModel,
			Cache:        rc,
			SystemPrompt: cfg.SystemPrompt,
		}

		// Best-effort connectivity check; a failure is a warning, not a
		// startup error, since the backend may come up later.
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if _, err := provider.ListModels(pctx); err != nil {
			log.Warn().Err(err).Str("base", cfg.LLMBaseURL).Msg("model backend preflight failed")
		}
		cancel()
	}

	if strings.TrimSpace(cfg.JudgeURL) != "" {
		a.judge = &judge.Client{
			BaseURL:           cfg.JudgeURL,
			HTTPClient:        newHighThroughputHTTPClient(),
			UserAgent:         "gopreview/" + BuildVersion,
			MaxAttempts:       3,
			PerRequestTimeout: 30 * time.Second,
		}
	}

	return a, nil
}

// Close releases resources. Present for symmetry and future use.
func (a *App) Close() {}

// Run executes one preview session: serve mode when an address is
// configured, otherwise a single ingest-extract-synthesize pass.
func (a *App) Run(ctx context.Context) error {
	if strings.TrimSpace(a.cfg.ServeAddr) != "" {
		return a.serve(ctx)
	}
	return a.oneShot(ctx)
}

func (a *App) oneShot(ctx context.Context) error {
	turn, err := a.nextTurn(ctx)
	if err != nil {
		return err
	}
	blocks := a.pipe.Blocks(turn.Text)
	log.Info().Int64("turn", turn.ID).Int("blocks", len(blocks)).Msg("turn ingested")

	var judgeRes *judge.Result
	if a.judge != nil {
		code := a.pipe.JudgeCandidate(turn.Text, a.cfg.JudgeLanguage)
		res, jerr := a.judge.Submit(ctx, judge.Submission{
			Language: a.cfg.JudgeLanguage,
			Code:     code,
			Turn:     turn.ID,
		})
		if jerr != nil {
			log.Warn().Err(jerr).Msg("judge submission failed")
		} else {
			judgeRes = &res
			log.Info().Int("passed", res.Passed).Int("total", res.Total).Msg("judge result")
		}
	}

	artifact, ok := a.pipe.Render(turn.Text)
	var issues []string
	if ok {
		issues = a.auditArtifact(artifact)
		if err := os.WriteFile(a.cfg.OutputPath, []byte(artifact.Document), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info().
			Str("path", a.cfg.OutputPath).
			Str("type", artifact.Type.String()).
			Int("bytes", len(artifact.Document)).
			Msg("artifact written")
	} else {
		log.Warn().Int64("turn", turn.ID).Msg("no renderable block in turn")
	}

	if a.cfg.OutputPDFPath != "" {
		report := sessionReport(turn, blocks, artifact, ok, issues, judgeRes)
		if perr := writeSessionPDF(report, a.cfg.OutputPDFPath); perr != nil {
			log.Warn().Err(perr).Msg("session report PDF failed")
		} else {
			log.Info().Str("path", a.cfg.OutputPDFPath).Msg("session report written")
		}
	}

	if !ok {
		return ErrNothingRenderable
	}
	return nil
}

// nextTurn obtains the turn to preview: from the model when a prompt is
// configured, otherwise from the input file.
func (a *App) nextTurn(ctx context.Context) (chat.Turn, error) {
	if strings.TrimSpace(a.cfg.Prompt) != "" {
		if a.transport == nil {
			return chat.Turn{}, errors.New("prompt given but no model configured")
		}
		return a.transport.Complete(ctx, a.cfg.Prompt)
	}
	b, err := os.ReadFile(a.cfg.InputPath)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("read input: %w", err)
	}
	return chat.Turn{ID: a.turnSeq.Add(1), Text: string(b)}, nil
}

// auditArtifact runs the document checks and logs findings. Findings never
// block delivery; a degraded preview is still a preview.
func (a *App) auditArtifact(art render.Artifact) []string {
	issues := validate.Document(art.Document, render.PinnedAssets())
	switch {
	case art.Type.IsComponent():
		if !validate.HasContainer(art.Document, render.RootContainerID) {
			issues = append(issues, "missing component mount container")
		}
	case art.Type.IsScript() && !render.ManagesOwnDOM(art.Source):
		if !validate.HasContainer(art.Document, render.OutputContainerID) {
			issues = append(issues, "missing console output container")
		}
	}
	for _, issue := range issues {
		log.Warn().Str("issue", issue).Msg("document audit")
	}
	return issues
}

// serve runs the live preview server and polls the input file for new turns.
// Each observed change becomes a new turn with a higher ID, so stale renders
// can never clobber newer ones.
func (a *App) serve(ctx context.Context) error {
	srv := preview.NewServer()
	httpSrv := &http.Server{Addr: a.cfg.ServeAddr, Handler: srv.Handler()}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.ServeAddr).Msg("preview server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	interval := a.cfg.WatchInterval
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	var lastSize int64
	ingest := func() {
		info, err := os.Stat(a.cfg.InputPath)
		if err != nil {
			// Absent input is not an error in serve mode; keep waiting.
			return
		}
		if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
			return
		}
		lastMod, lastSize = info.ModTime(), info.Size()
		b, rerr := os.ReadFile(a.cfg.InputPath)
		if rerr != nil {
			log.Warn().Err(rerr).Str("path", a.cfg.InputPath).Msg("input read failed")
			return
		}
		a.applyTurn(ctx, srv, chat.Turn{ID: a.turnSeq.Add(1), Text: string(b)})
	}
	ingest()

	for {
		select {
		case <-ctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutCtx)
		case err := <-errc:
			return fmt.Errorf("preview server: %w", err)
		case <-ticker.C:
			ingest()
		}
	}
}

// applyTurn renders one turn and offers it to the preview server. Judge
// submission, when configured, happens per turn as well so the grading trail
// follows the conversation.
func (a *App) applyTurn(ctx context.Context, srv *preview.Server, turn chat.Turn) {
	artifact, ok := a.pipe.Render(turn.Text)
	if ok {
		a.auditArtifact(artifact)
	}
	srv.Update(turn.ID, artifact, ok)

	if a.judge != nil {
		code := a.pipe.JudgeCandidate(turn.Text, a.cfg.JudgeLanguage)
		res, err := a.judge.Submit(ctx, judge.Submission{
			Language: a.cfg.JudgeLanguage,
			Code:     code,
			Turn:     turn.ID,
		})
		if err != nil {
			log.Warn().Err(err).Int64("turn", turn.ID).Msg("judge submission failed")
		} else if res.Total > 0 {
			log.Info().Int64("turn", turn.ID).Int("passed", res.Passed).Int("total", res.Total).Msg("judge result")
		}
	}
}
