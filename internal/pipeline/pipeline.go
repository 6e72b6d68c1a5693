package pipeline

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/previewlab/gopreview/internal/classify"
	"github.com/previewlab/gopreview/internal/fence"
	"github.com/previewlab/gopreview/internal/pick"
	"github.com/previewlab/gopreview/internal/render"
)

// Pipeline ties the four pure stages together: extract fenced blocks,
// classify them, select a winner, synthesize the artifact. Every stage is a
// pure function of the turn text, so results are memoized in a bounded LRU
// keyed by the text digest; memoization is observationally invisible.
type Pipeline struct {
	memo *lru.Cache[string, renderEntry]
}

type renderEntry struct {
	artifact render.Artifact
	ok       bool
}

// defaultMemoSize bounds the per-process render memo.
const defaultMemoSize = 256

// New returns a Pipeline with a memo of the given size; size <= 0 uses the
// default.
func New(size int) (*Pipeline, error) {
	if size <= 0 {
		size = defaultMemoSize
	}
	memo, err := lru.New[string, renderEntry](size)
	if err != nil {
		return nil, err
	}
	return &Pipeline{memo: memo}, nil
}

func digest(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Render recovers the best renderable artifact from one complete model turn.
// ok is false when the turn holds nothing renderable; that is an absence,
// not an error, and callers keep their previous artifact.
func (p *Pipeline) Render(text string) (render.Artifact, bool) {
	key := digest(text)
	if p.memo != nil {
		if e, hit := p.memo.Get(key); hit {
			return e.artifact, e.ok
		}
	}
	artifact, ok := renderOnce(text)
	if p.memo != nil {
		p.memo.Add(key, renderEntry{artifact: artifact, ok: ok})
	}
	return artifact, ok
}

func renderOnce(text string) (render.Artifact, bool) {
	blocks := fence.Extract(text)
	winner, ok := pick.ForRender(blocks)
	if !ok {
		return render.Artifact{}, false
	}
	return render.Synthesize(winner.Block, winner.Type)
}

// JudgeCandidate recovers the single best candidate implementation for
// automated grading, filtered by the judge's target-language tag. An empty
// result means no candidate was found this turn.
func (p *Pipeline) JudgeCandidate(text, targetTag string) string {
	return pick.JudgeCandidate(fence.Extract(text), targetTag)
}

// Blocks exposes the classified block inventory of a turn, for reporting.
func (p *Pipeline) Blocks(text string) []ClassifiedBlock {
	blocks := fence.Extract(text)
	out := make([]ClassifiedBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, ClassifiedBlock{Block: b, Type: classify.Classify(b)})
	}
	return out
}

// ClassifiedBlock pairs an extracted block with its content type.
type ClassifiedBlock struct {
	Block fence.Block
	Type  classify.ContentType
}
