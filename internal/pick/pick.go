package pick

import (
	"regexp"

	"github.com/previewlab/gopreview/internal/classify"
	"github.com/previewlab/gopreview/internal/fence"
)

// declIntroducerRe spots a function or class declaration, the shape that
// separates a full implementation from a short usage snippet.
var declIntroducerRe = regexp.MustCompile(`\bfunction\b|\bclass\s+[A-Za-z_$]|\bdef\s+[A-Za-z_]`)

// JudgeCandidate picks the single best candidate implementation to hand to
// an automated grader. Blocks whose declared tag names the judge's target
// language, or carry no tag, form the candidate set; when that filter
// matches nothing, every block is a candidate. Within the set a block with
// a declaration introducer wins, longest first; ties keep the earliest
// block so the policy is order-stable. No blocks at all yields ""; the
// caller treats that as nothing to grade yet, not as an error.
func JudgeCandidate(blocks []fence.Block, targetTag string) string {
	candidates := make([]fence.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Tag == targetTag || b.Tag == "" {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		candidates = blocks
	}
	if len(candidates) == 0 {
		return ""
	}

	best := -1
	for i, b := range candidates {
		if !declIntroducerRe.MatchString(b.Content) {
			continue
		}
		if best == -1 || len(b.Content) > len(candidates[best].Content) {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best].Content
	}
	return candidates[len(candidates)-1].Content
}

// Winner is the block chosen for live rendering, together with its type.
type Winner struct {
	Block fence.Block
	Type  classify.ContentType
}

// Priority maps a content type to its rendering preference. Page markup
// beats components, components beat scripts, and unknown content never
// renders.
func Priority(t classify.ContentType) int {
	switch {
	case t == classify.Markup:
		return 4
	case t.IsComponent():
		return 3
	case t.IsScript():
		return 2
	default:
		return 0
	}
}

// ForRender classifies every block and picks the highest-priority one,
// breaking ties by greatest content length and keeping the earliest block
// when lengths are equal too. When nothing scores above zero, the contents
// of all blocks are concatenated in order and the markup and component
// heuristics are retried against the whole; if that also fails, ok is
// false and the caller keeps whatever it was showing before.
func ForRender(blocks []fence.Block) (Winner, bool) {
	best := -1
	bestScore := 0
	var bestType classify.ContentType
	for i, b := range blocks {
		t := classify.Classify(b)
		score := Priority(t)
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && len(b.Content) > len(blocks[best].Content)) {
			best, bestScore, bestType = i, score, t
		}
	}
	if best >= 0 {
		return Winner{Block: blocks[best], Type: bestType}, true
	}

	joined := fence.Concat(blocks)
	if joined == "" {
		return Winner{}, false
	}
	if t, ok := classify.RenderFallback(joined); ok {
		return Winner{Block: fence.Block{Content: joined}, Type: t}, true
	}
	return Winner{}, false
}
