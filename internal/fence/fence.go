package fence

import (
	"regexp"
	"strings"
)

// Block is a single fenced code segment recovered from a model turn. Tag is
// the bare language word following the opening fence, lower-cased and empty
// when the author gave none. Order is the position of appearance in the
// source text; selection may reorder by score but never rewrites Order.
type Block struct {
	Tag     string
	Content string
	Order   int
}

// fenceRe matches one triple-backtick fence: an optional bare tag after the
// opening delimiter, then content non-greedily up to the closing delimiter.
// Indented fences (up to three spaces) are accepted the way common Markdown
// renderers accept them.
var fenceRe = regexp.MustCompile("(?s)```([A-Za-z0-9_+#.-]*)[ \t]*\r?\n?(.*?)```")

// Extract returns every fenced segment of text, in order of appearance.
// Content is trimmed of leading and trailing whitespace. A text with no
// fences yields an empty slice; Extract never fails, since the input is
// unvalidated model output by definition.
func Extract(text string) []Block {
	matches := fenceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]Block, 0, len(matches))
	for i, m := range matches {
		blocks = append(blocks, Block{
			Tag:     strings.ToLower(strings.TrimSpace(m[1])),
			Content: strings.TrimSpace(m[2]),
			Order:   i,
		})
	}
	return blocks
}

// Concat joins the contents of blocks in order of appearance, separated by
// single newlines. It backs the whole-text fallback used when no individual
// block scores as renderable.
func Concat(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Content)
	}
	return strings.Join(parts, "\n")
}
