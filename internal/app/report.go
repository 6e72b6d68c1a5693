package app

import (
	"fmt"
	"strings"

	"github.com/previewlab/gopreview/internal/chat"
	"github.com/previewlab/gopreview/internal/judge"
	"github.com/previewlab/gopreview/internal/pipeline"
	"github.com/previewlab/gopreview/internal/render"
)

// sessionReport renders a Markdown summary of one preview session: what was
// extracted, what was selected for rendering, what the document audit found
// and how the judge graded the candidate. The report is the input to the PDF
// writer, so it stays plain line-oriented Markdown.
func sessionReport(turn chat.Turn, blocks []pipeline.ClassifiedBlock, art render.Artifact, renderable bool, issues []string, judgeRes *judge.Result) string {
	var b strings.Builder

	b.WriteString("# Preview session report\n\n")
	fmt.Fprintf(&b, "Turn %d, %d characters of assistant output.\n\n", turn.ID, len(turn.Text))

	b.WriteString("## Extracted blocks\n\n")
	if len(blocks) == 0 {
		b.WriteString("No fenced code blocks found.\n\n")
	} else {
		for _, cb := range blocks {
			tag := cb.Block.Tag
			if tag == "" {
				tag = "(untagged)"
			}
			fmt.Fprintf(&b, "- block %d: tag %s, classified %s, %d bytes\n",
				cb.Block.Order, tag, cb.Type, len(cb.Block.Content))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Selection\n\n")
	if renderable {
		fmt.Fprintf(&b, "Selected a %s block; synthesized document is %d bytes.\n\n",
			art.Type, len(art.Document))
	} else {
		b.WriteString("No block was renderable; previous preview, if any, remains in place.\n\n")
	}

	b.WriteString("## Document audit\n\n")
	if !renderable {
		b.WriteString("Skipped: nothing was rendered.\n\n")
	} else if len(issues) == 0 {
		b.WriteString("No findings.\n\n")
	} else {
		for _, issue := range issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Judge\n\n")
	switch {
	case judgeRes == nil:
		b.WriteString("Not submitted.\n")
	case judgeRes.Total == 0 && judgeRes.Error == "":
		b.WriteString("Submitted; judge reported no test cases.\n")
	default:
		fmt.Fprintf(&b, "Passed %d of %d cases.\n", judgeRes.Passed, judgeRes.Total)
		if judgeRes.Error != "" {
			fmt.Fprintf(&b, "\nJudge error: %s\n", judgeRes.Error)
		}
		if len(judgeRes.Cases) > 0 {
			b.WriteString("\n")
			for _, c := range judgeRes.Cases {
				verdict := "pass"
				if !c.Passed {
					verdict = "fail"
				}
				fmt.Fprintf(&b, "- %s: %s\n", c.Name, verdict)
			}
		}
	}

	return b.String()
}
