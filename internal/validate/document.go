package validate

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Document runs a deterministic sanity pass over a synthesized renderable
// document and returns a list of issues. Issues are warnings for the caller
// to log; validation never blocks output, since the rendering host is the
// final authority on whether a document actually runs.
//
// pinned is the allowlist of external URLs the document may reference; any
// other absolute script/stylesheet URL is flagged so the host can keep
// treating documents as dependency-pinned.
func Document(doc string, pinned []string) []string {
	var issues []string

	node, err := html.Parse(strings.NewReader(doc))
	if err != nil || node == nil {
		return append(issues, "document does not parse as HTML")
	}

	if !looksComplete(doc) {
		issues = append(issues, "document has no doctype or <html> element; fragment passthrough assumed")
	}

	for _, u := range externalRefs(node) {
		if !isPinned(u, pinned) {
			issues = append(issues, fmt.Sprintf("external reference not on the pinned allowlist: %s", u))
		}
	}
	return issues
}

// HasContainer reports whether an element with the given id exists in the
// document. Generated wrappers must carry their mount container or the
// embedded code has nothing to render into.
func HasContainer(doc string, id string) bool {
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil || node == nil {
		return false
	}
	found := false
	walk(node, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for _, attr := range n.Attr {
			if strings.EqualFold(attr.Key, "id") && attr.Val == id {
				found = true
			}
		}
	})
	return found
}

func looksComplete(doc string) bool {
	head := strings.ToLower(doc)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<!doctype") || strings.Contains(head, "<html")
}

// externalRefs collects absolute URLs from script src and stylesheet link
// href attributes. Relative URLs resolve inside the isolated host and are
// not treated as external dependencies.
func externalRefs(node *html.Node) []string {
	var refs []string
	walk(node, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		name := strings.ToLower(n.Data)
		var attrKey string
		switch name {
		case "script":
			attrKey = "src"
		case "link":
			attrKey = "href"
		default:
			return
		}
		for _, attr := range n.Attr {
			if !strings.EqualFold(attr.Key, attrKey) {
				continue
			}
			val := strings.TrimSpace(attr.Val)
			if strings.HasPrefix(val, "http://") || strings.HasPrefix(val, "https://") || strings.HasPrefix(val, "//") {
				refs = append(refs, val)
			}
		}
	})
	return refs
}

func isPinned(u string, pinned []string) bool {
	for _, p := range pinned {
		if u == p {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
