package classify

import (
	"regexp"
	"strings"

	"github.com/previewlab/gopreview/internal/fence"
)

// ContentType labels what a fenced block's content is. Exactly one type is
// assigned per block and classification is a pure function of the block, so
// identical input always classifies identically.
type ContentType int

const (
	Unknown ContentType = iota
	Markup
	ComponentMarkup
	ComponentTypedMarkup
	Script
	TypedScript
)

func (t ContentType) String() string {
	switch t {
	case Markup:
		return "markup"
	case ComponentMarkup:
		return "component"
	case ComponentTypedMarkup:
		return "typed-component"
	case Script:
		return "script"
	case TypedScript:
		return "typed-script"
	default:
		return "unknown"
	}
}

// IsComponent reports whether t is one of the component-markup variants.
func (t ContentType) IsComponent() bool {
	return t == ComponentMarkup || t == ComponentTypedMarkup
}

// IsScript reports whether t is one of the plain script variants.
func (t ContentType) IsScript() bool {
	return t == Script || t == TypedScript
}

// tagTypes maps declared fence tags that unambiguously name a content family.
// Tags outside this table are treated the same as a missing tag.
var tagTypes = map[string]ContentType{
	"html":       Markup,
	"htm":        Markup,
	"xhtml":      Markup,
	"jsx":        ComponentMarkup,
	"tsx":        ComponentTypedMarkup,
	"js":         Script,
	"javascript": Script,
	"ts":         TypedScript,
	"typescript": TypedScript,
}

var (
	markupPrefixRe = regexp.MustCompile(`(?i)^\s*(<!doctype\b|<html\b|<head\b|<body\b)`)

	hookCallRe    = regexp.MustCompile(`\buse(State|Effect|Ref|Memo|Callback|Context|Reducer|LayoutEffect)\s*\(`)
	returnTagRe   = regexp.MustCompile(`\breturn\s*\(?\s*<`)
	capitalTagRe  = regexp.MustCompile(`<[A-Z][A-Za-z0-9]*[\s/>]`)
	defaultDeclRe = regexp.MustCompile(`\bexport\s+default\s+(function|class)\b`)

	typeAnnotationRe = regexp.MustCompile(`:\s*(string|number|boolean|void|any|unknown|never|object|bigint|symbol)\b`)
	interfaceDeclRe  = regexp.MustCompile(`\binterface\s+[A-Za-z_$][\w$]*`)
	typeAliasRe      = regexp.MustCompile(`\btype\s+[A-Za-z_$][\w$]*\s*=`)
	genericRe        = regexp.MustCompile(`\b[A-Za-z_$][\w$]*<[A-Za-z_$][\w$]*(\s*,\s*[A-Za-z_$][\w$]*)*>`)

	scriptKeywordRe = regexp.MustCompile(`\b(function|const|let|var|console\.log)\b|=>`)
)

// pairedTags are the block-level elements whose balanced open/close pair is
// taken as evidence of page markup. RE2 has no backreferences, so the pair
// check is a fixed per-tag battery rather than a single pattern.
var pairedTags = buildPairedTags([]string{
	"div", "section", "article", "main", "header", "footer", "nav",
	"table", "form", "ul", "ol", "p", "h1", "h2", "h3", "h4", "h5", "h6",
	"canvas", "svg", "style",
})

type tagPair struct {
	open  *regexp.Regexp
	close string
}

func buildPairedTags(names []string) []tagPair {
	pairs := make([]tagPair, 0, len(names))
	for _, n := range names {
		pairs = append(pairs, tagPair{
			open:  regexp.MustCompile(`(?i)<` + n + `[\s>/]`),
			close: "</" + n + ">",
		})
	}
	return pairs
}

// rule is one entry in the ordered content-heuristic table. The first rule
// whose match fires decides the type; later rules are never consulted.
type rule struct {
	name    string
	match   func(string) bool
	resolve func(string) ContentType
}

// contentRules is the precedence-ordered fallback battery used when the
// declared tag is missing or unrecognized. The typed-syntax check never
// appears as a rule of its own: it only escalates a positive component or
// script match, so an ordinary typed snippet with a stray angle bracket
// cannot classify as a component by itself.
var contentRules = []rule{
	{
		name:    "markup",
		match:   looksLikeMarkup,
		resolve: func(string) ContentType { return Markup },
	},
	{
		name:  "component",
		match: hasComponentIdioms,
		resolve: func(content string) ContentType {
			if hasTypedSyntax(content) {
				return ComponentTypedMarkup
			}
			return ComponentMarkup
		},
	},
	{
		name:  "script",
		match: looksLikeScript,
		resolve: func(content string) ContentType {
			if hasTypedSyntax(content) {
				return TypedScript
			}
			return Script
		},
	},
}

// Classify maps one block to exactly one ContentType. A recognized declared
// tag is trusted, except that script tags escalate to the component variant
// when the content carries component-composition idioms: a UI tag embedded
// in imperative code outweighs the tag the author typed. Untagged or
// unknown-tagged content falls through to the ordered rule table, and
// anything unrecognizable is Unknown rather than an error.
func Classify(b fence.Block) ContentType {
	if t, ok := tagTypes[b.Tag]; ok {
		switch t {
		case Script:
			if hasComponentIdioms(b.Content) {
				return ComponentMarkup
			}
		case TypedScript:
			if hasComponentIdioms(b.Content) {
				return ComponentTypedMarkup
			}
		}
		return t
	}
	return ClassifyContent(b.Content)
}

// ClassifyContent runs only the content-heuristic table, ignoring any tag.
// It also backs the whole-text rendering fallback, which re-runs the markup
// and component heuristics against concatenated block contents.
func ClassifyContent(content string) ContentType {
	for _, r := range contentRules {
		if r.match(content) {
			return r.resolve(content)
		}
	}
	return Unknown
}

// RenderFallback re-runs only the markup and component heuristics, for the
// whole-text fallback when no individual block scored as renderable. The
// loose script rule is deliberately excluded: concatenated mixed content
// trips it far too easily to be worth rendering.
func RenderFallback(content string) (ContentType, bool) {
	if looksLikeMarkup(content) {
		return Markup, true
	}
	if hasComponentIdioms(content) {
		if hasTypedSyntax(content) {
			return ComponentTypedMarkup, true
		}
		return ComponentMarkup, true
	}
	return Unknown, false
}

// looksLikeMarkup fires when content opens like a page document or contains
// a balanced block-level (or style) tag pair.
func looksLikeMarkup(content string) bool {
	if markupPrefixRe.MatchString(content) {
		return true
	}
	lower := strings.ToLower(content)
	for _, p := range pairedTags {
		if p.open.MatchString(content) && strings.Contains(lower, p.close) {
			return true
		}
	}
	return false
}

// hasComponentIdioms detects UI-composition dialect: hook-style calls, a
// return that immediately opens a tag, capitalized tag usage, or a default
// exported function/class.
func hasComponentIdioms(content string) bool {
	return hookCallRe.MatchString(content) ||
		returnTagRe.MatchString(content) ||
		capitalTagRe.MatchString(content) ||
		defaultDeclRe.MatchString(content)
}

// hasTypedSyntax detects static typing: primitive annotations, interface or
// type-alias declarations, or angle-bracket generics.
func hasTypedSyntax(content string) bool {
	return typeAnnotationRe.MatchString(content) ||
		interfaceDeclRe.MatchString(content) ||
		typeAliasRe.MatchString(content) ||
		genericRe.MatchString(content)
}

// looksLikeScript is the last-resort weak signal: an imperative declaration
// keyword together with at least one angle bracket somewhere in the content.
func looksLikeScript(content string) bool {
	return scriptKeywordRe.MatchString(content) && strings.ContainsAny(content, "<>")
}
