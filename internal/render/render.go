package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/previewlab/gopreview/internal/classify"
	"github.com/previewlab/gopreview/internal/fence"
)

// Artifact is the synthesizer's output: a complete standalone document the
// rendering host can mount without further processing, the source content
// it was built from, and the content type that drove synthesis.
type Artifact struct {
	Document string
	Source   string
	Type     classify.ContentType
}

// Pinned content-delivery URLs for the UI runtime and the in-browser source
// transformer. Everything a synthesized document loads comes from this list,
// so the host can treat the document as dependency-pinned.
const (
	reactURL    = "https://unpkg.com/react@18.2.0/umd/react.development.js"
	reactDOMURL = "https://unpkg.com/react-dom@18.2.0/umd/react-dom.development.js"
	babelURL    = "https://unpkg.com/@babel/standalone@7.23.9/babel.min.js"
)

// PinnedAssets returns the allowlist of external URLs a synthesized document
// may reference. Validation rejects anything outside it.
func PinnedAssets() []string {
	return []string{reactURL, reactDOMURL, babelURL}
}

// Container element IDs used by generated wrapper documents.
const (
	RootContainerID   = "root"
	OutputContainerID = "output"
	AppContainerID    = "app"
)

// defaultRootComponent is mounted when no root component can be located in
// component content.
const defaultRootComponent = "App"

var (
	exportDefaultFuncRe  = regexp.MustCompile(`\bexport\s+default\s+(?:async\s+)?function\s+([A-Za-z_$][\w$]*)`)
	exportDefaultClassRe = regexp.MustCompile(`\bexport\s+default\s+class\s+([A-Za-z_$][\w$]*)`)
	exportDefaultIdentRe = regexp.MustCompile(`\bexport\s+default\s+([A-Za-z_$][\w$]*)\s*;?`)
	capitalDeclRe        = regexp.MustCompile(`\b(?:function|class|const|let|var)\s+([A-Z][\w$]*)`)

	importLineRe        = regexp.MustCompile(`(?m)^\s*import\b[^\n]*\n?`)
	exportDefaultDeclRe = regexp.MustCompile(`\bexport\s+default\s+((?:async\s+)?function|class)\b`)
	exportDefaultBareRe = regexp.MustCompile(`(?m)^\s*export\s+default\s+[A-Za-z_$][\w$]*\s*;?\s*$\n?`)
	exportDefaultExprRe = regexp.MustCompile(`(?m)^(\s*)export\s+default\s+`)
	exportPrefixRe      = regexp.MustCompile(`(?m)^(\s*)export\s+`)

	domAPIRe = regexp.MustCompile(`document\s*\.\s*(getElementById|querySelector|querySelectorAll|createElement|write|body)\b|\binnerHTML\b|\bappendChild\b|\binsertAdjacentHTML\b`)
)

// Synthesize turns one winning block and its classified type into a complete
// standalone document. Markup passes through verbatim; component content is
// wrapped with the pinned UI runtime and mounted; script content either runs
// against a bare container (when it manipulates the page itself) or inside a
// console-capture harness. Unknown content synthesizes nothing, which the
// caller reports as "nothing renderable". The function is pure: same block
// and type always produce a byte-identical document.
func Synthesize(b fence.Block, t classify.ContentType) (Artifact, bool) {
	switch {
	case t == classify.Markup:
		return Artifact{Document: b.Content, Source: b.Content, Type: t}, true
	case t.IsComponent():
		return Artifact{Document: componentDocument(b.Content), Source: b.Content, Type: t}, true
	case t.IsScript():
		return Artifact{Document: scriptDocument(b.Content, t), Source: b.Content, Type: t}, true
	default:
		return Artifact{}, false
	}
}

// RootComponentName locates the component the author meant as the entry
// point: a default-exported named function, then a default-exported named
// class, then a default-exported bare identifier, then the first
// capitalized declaration anywhere in the content. Falls back to a fixed
// generic name so synthesis always has something to mount.
func RootComponentName(content string) string {
	for _, re := range []*regexp.Regexp{exportDefaultFuncRe, exportDefaultClassRe, exportDefaultIdentRe, capitalDeclRe} {
		if m := re.FindStringSubmatch(content); len(m) == 2 {
			return m[1]
		}
	}
	return defaultRootComponent
}

// StripModuleSyntax removes cross-module declaration statements. The
// synthesized document supplies every dependency as a global, so import
// lines are dropped and export keywords peeled off the declarations they
// qualify. Order matters: default-export forms are handled before the
// generic export prefix.
func StripModuleSyntax(content string) string {
	s := importLineRe.ReplaceAllString(content, "")
	s = exportDefaultBareRe.ReplaceAllString(s, "")
	s = exportDefaultDeclRe.ReplaceAllString(s, "$1")
	s = exportDefaultExprRe.ReplaceAllString(s, "$1")
	s = exportPrefixRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

func componentDocument(content string) string {
	root := RootComponentName(content)
	body := StripModuleSyntax(content)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>body { margin: 8px; font-family: sans-serif; }</style>
<script crossorigin src="%s"></script>
<script crossorigin src="%s"></script>
<script src="%s"></script>
</head>
<body>
<div id="%s"></div>
<script type="text/babel" data-presets="react,typescript">
const { useState, useEffect, useRef, useMemo, useCallback, useContext, useReducer, useLayoutEffect } = React;

%s

ReactDOM.createRoot(document.getElementById('%s')).render(React.createElement(%s));
</script>
</body>
</html>
`, reactURL, reactDOMURL, babelURL, RootContainerID, body, RootContainerID, root)
}

// ManagesOwnDOM reports whether script content references page-manipulation
// APIs and is therefore assumed to produce its own visible output.
func ManagesOwnDOM(content string) bool {
	return domAPIRe.MatchString(content)
}

func scriptDocument(content string, t classify.ContentType) string {
	// Typed sources route through the in-browser transformer so they run
	// unmodified; plain scripts execute directly.
	scriptOpen := "<script>"
	transformer := ""
	if t == classify.TypedScript {
		scriptOpen = `<script type="text/babel" data-presets="typescript">`
		transformer = fmt.Sprintf("\n<script src=\"%s\"></script>", babelURL)
	}

	if ManagesOwnDOM(content) {
		return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>body { margin: 8px; font-family: sans-serif; }</style>%s
</head>
<body>
<div id="%s"></div>
%s
%s
</script>
</body>
</html>
`, transformer, AppContainerID, scriptOpen, content)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>body { margin: 8px; font-family: monospace; } pre { white-space: pre-wrap; }</style>%s
</head>
<body>
<pre id="%s"></pre>
%s
const __lines = [];
const __log = console.log;
console.log = function () {
  const parts = [];
  for (let i = 0; i < arguments.length; i++) {
    const a = arguments[i];
    parts.push(typeof a === 'object' ? JSON.stringify(a) : String(a));
  }
  __lines.push(parts.join(' '));
  __log.apply(console, arguments);
};
try {
%s
} catch (err) {
  __lines.push('Error: ' + (err && err.message ? err.message : String(err)));
}
document.getElementById('%s').textContent = __lines.join('\n');
</script>
</body>
</html>
`, transformer, OutputContainerID, scriptOpen, content, OutputContainerID)
}
