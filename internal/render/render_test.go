package render

import (
	"strings"
	"testing"

	"github.com/previewlab/gopreview/internal/classify"
	"github.com/previewlab/gopreview/internal/fence"
)

func TestSynthesize_MarkupPassthrough(t *testing.T) {
	b := fence.Block{Tag: "html", Content: "<div>hi</div>"}
	a, ok := Synthesize(b, classify.Markup)
	if !ok {
		t.Fatalf("expected artifact")
	}
	if a.Document != "<div>hi</div>" {
		t.Fatalf("expected verbatim passthrough, got %q", a.Document)
	}
	if a.Type != classify.Markup || a.Source != b.Content {
		t.Fatalf("unexpected artifact metadata: %+v", a)
	}
}

func TestSynthesize_UnknownYieldsNothing(t *testing.T) {
	if _, ok := Synthesize(fence.Block{Content: "words"}, classify.Unknown); ok {
		t.Fatalf("expected no artifact for unknown content")
	}
}

func TestSynthesize_ComponentWrapper(t *testing.T) {
	content := "import React from 'react';\nexport default function Counter() {\n  const [n, setN] = useState(0);\n  return <button onClick={() => setN(n+1)}>{n}</button>;\n}"
	a, ok := Synthesize(fence.Block{Content: content}, classify.ComponentMarkup)
	if !ok {
		t.Fatalf("expected artifact")
	}
	doc := a.Document
	if !strings.HasPrefix(doc, "<!DOCTYPE html>") {
		t.Fatalf("expected complete document, got prefix %q", doc[:20])
	}
	for _, url := range PinnedAssets() {
		if !strings.Contains(doc, url) {
			t.Fatalf("expected pinned asset %s in document", url)
		}
	}
	if strings.Contains(doc, "import React") {
		t.Fatalf("expected import statements stripped")
	}
	if strings.Contains(doc, "export default") {
		t.Fatalf("expected export syntax stripped")
	}
	if !strings.Contains(doc, "React.createElement(Counter)") {
		t.Fatalf("expected mount call for located root component")
	}
	if !strings.Contains(doc, "const { useState, useEffect") {
		t.Fatalf("expected hook helpers bound as locals")
	}
	if !strings.Contains(doc, `<div id="root"></div>`) {
		t.Fatalf("expected root container element")
	}
}

func TestRootComponentName(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"export default function Timer() {}", "Timer"},
		{"export default class Clock { render() {} }", "Clock"},
		{"const Board = () => <div/>;\nexport default Board;", "Board"},
		{"function Gallery() { return <img/>; }", "Gallery"},
		{"const x = 1;", "App"},
		{"", "App"},
	}
	for _, c := range cases {
		if got := RootComponentName(c.content); got != c.want {
			t.Fatalf("content %q: expected %q, got %q", c.content, c.want, got)
		}
	}
}

func TestRootComponentName_PrefersDefaultExportOverFirstCapital(t *testing.T) {
	content := "function Helper() {}\nexport default function Main() {}"
	if got := RootComponentName(content); got != "Main" {
		t.Fatalf("expected default export to win, got %q", got)
	}
}

func TestStripModuleSyntax(t *testing.T) {
	in := "import { useState } from 'react';\nimport './style.css';\nexport const helper = 1;\nexport default function App() {\n  return <div/>;\n}"
	out := StripModuleSyntax(in)
	if strings.Contains(out, "import") {
		t.Fatalf("import statements remain: %q", out)
	}
	if strings.Contains(out, "export") {
		t.Fatalf("export keywords remain: %q", out)
	}
	if !strings.Contains(out, "const helper = 1;") {
		t.Fatalf("exported declaration body lost: %q", out)
	}
	if !strings.Contains(out, "function App() {") {
		t.Fatalf("default-exported declaration lost: %q", out)
	}
}

func TestManagesOwnDOM(t *testing.T) {
	if !ManagesOwnDOM("document.getElementById('a').innerHTML = 'x';") {
		t.Fatalf("expected DOM detection")
	}
	if ManagesOwnDOM("console.log('hello')") {
		t.Fatalf("did not expect DOM detection for console output")
	}
}

func TestSynthesize_ScriptConsoleHarness(t *testing.T) {
	content := "console.log('hello');"
	a, ok := Synthesize(fence.Block{Content: content}, classify.Script)
	if !ok {
		t.Fatalf("expected artifact")
	}
	doc := a.Document
	if !strings.Contains(doc, content) {
		t.Fatalf("expected script embedded in harness")
	}
	if !strings.Contains(doc, `<pre id="output"></pre>`) {
		t.Fatalf("expected output element")
	}
	if !strings.Contains(doc, "try {") || !strings.Contains(doc, "} catch (err) {") {
		t.Fatalf("expected error-catching harness")
	}
	if strings.Contains(doc, babelURL) {
		t.Fatalf("plain script should not load the transformer")
	}
}

func TestSynthesize_DOMScriptRunsVerbatim(t *testing.T) {
	content := "document.getElementById('app').innerHTML = '<b>x</b>';"
	a, ok := Synthesize(fence.Block{Content: content}, classify.Script)
	if !ok {
		t.Fatalf("expected artifact")
	}
	if !strings.Contains(a.Document, `<div id="app"></div>`) {
		t.Fatalf("expected bare container for DOM script")
	}
	if strings.Contains(a.Document, "console.log = function") {
		t.Fatalf("DOM script must not get the console harness")
	}
}

func TestSynthesize_TypedScriptLoadsTransformer(t *testing.T) {
	content := "const n: number = 2;\nconsole.log(n < 3);"
	a, ok := Synthesize(fence.Block{Content: content}, classify.TypedScript)
	if !ok {
		t.Fatalf("expected artifact")
	}
	if !strings.Contains(a.Document, babelURL) {
		t.Fatalf("typed script should load the transformer")
	}
	if !strings.Contains(a.Document, `data-presets="typescript"`) {
		t.Fatalf("typed script should use the typescript preset")
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	b := fence.Block{Content: "export default function App() { return <div/>; }"}
	a1, _ := Synthesize(b, classify.ComponentMarkup)
	a2, _ := Synthesize(b, classify.ComponentMarkup)
	if a1.Document != a2.Document {
		t.Fatalf("synthesis is not deterministic")
	}
}
