package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/previewlab/gopreview/internal/classify"
	"github.com/previewlab/gopreview/internal/render"
)

func artifactFor(doc string) render.Artifact {
	return render.Artifact{Document: doc, Source: doc, Type: classify.Markup}
}

func TestUpdate_LatestWins(t *testing.T) {
	s := NewServer()
	if !s.Update(2, artifactFor("<p>two</p>"), true) {
		t.Fatalf("expected turn 2 to apply")
	}
	if s.Update(1, artifactFor("<p>one</p>"), true) {
		t.Fatalf("expected stale turn 1 to be rejected")
	}
	a, ok := s.Artifact()
	if !ok || a.Document != "<p>two</p>" {
		t.Fatalf("expected turn 2 artifact, got %+v", a)
	}
}

func TestUpdate_BadTurnKeepsPreviousArtifact(t *testing.T) {
	s := NewServer()
	s.Update(1, artifactFor("<p>good</p>"), true)
	if !s.Update(2, render.Artifact{}, false) {
		t.Fatalf("expected unrenderable turn to still advance")
	}
	a, ok := s.Artifact()
	if !ok || a.Document != "<p>good</p>" {
		t.Fatalf("expected previous artifact kept, got %+v ok=%t", a, ok)
	}
	// And the unrenderable turn must still have consumed its ID.
	if s.Update(2, artifactFor("<p>late</p>"), true) {
		t.Fatalf("expected turn 2 replay to be stale")
	}
}

func TestServeDocument_PlaceholderThenArtifact(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Waiting for the first renderable turn") {
		t.Fatalf("expected placeholder, got %q", body)
	}

	s.Update(1, artifactFor("<div>live</div>"), true)
	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "<div>live</div>" {
		t.Fatalf("expected artifact document, got %q", body)
	}
}

func TestWebsocket_ReloadBroadcast(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the client.
	time.Sleep(50 * time.Millisecond)
	s.Update(1, artifactFor("<p>v1</p>"), true)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "reload" {
		t.Fatalf("expected reload event, got %q", msg)
	}
}

func TestDiffLineCounts(t *testing.T) {
	added, removed := diffLineCounts("a\nb\n", "a\nc\n")
	if added != 1 || removed != 1 {
		t.Fatalf("expected 1 added / 1 removed, got %d/%d", added, removed)
	}
	added, removed = diffLineCounts("", "x\ny\n")
	if added == 0 || removed != 0 {
		t.Fatalf("expected additions only, got %d/%d", added, removed)
	}
}
