package preview

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/previewlab/gopreview/internal/render"
)

// Server owns the cross-turn ordering the extraction pipeline explicitly
// does not: turns apply latest-wins by monotonically increasing ID, a turn
// with nothing renderable leaves the previous artifact in place, and
// connected clients are told to reload whenever a newer artifact lands.
type Server struct {
	mu       sync.Mutex
	turnID   int64
	artifact render.Artifact
	has      bool

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]*sync.Mutex
}

// placeholderDoc is served before the first renderable turn arrives.
const placeholderDoc = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>gopreview</title></head>
<body style="font-family: sans-serif; color: #666;">
<p>Waiting for the first renderable turn.</p>
</body>
</html>
`

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

func NewServer() *Server {
	return &Server{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

// Update applies one turn's outcome. Stale turn IDs are rejected so an
// older in-flight turn can never clobber a newer one. renderable=false
// advances the turn counter but keeps the previous artifact visible: a bad
// turn never clears a previously good render. Returns false when the turn
// was stale.
func (s *Server) Update(turnID int64, a render.Artifact, renderable bool) bool {
	s.mu.Lock()
	if turnID <= s.turnID {
		s.mu.Unlock()
		log.Debug().Int64("turn", turnID).Int64("current", s.turnID).Msg("stale turn ignored")
		return false
	}
	s.turnID = turnID
	if !renderable {
		s.mu.Unlock()
		log.Info().Int64("turn", turnID).Msg("nothing renderable; previous artifact kept")
		return true
	}
	before := ""
	if s.has {
		before = s.artifact.Document
	}
	s.artifact = a
	s.has = true
	s.mu.Unlock()

	added, removed := diffLineCounts(before, a.Document)
	log.Debug().Int64("turn", turnID).Str("type", a.Type.String()).
		Int("linesAdded", added).Int("linesRemoved", removed).
		Msg("artifact superseded")

	s.broadcast("reload")
	return true
}

// Artifact returns the currently served artifact, if any.
func (s *Server) Artifact() (render.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact, s.has
}

// Handler serves the latest document at / and reload events at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveDocument)
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	a, ok := s.Artifact()
	if !ok {
		_, _ = w.Write([]byte(placeholderDoc))
		return
	}
	_, _ = w.Write([]byte(a.Document))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	writeMu := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = writeMu
	s.clientsMu.Unlock()

	// Keep the connection alive; drop it on the first failed ping.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		defer s.dropClient(conn)
		for range ticker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	// Reader loop: discard inbound messages, detect close.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		_ = conn.Close()
	}
	s.clientsMu.Unlock()
}

func (s *Server) broadcast(msg string) {
	s.clientsMu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for c, m := range s.clients {
		conns[c] = m
	}
	s.clientsMu.Unlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, []byte(msg))
		writeMu.Unlock()
		if err != nil {
			s.dropClient(conn)
		}
	}
}

// maxDiffLines bounds the diff computation; documents beyond this are only
// summarized by size.
const maxDiffLines = 5000

// diffLineCounts reports how many lines the new document adds and removes
// relative to the old one.
func diffLineCounts(before, after string) (added, removed int) {
	if lineCount(before)+lineCount(after) > maxDiffLines {
		return lineCount(after), lineCount(before)
	}
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	for _, d := range diffs {
		n := lineCount(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	if s[len(s)-1] != '\n' {
		n++
	}
	return n
}
