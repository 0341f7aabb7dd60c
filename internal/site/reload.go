package site

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"clinviz/internal/errors"
)

const reloadMessage = "reload"

// debounce window for filesystem event bursts; a report build touches many
// files at once and should trigger a single browser refresh.
const reloadDebounce = 250 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The reload socket only ever talks to the page the server itself
	// served.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// reloadHub maintains the set of connected browsers and broadcasts a reload
// notice when the site directory changes.
type reloadHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	logger  *slog.Logger
	metrics *siteMetrics

	// writeMu serializes broadcasts: gorilla allows a single concurrent
	// writer per connection, and debounce timers can fire while an earlier
	// broadcast is still draining.
	writeMu sync.Mutex
}

func newReloadHub(logger *slog.Logger, metrics *siteMetrics) *reloadHub {
	return &reloadHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
		metrics: metrics,
	}
}

// handleWS upgrades the connection and keeps it registered until the browser
// goes away. Inbound messages are drained and discarded; the protocol is
// one-way.
func (h *reloadHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.wsClients.Set(float64(count))
	h.logger.DebugContext(r.Context(), "reload client connected",
		slog.Int("clients", count))

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *reloadHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.wsClients.Set(float64(count))
	conn.Close()
}

// broadcast notifies every connected browser. Dead connections are dropped.
func (h *reloadHub) broadcast() {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
			h.drop(c)
		}
	}
	h.metrics.reloadsTotal.Inc()
	h.logger.Debug("reload broadcast", slog.Int("clients", len(conns)))
}

func (h *reloadHub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		c.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()
	h.metrics.wsClients.Set(0)
}

// watchSite watches dir recursively and calls onChange (debounced) whenever
// site content is rewritten. Blocks until ctx is done.
func watchSite(ctx context.Context, dir string, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewStorageError("failed to create filesystem watcher", err)
	}
	defer watcher.Close()

	for _, d := range []string{dir, filepath.Join(dir, "widgets"), filepath.Join(dir, "img"), filepath.Join(dir, "tables")} {
		if err := watcher.Add(d); err != nil {
			logger.Warn("not watching directory",
				slog.String("dir", d),
				slog.String("error", err.Error()))
		}
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("filesystem watcher error", slog.String("error", err.Error()))
		}
	}
}

// reloadScript is served at /livereload.js and injected into HTML pages.
const reloadScript = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(proto + location.host + "/ws/reload");
    ws.onmessage = function (ev) { if (ev.data === "reload") location.reload(); };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  connect();
})();
`
