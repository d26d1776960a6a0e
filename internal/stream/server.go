package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"majordomo/internal/config"
	"majordomo/internal/engine"
	"majordomo/internal/logging"
	"majordomo/internal/session"
)

// SessionFactory builds the per-connection pipeline. The sink it
// receives streams that connection's plan events back to its client.
type SessionFactory func(sink engine.EventSink) *session.Session

// Server upgrades HTTP connections to WebSocket sessions.
type Server struct {
	factory SessionFactory

	readLimit    int64
	writeTimeout time.Duration
	pingInterval time.Duration

	upgrader websocket.Upgrader
}

// NewServer creates a server with the given session factory.
func NewServer(cfg *config.Config, factory SessionFactory) *Server {
	return &Server{
		factory:      factory,
		readLimit:    cfg.Stream.ReadLimit,
		writeTimeout: cfg.GetWriteTimeout(),
		pingInterval: cfg.GetPingInterval(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the http.Handler serving the /ws endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe blocks serving the configured address until the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Stream("listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.StreamWarn("upgrade failed: %v", err)
		return
	}

	conn := newConn(ws, s.writeTimeout, s.pingInterval)
	sess := s.factory(conn)
	logging.Stream("session %s connected from %s", sess.ID(), r.RemoteAddr)

	go conn.writeLoop()
	conn.readLoop(r.Context(), sess, s.readLimit)

	logging.Stream("session %s disconnected", sess.ID())
}
